// Package synthesis builds the fallback narrative returned when neither the
// response generator nor any plugin produced usable text.
//
// Synthesize is a pure function of the raw input, the compliance verdict and
// the names of the systems that took part. The input is classified as a
// question, request, statement or general remark to pick the acknowledgment,
// and the EthicalSummary block reports each law and the number of systems.
package synthesis
