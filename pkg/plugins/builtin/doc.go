// Package builtin is the registration table of the engine's analysis
// plugins.
//
// Catalog lists every known plugin name in registration order. The nine
// extended systems and a handful of detailed-level systems are backed by
// package analysis; the rest are declared no-op systems that report
// themselves as available. None of them can change a compliance verdict.
package builtin
