// Package orchestrator runs one request end to end: the compliance pipeline
// first, then the plugins selected by the processing level, then the
// fallback synthesizer when nothing produced response text.
//
// # Levels
//
//   - basic: the compliance pipeline only.
//   - standard: plus the extended systems, in their fixed order.
//   - detailed: plus every other registered plugin, in registration order.
//
// A request the pipeline does not approve never reaches a plugin and
// reports no active systems. Plugin faults are recorded as error outcomes;
// the plugin still counts as having taken part, and the verdict is never
// affected.
//
// An extended system that is registered but not yet instantiated gets one
// lazy instantiation attempt on first use. Success promotes it for every
// later request; failure skips it for the current request only.
package orchestrator
