// Package plugins holds the registry of auxiliary analysis plugins.
//
// A plugin is registered as a Descriptor: a name and a constructor. The
// Registry keeps one Record per name in an arena indexed by ID and resolves
// every record exactly once in Instantiate:
//
//   - a descriptor without a constructor is StatusClassNotFound
//   - a constructor failing with ErrUnavailable is StatusImportError
//   - a constructor failing with ErrNotInstantiable, or a Configure error,
//     leaves the descriptor StatusAvailable for a later Upgrade
//   - any other error or a panic is StatusRuntimeError
//   - otherwise the plugin is StatusActive
//
// The capability of an instance (Processes, Analyzes or NoOp) is resolved
// from its method set when it is instantiated, not on every call. Invoke
// wraps a call in panic recovery and reports failures as a *Fault, so a
// broken plugin never takes a request down with it.
//
// Nothing in this package decides which plugins run for a request; that is
// the orchestrator's job.
package plugins
