// Package compliance implements the ordered, short-circuiting law pipeline
// that every request passes before anything else runs.
//
// Four stages are evaluated in fixed priority order: Zeroth (harm to
// humanity), First (harm to an individual), Second (instructions that
// conflict with the First Law) and Third (attempts to disable the system's
// own safeguards). The first failing stage decides the verdict; lower
// stages are reported as not evaluated.
//
// When every stage passes, an optional Generator produces response text,
// which is re-checked against the Zeroth and First stages. A failing
// re-check flips the verdict to non-compliant with an output-side reason.
// Generated text that passes may still be annotated or replaced by the
// output safety filter, which never changes the verdict.
//
// Rule content lives in a Ruleset compiled from a RulesetSpec. The live
// ruleset sits in a RuleStore so it can be swapped at runtime (see package
// source for file, directory and git loaders).
//
// Internal failures never escape: Run and Check return SafeDefault, in
// which each law is individually compliant but the request is not, with
// reason "processing error".
package compliance
