// Package governance gates changes to the live ruleset behind human
// confirmation and automated checks, and keeps every step in a TRACE
// register.
//
// An upgrade moves through the Governor in three calls:
//
//	p, err := gov.Propose(ctx, "Add financial scam terms", candidateSpec)
//	audit, err := gov.Audit(ctx, p.ID)            // optional dry run
//	outcome, err := gov.Validate(ctx, p.ID, true) // confirm and apply
//
// Validate with confirmation runs four checks against the candidate:
//
//   - human-in-the-loop: the proposal was explicitly confirmed
//   - immutable core: no zeroth or first law keyword or pattern of the live
//     ruleset is removed
//   - bias and drift: benign inputs the live ruleset allows are still allowed
//   - adversarial robustness: known attack inputs are still blocked
//
// The candidate replaces the live ruleset only when all four pass. A ruleset
// source that reloads later (file watch or git poll) replaces it again.
//
// The register is append-only. MemoryRegister suits tests and ephemeral
// deployments; SQLiteRegister persists entries with mattn/go-sqlite3.
package governance
