// Package reasoning provides the advanced, advisory ethical analyses: harm
// likelihood, pluralistic reading of moral dilemmas, a forward-looking
// reading of the laws, and a record of how ethical norms evolve.
//
// None of it changes a compliance verdict. The AdvancedEthicalReasoningSystem
// plugin reports an Assessment alongside the verdict and the
// /api/v1/ethics/advanced routes expose each analysis on its own.
//
//	r := reasoning.New(analysis.DefaultHarmThreshold)
//	a := r.Assess("Should I lie to protect a friend's feelings?", nil)
//	if a.Decision == reasoning.DecisionReview {
//		logger.Info("dilemma left unresolved", "explanation", a.Dilemma.Explanation)
//	}
//
// Everything is keyword based and deterministic. A Reasoner is immutable and
// safe for concurrent use; a NormTracker guards its history with a mutex.
package reasoning
