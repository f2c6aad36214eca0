// Package analysis extracts deterministic text signals used by the built-in
// analysis plugins.
//
// Everything here is keyword and regex based:
//
//   - PII detection (email, phone, SSN, credit card, IP address)
//   - Sensitive content categories (violence, hate speech, self harm, profanity)
//   - Sentiment label from positive and negative word counts
//   - Bias markers (generalizations, absolutes, stereotyping phrases)
//   - Wellbeing dimensions (physical, psychological, social, economic)
//   - Uncertainty markers (hedges, certainty claims, open questions)
//   - Values mentioned and known value tensions between them
//   - Stakeholders and urgency cues
//
// Signals are counts and labels. Nothing in this package produces a score or
// a verdict; compliance decisions belong to package compliance.
//
// # Usage
//
//	a := analysis.NewAnalyzer(analysis.DefaultConfig())
//	report := a.Analyze("Is it fair to always trust experts?")
//	if report.Bias.Detected() {
//		logger.Debug("bias markers", "absolutes", report.Bias.Absolutes)
//	}
//
// An Analyzer is immutable after construction and safe for concurrent use.
package analysis
