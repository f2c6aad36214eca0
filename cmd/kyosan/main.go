// Kyosan screens free-text requests against four ordered laws and annotates
// the approved ones with a registry of ethical analysis systems.
//
// Usage:
//
//	# Start the HTTP service
//	kyosan run --config /etc/kyosan/config.yaml
//
//	# Evaluate one input from the command line
//	kyosan evaluate "How should I weigh two conflicting duties?" --level detailed
//
//	# List the analysis systems and their load status
//	kyosan systems --status active
//
//	# Check a ruleset before deploying it
//	kyosan rules validate ./rules
//
//	# Inspect the decision audit trail
//	kyosan evidence query --time-range "2026-10-01T00:00:00Z/2026-10-02T00:00:00Z" --compliant=false
package main

func main() {
	Execute()
}
