package compliance

// DefaultRulesetVersion labels the built-in ruleset.
const DefaultRulesetVersion = "builtin-1"

// Stage reasons. Output-side reasons are used by the re-check of generated text.
const (
	ReasonZerothInput    = "Zeroth Law violation: Humanity-level harm detected"
	ReasonZerothInaction = "Zeroth Law violation: Inaction would allow humanity-level harm"
	ReasonZerothOutput   = "Zeroth Law violation: Output contains humanity-level harm"
	ReasonFirstInput     = "First Law violation: Harmful intent detected"
	ReasonFirstOutput    = "First Law violation: Output contains harmful content"
	ReasonSecondInput    = "Second Law violation: Request conflicts with First Law (no harm to humans)"
	ReasonThirdInput     = "Third Law violation: Would compromise system integrity"
)

// DefaultRulesetSpec returns the built-in rule content.
func DefaultRulesetSpec() RulesetSpec {
	return RulesetSpec{
		Version: DefaultRulesetVersion,
		Zeroth: ZerothSpec{
			Keywords: []string{
				"genocide", "extinction", "mass destruction", "existential threat",
				"destroy all humans", "end humanity", "global catastrophe",
				"wipe out humanity", "eliminate humans", "humanity destruction",
				"apocalypse", "armageddon", "end of civilization", "human extinction",
			},
			Patterns: []string{
				`how to (destroy|eliminate|wipe out) (all )?humans`,
				`plan for (humanity'?s )?extinction`,
				`cause a global (catastrophe|extinction event)`,
				`end (all )?human(ity|s)`,
				`destroy (the )?human race`,
			},
			Alternative: "I cannot and will not assist with anything that could harm humanity. How can I help you in a way that benefits all of us?",
			InactionPhrases: []string{
				"prevent extinction", "stop global catastrophe", "save humanity",
				"prevent humanity destruction", "avoid human extinction",
			},
		},
		First: FirstSpec{
			Keywords: []string{
				"harm", "hurt", "kill", "violence", "attack", "destroy", "hate",
				"self-harm", "suicide", "murder", "assault", "abuse", "torture",
				"illegal", "dangerous", "weapon", "explosive", "poison",
			},
			Patterns: []string{
				`how to (harm|hurt|kill|attack)`,
				`instructions for (violence|illegal)`,
				`ways to (cause harm|inflict pain)`,
			},
			Alternatives: []AlternativeSpec{
				{
					When: []string{"self-harm", "suicide"},
					Text: "I can't assist with that, but you don't have to face this alone. Please reach out to a local crisis line or emergency number; in the US you can call or text 988.",
				},
				{
					When: []string{"violence", "harm"},
					Text: "I can't assist with that request. I'm designed to help, not harm. How can I assist you in a positive way?",
				},
			},
			DefaultAlternative: "I can't fulfill that request because it might cause harm. Is there a safe alternative I can help with?",
		},
		Third: ThirdSpec{
			Phrases: []string{
				"bypass safety", "ignore ethical", "disable protection",
				"remove safeguards", "hack system", "exploit vulnerability",
			},
			Combinations: []CombinationSpec{
				{All: []string{"trick"}, Any: []string{"safety", "ethical"}},
			},
			Alternative: "I can't fulfill that request as it would compromise system integrity and my ability to assist safely.",
		},
		OutputSafety: OutputSafetySpec{
			Categories: []SafetyCategorySpec{
				{Name: "encourages_physical_harm", Terms: []string{"kill", "attack", "harm", "violence", "weapon"}},
				{Name: "causes_emotional_harm", Terms: []string{"hate", "despise", "worthless", "useless"}},
				{Name: "poses_financial_risks", Terms: []string{"guaranteed profit", "risk-free investment", "get rich quick"}},
			},
			ReplaceThreshold: 3,
			Replacement:      "I can't provide that response as written. I'm happy to help with a safer version of your question.",
			Caution:          "Note: parts of this response touch on sensitive topics. Please seek qualified guidance before acting on it.",
		},
	}
}

// DefaultRuleset returns the compiled built-in ruleset.
func DefaultRuleset() *Ruleset {
	return MustCompile(DefaultRulesetSpec())
}
