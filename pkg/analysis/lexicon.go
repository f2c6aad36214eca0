package analysis

// Term lists. Single words match whole tokens; multi-word entries match as
// phrases over the normalized token stream.
var (
	sensitiveTerms = map[string][]string{
		"violence":    {"kill", "murder", "attack", "weapon", "blood", "shoot", "stab"},
		"hate_speech": {"hate", "racist", "bigot", "discrimination", "slur"},
		"self_harm":   {"suicide", "self harm", "self-harm", "hurt myself", "end my life"},
		"profanity":   {"fuck", "shit", "damn", "bitch"},
	}

	positiveWords = []string{
		"good", "great", "excellent", "amazing", "wonderful",
		"happy", "love", "best", "thank", "thanks", "perfect", "kind", "hope",
	}

	negativeWords = []string{
		"bad", "terrible", "awful", "horrible", "worst",
		"hate", "angry", "sad", "wrong", "fail", "afraid", "hopeless",
	}

	generalizationPhrases = []string{
		"all women", "all men", "all people", "those people", "these people",
		"everyone knows", "nobody can", "they all", "people like them", "you people",
	}

	absoluteWords = []string{"always", "never", "everyone", "nobody", "every", "none", "all"}

	stereotypePhrases = []string{
		"naturally better", "naturally worse", "born to", "typical of",
		"just like all", "that's how they are", "by nature",
	}

	physicalTerms      = []string{"health", "injury", "sleep", "pain", "exercise", "illness", "medical", "body", "safety", "food"}
	psychologicalTerms = []string{"stress", "anxiety", "depression", "mental", "lonely", "fear", "happiness", "emotional", "trauma", "grief"}
	socialTerms        = []string{"family", "friend", "friends", "community", "relationship", "society", "neighbors", "colleagues", "isolation"}
	economicTerms      = []string{"money", "job", "income", "debt", "rent", "poverty", "salary", "investment", "cost", "afford"}

	hedgeTerms = []string{
		"maybe", "perhaps", "possibly", "might", "could be", "not sure",
		"uncertain", "unclear", "i think", "probably", "likely", "it depends",
	}

	certaintyTerms = []string{"definitely", "certainly", "guaranteed", "always", "never", "undeniably", "without doubt", "100%"}

	valueTerms = []string{
		"freedom", "liberty", "safety", "security", "privacy", "honesty", "truth",
		"kindness", "fairness", "equality", "justice", "autonomy", "loyalty", "efficiency",
		"transparency", "compassion",
	}

	// valueTensions are value pairs that commonly conflict.
	valueTensions = []ValueConflict{
		{A: "freedom", B: "safety"},
		{A: "liberty", B: "security"},
		{A: "privacy", B: "security"},
		{A: "privacy", B: "transparency"},
		{A: "honesty", B: "kindness"},
		{A: "truth", B: "compassion"},
		{A: "autonomy", B: "safety"},
		{A: "loyalty", B: "fairness"},
		{A: "efficiency", B: "fairness"},
		{A: "equality", B: "freedom"},
	}

	stakeholderTerms = []string{
		"children", "child", "patients", "employees", "workers", "customers", "users",
		"students", "elderly", "community", "public", "family", "animals", "environment",
	}

	urgencyTerms = []string{"emergency", "urgent", "urgently", "immediately", "right now", "asap", "life or death"}
)
