package trigger

// stopwords are dropped from keyword sets. Descriptions are written as
// instructions to a model ("Use this agent when..."), so the list carries
// that register's filler words as well as ordinary English ones. Entries are
// in normalized form: "does" folds to "doe".
var stopwords = map[string]bool{
	"a": true, "about": true, "after": true, "all": true, "also": true, "an": true,
	"and": true, "any": true, "are": true, "as": true, "at": true, "be": true,
	"been": true, "before": true, "but": true, "by": true, "can": true, "could": true,
	"do": true, "doe": true, "don": true, "each": true, "eg": true, "etc": true,
	"for": true, "from": true, "had": true, "ha": true, "has": true, "have": true,
	"how": true, "i": true, "ie": true, "if": true, "in": true, "into": true,
	"is": true, "it": true, "its": true, "just": true, "like": true, "may": true,
	"me": true, "might": true, "more": true, "most": true, "must": true, "my": true,
	"need": true, "no": true, "not": true, "of": true, "on": true, "or": true,
	"other": true, "our": true, "out": true, "over": true, "own": true, "per": true,
	"should": true, "so": true, "some": true, "such": true, "than": true, "that": true,
	"the": true, "their": true, "them": true, "then": true, "there": true, "these": true,
	"they": true, "thi": true, "this": true, "those": true, "through": true, "to": true,
	"too": true, "under": true, "up": true, "upon": true, "us": true, "use": true,
	"used": true, "user": true, "using": true, "via": true, "wa": true, "want": true,
	"was": true, "we": true, "were": true, "what": true, "when": true, "where": true,
	"whether": true, "which": true, "while": true, "who": true, "will": true, "with": true,
	"within": true, "without": true, "would": true, "you": true, "your": true,
	"agent": true, "example": true, "assistant": true, "context": true, "commentary": true,
	"proactively": true, "trigger": true, "task": true, "help": true, "request": true,
	"ask": true, "invoke": true, "skill": true, "whenever": true,
}

func isStopword(token string) bool {
	return stopwords[token]
}
