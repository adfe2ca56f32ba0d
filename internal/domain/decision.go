package domain

// DecisionKind identifies the single active variant of a Decision.
type DecisionKind int

const (
	// DecisionReply answers the user directly without a lookup. An empty
	// reply text means the model had nothing useful; callers substitute a
	// fixed fallback sentence.
	DecisionReply DecisionKind = iota
	// DecisionClarify asks the user a clarifying question verbatim.
	DecisionClarify
	// DecisionSearch runs a directory lookup before answering.
	DecisionSearch
)

// SearchRequest describes a directory lookup extracted from the user query.
// Empty filter fields mean "match all" for that column.
type SearchRequest struct {
	City         string
	HospitalName string
	IsCountQuery bool
	Limit        int
}

// Decision is the structured output of the decision engine. Exactly one
// variant is active; construction through the New* functions guarantees the
// "all fields empty" ambiguity of loosely-typed decision objects cannot occur.
type Decision struct {
	kind   DecisionKind
	search SearchRequest
	text   string
}

// NewSearchDecision builds a search-variant decision.
func NewSearchDecision(req SearchRequest) Decision {
	return Decision{kind: DecisionSearch, search: req}
}

// NewClarifyDecision builds a clarifying-question decision.
func NewClarifyDecision(question string) Decision {
	return Decision{kind: DecisionClarify, text: question}
}

// NewReplyDecision builds a direct-reply decision. Text may be empty.
func NewReplyDecision(text string) Decision {
	return Decision{kind: DecisionReply, text: text}
}

// Kind returns the active variant.
func (d Decision) Kind() DecisionKind { return d.kind }

// Search returns the lookup request. Meaningful only for DecisionSearch.
func (d Decision) Search() SearchRequest { return d.search }

// Text returns the clarification or reply text for the non-search variants.
func (d Decision) Text() string { return d.text }
