package domain

import "time"

// Turn-entry prefixes used in session transcripts. Entries alternate user
// then agent, appended in pairs once per completed request.
const (
	UserTurnPrefix  = "User: "
	AgentTurnPrefix = "Agent: "
)

// Transcript is the ordered per-session turn history.
type Transcript struct {
	SessionID string
	Entries   []string
	UpdatedAt time.Time
}

// RecordExchange appends one completed user/agent exchange.
func (t *Transcript) RecordExchange(userText, agentText string) {
	t.Entries = append(t.Entries, UserTurnPrefix+userText, AgentTurnPrefix+agentText)
	t.UpdatedAt = time.Now()
}

// Recent returns the last n entries in original order.
func (t *Transcript) Recent(n int) []string {
	if n >= len(t.Entries) {
		return t.Entries
	}
	return t.Entries[len(t.Entries)-n:]
}
