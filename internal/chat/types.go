package chat

import "time"

// Phase places a moment relative to the match it belongs to
type Phase string

const (
	PhaseBefore  Phase = "BEFORE_MATCH"
	PhaseDuring  Phase = "DURING_MATCH"
	PhaseAfter   Phase = "AFTER_MATCH"
	PhaseUnknown Phase = ""
)

// Message is one captured chat line
type Message struct {
	Timestamp time.Time `json:"datetime"`
	Author    string    `json:"author_name"`
	Text      string    `json:"text"`
	Chatbot   bool      `json:"chatbot"`
	Personal  bool      `json:"personal_msg"`
	Command   bool      `json:"command"`
	Phase     Phase     `json:"timecategory"`
	MatchID   string    `json:"matchId"`
}

// Conversational reports whether the message came from a viewer talking in
// chat rather than a bot, a whisper or a slash command.
func (m Message) Conversational() bool {
	return !m.Chatbot && !m.Personal && !m.Command
}

// PhaseLabel implements Phased
func (m Message) PhaseLabel() Phase { return m.Phase }

// Bucket is the chat volume of one second
type Bucket struct {
	Second time.Time `json:"second"`
	Count  int       `json:"count_messages"`
	Phase  Phase     `json:"timecategory"`
}

// PhaseLabel implements Phased
func (b Bucket) PhaseLabel() Phase { return b.Phase }

// Phased is anything carrying a phase label
type Phased interface {
	PhaseLabel() Phase
}

// PhaseCounts is the number of rows per phase
type PhaseCounts struct {
	Before int `json:"before"`
	During int `json:"during"`
	After  int `json:"after"`
}
