package models

// Todo is a checklist item kept next to the journal. It has no relation to trades.
type Todo struct {
	ID        int64  `json:"id"`
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
}
