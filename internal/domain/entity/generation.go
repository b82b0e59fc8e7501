package entity

import "time"

// Generation records one persisted draft produced by the generation
// pipeline, including the knobs used and the heuristic score breakdown.
type Generation struct {
	ID             string
	UserID         string
	ArticleID      string // empty when the source was pasted text or a file
	Model          string // resolved provider model id
	Prompt         string // knob summary, e.g. "persona=the-expert, tone=direct"
	DraftText      string
	Persona        string
	Tone           string
	Score          int
	ScoreBreakdown map[string]int
	CreatedAt      time.Time
	UpdatedAt      time.Time
	DeletedAt      *time.Time
}
