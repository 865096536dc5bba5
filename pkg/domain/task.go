package domain

import "time"

type Stage string

const (
	StageStarting    Stage = "starting"
	StageSearching   Stage = "searching"
	StageVisiting    Stage = "visiting"
	StageSummarizing Stage = "summarizing"
	StageDone        Stage = "done"
)

// Human-readable status labels shown to pollers.
const (
	StatusStarting    = "Starting..."
	StatusSearching   = "Searching web..."
	StatusSummarizing = "Summarizing with LLM..."
	StatusDone        = "Done"
)

type Task struct {
	ID     string `json:"id"`
	Query  string `json:"query"`
	Status string `json:"status"`
	Stage  Stage  `json:"stage"`
	// Steps is append-only; entries are never reordered or removed.
	Steps       []string        `json:"steps"`
	Result      *ResearchResult `json:"result"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
	CompletedAt *time.Time      `json:"completedAt,omitempty"`

	// W3C trace context of the submitting request.
	TraceParent string `json:"-"`
	TraceState  string `json:"-"`
}

type ResearchResult struct {
	Summary string         `json:"summary"`
	Sources []SourceRecord `json:"sources"`
}

// Done reports whether the task reached its terminal stage.
func (t *Task) Done() bool { return t.Stage == StageDone }

// Clone returns a deep copy safe to hand to readers.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	out := *t
	out.Steps = append(make([]string, 0, len(t.Steps)), t.Steps...)
	if t.CompletedAt != nil {
		ts := *t.CompletedAt
		out.CompletedAt = &ts
	}
	if t.Result != nil {
		res := ResearchResult{
			Summary: t.Result.Summary,
			Sources: append(make([]SourceRecord, 0, len(t.Result.Sources)), t.Result.Sources...),
		}
		out.Result = &res
	}
	return &out
}
