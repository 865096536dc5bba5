package domain

// ExportSource mirrors the source shape clients receive from a poll, so a
// finished result can be posted back unchanged.
type ExportSource struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Snippet     string `json:"snippet"`
	Screenshot  string `json:"screenshot,omitempty"`
	Reliability *int   `json:"reliability,omitempty"`
}

type ExportRequest struct {
	TaskID  string         `json:"task_id"`
	Query   string         `json:"query"`
	Summary string         `json:"summary"`
	Sources []ExportSource `json:"sources"`
}

type ExportResult struct {
	URL string `json:"url"`
}

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatRequest struct {
	History []ChatMessage `json:"history"`
	Query   string        `json:"query"`
}

type ChatReply struct {
	Reply string `json:"reply"`
}
