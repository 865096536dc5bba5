package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type client struct {
	baseURL    string
	httpClient *http.Client
}

type sourceView struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Snippet     string `json:"snippet"`
	Byline      string `json:"byline,omitempty"`
	Screenshot  string `json:"screenshot,omitempty"`
	Reliability int    `json:"reliability"`
}

type taskResp struct {
	ID     string   `json:"id"`
	Query  string   `json:"query"`
	Status string   `json:"status"`
	Stage  string   `json:"stage"`
	Steps  []string `json:"steps"`
	Result *struct {
		Summary string       `json:"summary"`
		Sources []sourceView `json:"sources"`
	} `json:"result"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// apiError is a non-2xx reply from the research API.
type apiError struct {
	Status int
	Body   string
}

func (e *apiError) Error() string {
	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal([]byte(e.Body), &payload) == nil && payload.Error != "" {
		return fmt.Sprintf("error (%d): %s", e.Status, payload.Error)
	}
	return fmt.Sprintf("error (%d): %s", e.Status, strings.TrimSpace(e.Body))
}

func newClient(baseURL string) *client {
	return &client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 150 * time.Second},
	}
}

func (c *client) request(ctx context.Context, method, path string, body any, out any) error {
	var buf io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		buf = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, buf)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		return &apiError{Status: resp.StatusCode, Body: string(raw)}
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(raw, out)
}

func (c *client) submit(ctx context.Context, query string) (string, error) {
	var out struct {
		TaskID string `json:"task_id"`
	}
	if err := c.request(ctx, http.MethodPost, "/research", map[string]string{"query": query}, &out); err != nil {
		return "", err
	}
	return out.TaskID, nil
}

func (c *client) get(ctx context.Context, id string) (*taskResp, error) {
	var out taskResp
	if err := c.request(ctx, http.MethodGet, "/research/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// export posts a finished task's result and returns the report URL.
func (c *client) export(ctx context.Context, task *taskResp) (string, error) {
	if task.Result == nil {
		return "", fmt.Errorf("task %s has no result yet", task.ID)
	}
	type exportSource struct {
		URL         string `json:"url"`
		Title       string `json:"title"`
		Snippet     string `json:"snippet"`
		Screenshot  string `json:"screenshot,omitempty"`
		Reliability *int   `json:"reliability,omitempty"`
	}
	sources := make([]exportSource, 0, len(task.Result.Sources))
	for _, s := range task.Result.Sources {
		rel := s.Reliability
		sources = append(sources, exportSource{URL: s.URL, Title: s.Title, Snippet: s.Snippet, Screenshot: s.Screenshot, Reliability: &rel})
	}
	body := map[string]any{
		"task_id": task.ID,
		"query":   task.Query,
		"summary": task.Result.Summary,
		"sources": sources,
	}
	var out struct {
		URL string `json:"url"`
	}
	if err := c.request(ctx, http.MethodPost, "/export_pdf", body, &out); err != nil {
		return "", err
	}
	return c.baseURL + out.URL, nil
}

func (c *client) download(ctx context.Context, rawURL string, w io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return &apiError{Status: resp.StatusCode, Body: string(raw)}
	}
	_, err = io.Copy(w, resp.Body)
	return err
}

func (c *client) chat(ctx context.Context, history []chatMessage, query string) (string, error) {
	var out struct {
		Reply string `json:"reply"`
	}
	body := map[string]any{"history": history, "query": query}
	if err := c.request(ctx, http.MethodPost, "/chat", body, &out); err != nil {
		return "", err
	}
	return out.Reply, nil
}
