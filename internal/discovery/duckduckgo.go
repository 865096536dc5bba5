package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/lemonbanan4/ai-web-research/pkg/domain"
)

const duckDuckGoEndpoint = "https://api.duckduckgo.com/"

// DuckDuckGo queries the Instant Answer API. It returns the abstract URL and
// related topic links rather than a full result page, and needs no key.
type DuckDuckGo struct {
	client   *http.Client
	endpoint string
}

type ddgTopic struct {
	FirstURL string     `json:"FirstURL"`
	Topics   []ddgTopic `json:"Topics"`
}

type ddgResponse struct {
	AbstractURL   string     `json:"AbstractURL"`
	RelatedTopics []ddgTopic `json:"RelatedTopics"`
}

func NewDuckDuckGo(client *http.Client, endpoint string) *DuckDuckGo {
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	if endpoint == "" {
		endpoint = duckDuckGoEndpoint
	}
	return &DuckDuckGo{client: client, endpoint: endpoint}
}

func (d *DuckDuckGo) Name() string { return "duckduckgo" }

func (d *DuckDuckGo) Discover(ctx context.Context, query string, max int) (urls []string, err error) {
	defer func() { observe(d.Name(), err) }()

	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("no_redirect", "1")
	params.Set("no_html", "1")

	var body ddgResponse
	if err := getJSON(ctx, d.client, d.endpoint+"?"+params.Encode(), &body); err != nil {
		return nil, &domain.ProviderError{Provider: d.Name(), Err: err}
	}

	var found []string
	if body.AbstractURL != "" {
		found = append(found, body.AbstractURL)
	}
	for _, item := range body.RelatedTopics {
		if item.FirstURL != "" {
			found = append(found, item.FirstURL)
			continue
		}
		for _, sub := range item.Topics {
			if sub.FirstURL != "" {
				found = append(found, sub.FirstURL)
			}
		}
	}
	return dedupe(found, max), nil
}

func getJSON(ctx context.Context, client *http.Client, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "ai-web-research/1.0")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &statusError{Code: resp.StatusCode, Body: string(b)}
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4<<20)).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
