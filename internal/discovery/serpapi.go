package discovery

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/lemonbanan4/ai-web-research/pkg/domain"
)

const serpAPIEndpoint = "https://serpapi.com/search.json"

// SerpAPI returns Google organic results through serpapi.com.
type SerpAPI struct {
	client   *http.Client
	endpoint string
	apiKey   string
}

type serpResponse struct {
	Error          string `json:"error"`
	OrganicResults []struct {
		Link string `json:"link"`
	} `json:"organic_results"`
}

func NewSerpAPI(client *http.Client, endpoint, apiKey string) *SerpAPI {
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	if endpoint == "" {
		endpoint = serpAPIEndpoint
	}
	return &SerpAPI{client: client, endpoint: endpoint, apiKey: apiKey}
}

func (s *SerpAPI) Name() string { return "serpapi" }

func (s *SerpAPI) Discover(ctx context.Context, query string, max int) (urls []string, err error) {
	defer func() { observe(s.Name(), err) }()

	if max <= 0 {
		max = DefaultMaxResults
	}
	params := url.Values{}
	params.Set("engine", "google")
	params.Set("q", query)
	params.Set("num", strconv.Itoa(max))
	params.Set("api_key", s.apiKey)

	var body serpResponse
	if err := getJSON(ctx, s.client, s.endpoint+"?"+params.Encode(), &body); err != nil {
		return nil, &domain.ProviderError{Provider: s.Name(), Err: err}
	}
	// SerpAPI reports an empty result set through the error field.
	if body.Error != "" && len(body.OrganicResults) == 0 {
		if body.Error == "Google hasn't returned any results for this query." {
			return []string{}, nil
		}
		return nil, &domain.ProviderError{Provider: s.Name(), Err: errors.New(body.Error)}
	}

	found := make([]string, 0, len(body.OrganicResults))
	for _, r := range body.OrganicResults {
		found = append(found, r.Link)
	}
	return dedupe(found, max), nil
}
