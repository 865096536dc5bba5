// Package reliability scores fetched sources on a 0-100 scale.
package reliability

import (
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/lemonbanan4/ai-web-research/pkg/domain"

	"golang.org/x/net/publicsuffix"
)

const (
	MinTextChars   = 800
	LongTextChars  = 2000
	VeryLongChars  = 6000
	baseScore      = 50
	lengthBonus    = 10
	trustedBonus   = 20
	suffixBonus    = 10
	httpsBonus     = 5
	plainHTTPMalus = 10
)

var (
	DefaultTrusted = []string{
		"wikipedia.org",
		"nature.com",
		"reuters.com",
		"bbc.co.uk",
		"bbc.com",
		"aftonbladet.se",
		"flashscore.com",
	}
	DefaultTrustedSuffixes = []string{"gov", "gov.uk", "edu"}
	DefaultBlacklisted     = []string{
		"clickbait.com",
		"fake-news.net",
		"rumorsite.org",
	}
)

type Scorer struct {
	trusted         map[string]struct{}
	trustedSuffixes []string
	blacklisted     map[string]struct{}
}

// NewScorer builds a scorer; nil lists fall back to the defaults.
func NewScorer(trusted, blacklisted []string) *Scorer {
	if trusted == nil {
		trusted = DefaultTrusted
	}
	if blacklisted == nil {
		blacklisted = DefaultBlacklisted
	}
	return &Scorer{
		trusted:         toSet(trusted),
		trustedSuffixes: DefaultTrustedSuffixes,
		blacklisted:     toSet(blacklisted),
	}
}

var defaultScorer = NewScorer(nil, nil)

// Score rates rawURL and text with the default lists.
func Score(rawURL, text string) int {
	return defaultScorer.Score(rawURL, text)
}

func (s *Scorer) ScoreRecord(r domain.SourceRecord) int {
	return s.Score(r.URL, r.Text)
}

func (s *Scorer) Score(rawURL, text string) int {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return 0
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return 0
	}
	host := strings.ToLower(strings.TrimSuffix(u.Hostname(), "."))
	registered, _ := publicsuffix.EffectiveTLDPlusOne(host)
	suffix, _ := publicsuffix.PublicSuffix(host)

	if _, bad := s.blacklisted[registered]; bad && registered != "" {
		return 0
	}

	n := utf8.RuneCountInString(strings.TrimSpace(text))
	if n < MinTextChars {
		return 0
	}

	score := baseScore
	if n > LongTextChars {
		score += lengthBonus
	}
	if n > VeryLongChars {
		score += lengthBonus
	}
	if _, ok := s.trusted[registered]; ok && registered != "" {
		score += trustedBonus
	}
	if s.trustedSuffix(suffix) {
		score += suffixBonus
	}
	if strings.EqualFold(u.Scheme, "https") {
		score += httpsBonus
	} else {
		score -= plainHTTPMalus
	}
	return clamp(score)
}

// trustedSuffix also accepts private PSL entries under a trusted suffix,
// e.g. service.gov.uk.
func (s *Scorer) trustedSuffix(suffix string) bool {
	for _, t := range s.trustedSuffixes {
		if suffix == t || strings.HasSuffix(suffix, "."+t) {
			return true
		}
	}
	return false
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func toSet(items []string) map[string]struct{} {
	out := make(map[string]struct{}, len(items))
	for _, it := range items {
		it = strings.ToLower(strings.TrimSpace(it))
		if it != "" {
			out[it] = struct{}{}
		}
	}
	return out
}
