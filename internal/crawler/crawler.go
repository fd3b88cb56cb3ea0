// Package crawler recognises link-preview bots by their User-Agent.
package crawler

import (
	"net/http"
	"strings"
)

// DefaultAgents are the preview bots recognised when none are configured.
var DefaultAgents = []string{
	"Discordbot",
	"facebookexternalhit",
	"Slackbot",
	"Twitterbot",
}

// Detector matches User-Agent strings against a list of bot identifiers.
// Matching is a case-insensitive substring test.
type Detector struct {
	needles []string
}

// NewDetector builds a detector for agents. Blank entries are ignored and an
// empty list falls back to DefaultAgents.
func NewDetector(agents []string) *Detector {
	needles := make([]string, 0, len(agents))
	for _, a := range agents {
		a = strings.ToLower(strings.TrimSpace(a))
		if a != "" {
			needles = append(needles, a)
		}
	}
	if len(needles) == 0 {
		for _, a := range DefaultAgents {
			needles = append(needles, strings.ToLower(a))
		}
	}
	return &Detector{needles: needles}
}

// IsCrawler reports whether userAgent belongs to a known preview bot.
func (d *Detector) IsCrawler(userAgent string) bool {
	if userAgent == "" {
		return false
	}
	ua := strings.ToLower(userAgent)
	for _, n := range d.needles {
		if strings.Contains(ua, n) {
			return true
		}
	}
	return false
}

// IsCrawlerRequest is IsCrawler applied to the request's User-Agent header.
func (d *Detector) IsCrawlerRequest(r *http.Request) bool {
	return d.IsCrawler(r.UserAgent())
}
