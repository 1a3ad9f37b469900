package moderation

import "strings"

// DefaultBannedTerms seeds the flagger when no BANNED_TERMS configuration is
// provided. The real moderation pipeline maintains this list elsewhere.
var DefaultBannedTerms = []string{
	"adult content",
	"counterfeit",
	"hacking service",
	"money laundering",
}

// Flagger decides whether submitted project text carries a banned-content
// signal. Flagged projects are created in hold instead of open.
type Flagger struct {
	terms []string
}

// NewFlagger builds a flagger from a comma-separated term list; empty input
// uses the defaults.
func NewFlagger(csv string) *Flagger {
	if strings.TrimSpace(csv) == "" {
		return &Flagger{terms: DefaultBannedTerms}
	}
	var terms []string
	for _, t := range strings.Split(csv, ",") {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			terms = append(terms, t)
		}
	}
	return &Flagger{terms: terms}
}

// Flagged reports whether the text contains any banned term.
func (f *Flagger) Flagged(text string) bool {
	lowered := strings.ToLower(text)
	for _, term := range f.terms {
		if strings.Contains(lowered, term) {
			return true
		}
	}
	return false
}
