package service

import (
	"strings"

	"github.com/timmy/legoreviews/internal/platform"
)

// Rule names, logged as the rejection reason.
const (
	RuleAccessible      = "accessible"
	RuleMinViews        = "min_views"
	RuleMinDuration     = "min_duration"
	RuleTitleToken      = "title_token"
	RuleCaptionLanguage = "caption_language"
)

// Rule is one admissibility predicate over a search entry.
type Rule struct {
	Name  string
	Admit func(entry *platform.SearchEntry) bool
}

// Rules is an ordered admissibility chain.
type Rules []Rule

// Evaluate runs the chain in order and stops at the first rule that rejects.
// Returns:
//   - string: name of the rejecting rule, or "" when the entry is admitted.
func (rs Rules) Evaluate(entry *platform.SearchEntry) string {
	for _, r := range rs {
		if !r.Admit(entry) {
			return r.Name
		}
	}
	return ""
}

// AdmissionConfig holds the admissibility thresholds.
type AdmissionConfig struct {
	MinViews         int64
	MinDuration      int
	TitleToken       string
	CaptionLanguages []string
}

// NewAdmissionRules builds the standard chain: accessible, minimum views,
// minimum duration, title token and caption language, in that order.
func NewAdmissionRules(cfg *AdmissionConfig) Rules {
	token := strings.ToLower(cfg.TitleToken)
	languages := append([]string(nil), cfg.CaptionLanguages...)

	return Rules{
		{
			Name: RuleAccessible,
			Admit: func(e *platform.SearchEntry) bool {
				return !e.Unavailable && e.AgeLimit == 0
			},
		},
		{
			Name: RuleMinViews,
			Admit: func(e *platform.SearchEntry) bool {
				return e.ViewCount >= cfg.MinViews
			},
		},
		{
			Name: RuleMinDuration,
			Admit: func(e *platform.SearchEntry) bool {
				return e.Duration != nil && *e.Duration >= cfg.MinDuration
			},
		},
		{
			Name: RuleTitleToken,
			Admit: func(e *platform.SearchEntry) bool {
				return strings.Contains(strings.ToLower(e.Title), token)
			},
		},
		{
			Name: RuleCaptionLanguage,
			Admit: func(e *platform.SearchEntry) bool {
				for _, lang := range languages {
					if e.AutomaticCaptions.Has(lang) {
						return true
					}
				}
				return false
			},
		},
	}
}
