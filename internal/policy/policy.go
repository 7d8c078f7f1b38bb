// Package policy holds the pure blocking rules: time-windowed RuleSet
// evaluation and the per-browser strategies (process names, platforms).
package policy

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/eliteGoblin/focusd/browser_guard/internal/domain"
)

// TimeOfDayLayout is the minute-resolution wall clock format used by periods.
const TimeOfDayLayout = "15:04"

// DefaultSeedDomain is blocked all day by the built-in fallback RuleSet.
const DefaultSeedDomain = "facebook.com"

const reasonNoMatch = "No matching rules found"

// NewRuleSet returns a RuleSet that owns a deep copy of periods.
func NewRuleSet(periods []domain.BlockPeriod) domain.RuleSet {
	out := make([]domain.BlockPeriod, len(periods))
	for i, p := range periods {
		out[i] = domain.BlockPeriod{
			Start:   p.Start,
			End:     p.End,
			Domains: append([]string(nil), p.Domains...),
		}
	}
	return domain.RuleSet{Periods: out}
}

// DefaultRuleSet is the fallback used when the remote blocklist is unavailable:
// one period covering the whole day that blocks seedDomain.
func DefaultRuleSet(seedDomain string) domain.RuleSet {
	if seedDomain == "" {
		seedDomain = DefaultSeedDomain
	}
	return NewRuleSet([]domain.BlockPeriod{
		{Start: "00:00", End: "23:59", Domains: []string{seedDomain}},
	})
}

// wirePeriod decodes domains leniently so a malformed list only disables its own period.
type wirePeriod struct {
	Start   string          `json:"start"`
	End     string          `json:"end"`
	Domains json.RawMessage `json:"domains"`
}

type wireRuleSet struct {
	Periods *[]wirePeriod `json:"periods"`
}

// ParseRuleSet decodes a blocklist response body ({"periods": [...]}).
// A missing or null "periods" field is an error; an empty list is not.
// A missing or malformed "domains" field yields a period with no domains.
func ParseRuleSet(data []byte) (domain.RuleSet, error) {
	var wire wireRuleSet
	if err := json.Unmarshal(data, &wire); err != nil {
		return domain.RuleSet{}, fmt.Errorf("failed to parse blocklist: %w", err)
	}
	if wire.Periods == nil {
		return domain.RuleSet{}, fmt.Errorf(`failed to parse blocklist: missing "periods"`)
	}

	periods := make([]domain.BlockPeriod, 0, len(*wire.Periods))
	for _, wp := range *wire.Periods {
		var domains []string
		if len(wp.Domains) > 0 {
			if err := json.Unmarshal(wp.Domains, &domains); err != nil {
				domains = nil
			}
		}
		periods = append(periods, domain.BlockPeriod{
			Start:   wp.Start,
			End:     wp.End,
			Domains: domains,
		})
	}
	return domain.RuleSet{Periods: periods}, nil
}

// TimeOfDay formats t as the "HH:MM" value compared against periods.
func TimeOfDay(t time.Time) string {
	return t.Format(TimeOfDayLayout)
}

// IsActive reports whether the period covers currentTime.
// Comparison is lexicographic, so Start > End never matches.
func IsActive(p domain.BlockPeriod, currentTime string) bool {
	return p.Start <= currentTime && currentTime <= p.End
}

// ActivePeriod returns the first period covering now, or nil.
func ActivePeriod(rs domain.RuleSet, now time.Time) *domain.BlockPeriod {
	cur := TimeOfDay(now)
	for _, p := range rs.Periods {
		if IsActive(p, cur) {
			period := p
			return &period
		}
	}
	return nil
}

// Evaluate checks url against rs at now.
// Periods are scanned in declaration order and the first period/domain pair
// whose domain is a substring of url wins.
func Evaluate(rs domain.RuleSet, url string, now time.Time) domain.Decision {
	cur := TimeOfDay(now)
	decision := domain.Decision{
		URL:         url,
		CurrentTime: cur,
		Reason:      reasonNoMatch,
	}

	for _, p := range rs.Periods {
		if !IsActive(p, cur) {
			continue
		}
		if decision.ActivePeriod == nil {
			active := p
			decision.ActivePeriod = &active
		}
		for _, d := range p.Domains {
			if strings.TrimSpace(d) == "" {
				continue
			}
			if strings.Contains(url, d) {
				period := p
				decision.Blocked = true
				decision.ActivePeriod = &period
				decision.MatchedRule = &domain.MatchedRule{Period: period, Domain: d}
				decision.Reason = fmt.Sprintf("URL contains blocked domain '%s' during active period %s-%s",
					d, p.Start, p.End)
				return decision
			}
		}
	}

	return decision
}
