package scan

import (
	"context"
	"strings"

	ahocorasick "github.com/BobuSumisu/aho-corasick"
	"github.com/fatih/semgroup"
	"golang.org/x/exp/maps"

	"github.com/Ncn914491/blockscan"
	"github.com/Ncn914491/blockscan/config"
)

type Scanner struct {
	Config *config.Config

	// prefilter is an aho-corasick trie used for efficient string matching
	// given the set of keywords from the rules in the config
	prefilter ahocorasick.Trie

	// ignore holds fingerprints loaded from .blockscanignore files
	ignore map[string]struct{}

	// Sema (https://github.com/fatih/semgroup) controls the concurrency
	Sema *semgroup.Group
}

func NewScanner(ctx context.Context, cfg *config.Config, concurrency int) *Scanner {
	return &Scanner{
		Config:    cfg,
		prefilter: *ahocorasick.NewTrieBuilder().AddStrings(maps.Keys(cfg.Keywords)).Build(),
		Sema:      semgroup.NewGroup(ctx, int64(concurrency)),
	}
}

// SetIgnore installs the set of fingerprints to drop from scan results.
func (s *Scanner) SetIgnore(ignore map[string]struct{}) {
	s.ignore = ignore
}

// IsIgnored reports whether a fingerprint appears in the loaded ignore files.
func (s *Scanner) IsIgnored(fingerprint string) bool {
	_, ok := s.ignore[fingerprint]
	return ok
}

// ScanFragment scans a fragment against every applicable rule and returns the
// raw matches. No allowlist filtering happens here.
func (s *Scanner) ScanFragment(ctx context.Context, fragment blockscan.Fragment) ([]blockscan.Match, error) {
	retMatches := []blockscan.Match{}

	// Build the set of rules to check based on keyword matches.
	rulesToCheck := make(map[string]struct{})
	normalizedRaw := strings.ToLower(fragment.Raw)
	for _, m := range s.prefilter.MatchString(normalizedRaw) {
		keyword := normalizedRaw[m.Pos() : int(m.Pos())+len(m.Match())]
		for _, ruleID := range s.Config.KeywordToRules[keyword] {
			rulesToCheck[ruleID] = struct{}{}
		}
	}

	// Always check rules that have no keywords.
	for _, ruleID := range s.Config.NoKeywordRules {
		rulesToCheck[ruleID] = struct{}{}
	}

	for ruleID := range rulesToCheck {
		select {
		case <-ctx.Done():
			return retMatches, ctx.Err()
		default:
			rule := s.Config.Rules[ruleID]
			retMatches = append(retMatches, scanRule(fragment, rule)...)
		}
	}

	return retMatches, nil
}

func scanRule(fragment blockscan.Fragment, r config.Rule) []blockscan.Match {
	var retMatches []blockscan.Match
	if r.Path != nil {
		if r.Regex == nil {
			// Path _only_ rule
			if r.Path.MatchString(fragment.Path) {
				return append(retMatches, blockscan.Match{
					RuleID:    r.RuleID,
					NoPattern: true,
				})
			}
			return retMatches
		}
		// If both path and regex are set the path gates the regex: no path
		// match, no content check.
		if !r.Path.MatchString(fragment.Path) {
			return retMatches
		}
	}

	if r.Regex == nil {
		return retMatches
	}

	for _, m := range r.Regex.FindAllStringIndex(fragment.Raw, -1) {
		matched := strings.Trim(fragment.Raw[m[0]:m[1]], "\n")
		// Drop leading/trailing newlines the regex may have swallowed.
		m[1] = m[0] + len(matched)

		retMatches = append(retMatches, blockscan.Match{
			RuleID:      r.RuleID,
			MatchStart:  m[0],
			MatchEnd:    m[1],
			MatchString: matched,
		})
	}

	return retMatches
}
