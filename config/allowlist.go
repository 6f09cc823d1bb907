package config

import (
	"errors"
	"fmt"
	"strings"

	ahocorasick "github.com/BobuSumisu/aho-corasick"
	"github.com/Ncn914491/blockscan/regexp"
	"golang.org/x/exp/maps"
)

// ResourceMatcher matches a resource metadata key against a regex pattern.
// Parsed from "source:key:pattern" strings, e.g.:
//   - "file:path:.*/generated/.*"
//   - "*:path:(^|/)build/"
type ResourceMatcher struct {
	Source  string // empty means wildcard (match any source)
	Key     string
	Pattern *regexp.Regexp
}

// ParseResourceMatcher parses a resource matcher string. The source part may
// be "*" to match any source.
func ParseResourceMatcher(s string) (*ResourceMatcher, error) {
	parts := strings.SplitN(s, ":", 3)
	if len(parts) != 3 {
		return nil, fmt.Errorf("invalid resource matcher %q: expected \"source:key:pattern\"", s)
	}
	source, key, pattern := parts[0], parts[1], parts[2]
	if key == "" {
		return nil, fmt.Errorf("invalid resource matcher %q: key cannot be empty", s)
	}
	if pattern == "" {
		return nil, fmt.Errorf("invalid resource matcher %q: pattern cannot be empty", s)
	}
	if source == "*" {
		source = ""
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid resource matcher %q: %w", s, err)
	}
	return &ResourceMatcher{Source: source, Key: key, Pattern: re}, nil
}

// Allowlist allows a rule (or the whole config, when global) to be ignored
// for specific regexes, paths, or resources.
type Allowlist struct {
	// Short human readable description of the allowlist.
	Description string

	// Paths is a slice of path regular expressions that are allowed to be ignored.
	Paths []*regexp.Regexp

	// Can be `match` or `line`.
	//
	// If `match` the _Regexes_ will be tested against the match of the _Rule.Regex_.
	//
	// If `line` the _Regexes_ will be tested against the entire line.
	RegexTarget string

	// Regexes is a slice of content regular expressions that are allowed to be ignored.
	Regexes []*regexp.Regexp

	// StopWords is a slice of stop words that are allowed to be ignored.
	// Tested against the matched text, case-insensitively.
	StopWords []string

	// Resources is a slice of resource matchers in "source:key:pattern" format.
	// These match against Resource.Metadata values using OR logic.
	Resources []*ResourceMatcher

	// validated tracks whether Validate() has been called.
	validated bool

	regexPat     *regexp.Regexp
	stopwordTrie *ahocorasick.Trie
}

func (a *Allowlist) Validate() error {
	if a.validated {
		return nil
	}

	// Disallow empty allowlists.
	if len(a.Paths) == 0 &&
		len(a.Regexes) == 0 &&
		len(a.StopWords) == 0 &&
		len(a.Resources) == 0 {
		return errors.New("must contain at least one check for: paths, regexes, stopwords, or resources")
	}

	if len(a.StopWords) > 0 {
		unique := make(map[string]struct{})
		for _, stopWord := range a.StopWords {
			unique[strings.ToLower(stopWord)] = struct{}{}
		}
		values := maps.Keys(unique)
		a.StopWords = values
		a.stopwordTrie = ahocorasick.NewTrieBuilder().AddStrings(values).Build()
	}

	// Combine content regexes into a single expression.
	if len(a.Regexes) > 0 {
		a.regexPat = joinRegexOr(a.Regexes)
	}

	// Paths become wildcard-source resource matchers on the "path" key so
	// all path filtering flows through resource matching.
	for _, p := range a.Paths {
		a.Resources = append(a.Resources, &ResourceMatcher{Key: "path", Pattern: p})
	}

	a.validated = true
	return nil
}

// RegexAllowed returns true if the target text is allowed to be ignored.
func (a *Allowlist) RegexAllowed(target string) bool {
	if a == nil || target == "" || a.regexPat == nil {
		return false
	}
	return a.regexPat.MatchString(target)
}

// StopWordAllowed returns true if the target contains any stop word.
func (a *Allowlist) StopWordAllowed(target string) bool {
	if a == nil || target == "" || a.stopwordTrie == nil {
		return false
	}
	return len(a.stopwordTrie.MatchString(strings.ToLower(target))) > 0
}

// ResourceAllowed returns true if any resource matcher matches (OR logic).
func (a *Allowlist) ResourceAllowed(source string, metadata map[string]string) bool {
	if a == nil || len(a.Resources) == 0 || metadata == nil {
		return false
	}
	for _, m := range a.Resources {
		if m.Source != "" && m.Source != source {
			continue
		}
		if val, ok := metadata[m.Key]; ok && m.Pattern.MatchString(val) {
			return true
		}
	}
	return false
}

// ResourceKeyAllowed returns true if any resource matcher matches the given
// source and single key/value pair. Useful for early-exit checks during
// enumeration when full metadata is not yet available.
func (a *Allowlist) ResourceKeyAllowed(source, key, value string) bool {
	if a == nil || len(a.Resources) == 0 || value == "" {
		return false
	}
	for _, m := range a.Resources {
		if m.Source != "" && m.Source != source {
			continue
		}
		if m.Key == key && m.Pattern.MatchString(value) {
			return true
		}
	}
	return false
}

// joinRegexOr combines regexes into one non-capturing alternation.
func joinRegexOr(patterns []*regexp.Regexp) *regexp.Regexp {
	var sb strings.Builder
	for i, p := range patterns {
		if i > 0 {
			sb.WriteByte('|')
		}
		sb.WriteString("(?:")
		sb.WriteString(p.String())
		sb.WriteByte(')')
	}
	return regexp.MustCompile(sb.String())
}
