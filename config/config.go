package config

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	goversion "github.com/hashicorp/go-version"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/Ncn914491/blockscan"
	"github.com/Ncn914491/blockscan/logging"
	"github.com/Ncn914491/blockscan/regexp"
	"github.com/Ncn914491/blockscan/version"
)

//go:embed blockscan.toml
var DefaultConfig string

// RawConfig is the TOML shape of a blockscan config, before translation.
// Decoded by viper (user configs) and koanf (the embedded default).
type RawConfig struct {
	Title           string         `mapstructure:"title"`
	RequiredVersion string         `mapstructure:"required_version"`
	Rules           []RawRule      `mapstructure:"rules"`
	Allowlists      []RawAllowlist `mapstructure:"allowlists"`
}

type RawRule struct {
	ID          string         `mapstructure:"id"`
	Description string         `mapstructure:"description"`
	Severity    string         `mapstructure:"severity"`
	Regex       string         `mapstructure:"regex"`
	Path        string         `mapstructure:"path"`
	Keywords    []string       `mapstructure:"keywords"`
	Tags        []string       `mapstructure:"tags"`
	Report      RawReport      `mapstructure:"report"`
	Allowlists  []RawAllowlist `mapstructure:"allowlists"`
}

// RawReport carries the fixed lines a verification rule prints. A rule with
// report messages is a verification rule: `blockscan verify` prints exactly
// one of the two lines for it.
type RawReport struct {
	Found    string `mapstructure:"found"`
	NotFound string `mapstructure:"not_found"`
}

type RawAllowlist struct {
	Description string   `mapstructure:"description"`
	RegexTarget string   `mapstructure:"regex_target"`
	Regexes     []string `mapstructure:"regexes"`
	Paths       []string `mapstructure:"paths"`
	StopWords   []string `mapstructure:"stopwords"`
	Resources   []string `mapstructure:"resources"`
}

// Rule is a compiled detection rule.
type Rule struct {
	RuleID      string
	Description string
	Severity    string
	Regex       *regexp.Regexp
	Path        *regexp.Regexp
	Keywords    []string
	Tags        []string
	Report      ReportMessages
	Allowlists  []*Allowlist
}

type ReportMessages struct {
	Found    string
	NotFound string
}

// IsVerification reports whether the rule carries fixed report lines.
func (r Rule) IsVerification() bool {
	return r.Report.Found != "" || r.Report.NotFound != ""
}

// Config is the translated, ready-to-scan configuration.
type Config struct {
	Title string
	// Path is the config file path the CLI loaded, empty for the default.
	Path string

	Rules map[string]Rule
	// RuleOrder preserves config order so verify output is deterministic.
	RuleOrder []string

	// Keywords is a set of all rule keywords, used to seed the scanner's
	// prefilter trie.
	Keywords       map[string]struct{}
	KeywordToRules map[string][]string
	NoKeywordRules []string

	Allowlists []*Allowlist
}

// Translate compiles a RawConfig into a Config.
func (rc *RawConfig) Translate() (Config, error) {
	if err := checkRequiredVersion(rc.RequiredVersion); err != nil {
		return Config{}, err
	}

	cfg := Config{
		Title:          rc.Title,
		Rules:          make(map[string]Rule),
		Keywords:       make(map[string]struct{}),
		KeywordToRules: make(map[string][]string),
	}

	for _, rr := range rc.Rules {
		rule, err := translateRule(rr)
		if err != nil {
			return Config{}, err
		}
		if _, exists := cfg.Rules[rule.RuleID]; exists {
			return Config{}, fmt.Errorf("rule %q defined more than once", rule.RuleID)
		}

		cfg.Rules[rule.RuleID] = rule
		cfg.RuleOrder = append(cfg.RuleOrder, rule.RuleID)
		if len(rule.Keywords) == 0 {
			cfg.NoKeywordRules = append(cfg.NoKeywordRules, rule.RuleID)
		}
		for _, kw := range rule.Keywords {
			cfg.Keywords[kw] = struct{}{}
			cfg.KeywordToRules[kw] = append(cfg.KeywordToRules[kw], rule.RuleID)
		}
	}

	for _, ra := range rc.Allowlists {
		allowlist, err := translateAllowlist(ra)
		if err != nil {
			return Config{}, err
		}
		cfg.Allowlists = append(cfg.Allowlists, allowlist)
	}

	return cfg, nil
}

func translateRule(rr RawRule) (Rule, error) {
	if rr.ID == "" {
		return Rule{}, fmt.Errorf("rule |id| is missing or empty (description: %q)", rr.Description)
	}
	if rr.Regex == "" && rr.Path == "" {
		return Rule{}, fmt.Errorf("rule %q must define |regex| or |path|", rr.ID)
	}

	rule := Rule{
		RuleID:      rr.ID,
		Description: rr.Description,
		Severity:    rr.Severity,
		Tags:        rr.Tags,
		Report: ReportMessages{
			Found:    rr.Report.Found,
			NotFound: rr.Report.NotFound,
		},
	}
	if rule.Severity == "" {
		rule.Severity = "warning"
	}

	var err error
	if rr.Regex != "" {
		if rule.Regex, err = regexp.Compile(rr.Regex); err != nil {
			return Rule{}, fmt.Errorf("rule %q has an invalid regex: %w", rr.ID, err)
		}
	}
	if rr.Path != "" {
		if rule.Path, err = regexp.Compile(rr.Path); err != nil {
			return Rule{}, fmt.Errorf("rule %q has an invalid path regex: %w", rr.ID, err)
		}
	}

	// Keywords feed the scanner's prefilter, which matches against
	// lowercased content.
	for _, kw := range rr.Keywords {
		rule.Keywords = append(rule.Keywords, strings.ToLower(kw))
	}

	for _, ra := range rr.Allowlists {
		allowlist, err := translateAllowlist(ra)
		if err != nil {
			return Rule{}, fmt.Errorf("rule %q: %w", rr.ID, err)
		}
		rule.Allowlists = append(rule.Allowlists, allowlist)
	}

	return rule, nil
}

func translateAllowlist(ra RawAllowlist) (*Allowlist, error) {
	allowlist := &Allowlist{
		Description: ra.Description,
		RegexTarget: ra.RegexTarget,
		StopWords:   ra.StopWords,
	}
	for _, p := range ra.Paths {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("allowlist %q has an invalid path regex: %w", ra.Description, err)
		}
		allowlist.Paths = append(allowlist.Paths, re)
	}
	for _, r := range ra.Regexes {
		re, err := regexp.Compile(r)
		if err != nil {
			return nil, fmt.Errorf("allowlist %q has an invalid regex: %w", ra.Description, err)
		}
		allowlist.Regexes = append(allowlist.Regexes, re)
	}
	for _, r := range ra.Resources {
		rm, err := ParseResourceMatcher(r)
		if err != nil {
			return nil, fmt.Errorf("allowlist %q: %w", ra.Description, err)
		}
		allowlist.Resources = append(allowlist.Resources, rm)
	}
	if err := allowlist.Validate(); err != nil {
		return nil, fmt.Errorf("allowlist %q: %w", ra.Description, err)
	}
	return allowlist, nil
}

// LoadDefault parses the embedded default config.
func LoadDefault() (Config, error) {
	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider([]byte(DefaultConfig)), toml.Parser()); err != nil {
		return Config{}, fmt.Errorf("parsing embedded default config: %w", err)
	}

	var rc RawConfig
	err := k.UnmarshalWithConf("", &rc, koanf.UnmarshalConf{
		Tag: "mapstructure",
		DecoderConfig: &mapstructure.DecoderConfig{
			WeaklyTypedInput: true,
			Result:           &rc,
		},
	})
	if err != nil {
		return Config{}, fmt.Errorf("decoding embedded default config: %w", err)
	}

	return rc.Translate()
}

// EnableRules restricts the config to the given rule ids, rebuilding the
// keyword maps for the surviving subset.
func (c *Config) EnableRules(ids []string) error {
	keep := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := c.Rules[id]; !ok {
			return fmt.Errorf("unknown rule id %q in --enable-rule", id)
		}
		keep[id] = struct{}{}
	}

	rules := make(map[string]Rule, len(keep))
	var order []string
	keywords := make(map[string]struct{})
	keywordToRules := make(map[string][]string)
	var noKeywordRules []string

	for _, id := range c.RuleOrder {
		if _, ok := keep[id]; !ok {
			continue
		}
		rule := c.Rules[id]
		rules[id] = rule
		order = append(order, id)
		if len(rule.Keywords) == 0 {
			noKeywordRules = append(noKeywordRules, id)
		}
		for _, kw := range rule.Keywords {
			keywords[kw] = struct{}{}
			keywordToRules[kw] = append(keywordToRules[kw], id)
		}
	}

	c.Rules = rules
	c.RuleOrder = order
	c.Keywords = keywords
	c.KeywordToRules = keywordToRules
	c.NoKeywordRules = noKeywordRules
	return nil
}

// checkRequiredVersion verifies that this blockscan build satisfies the
// config's required_version constraint. Dev builds skip the check.
func checkRequiredVersion(constraint string) error {
	if constraint == "" {
		return nil
	}
	current, err := goversion.NewVersion(version.Version)
	if err != nil {
		logging.Debug().Msgf("skipping required_version check for non-semver build %q", version.Version)
		return nil
	}
	c, err := goversion.NewConstraint(constraint)
	if err != nil {
		return fmt.Errorf("invalid required_version constraint %q: %w", constraint, err)
	}
	if !c.Check(current.Core()) {
		return fmt.Errorf("config requires blockscan %s, this is %s", constraint, version.Version)
	}
	return nil
}

// FragmentAllowed returns true if the fragment should be scanned, i.e. it is
// not covered by a global allowlist.
func (c *Config) FragmentAllowed(fragment blockscan.Fragment) bool {
	source, metadata := fragment.ResourceContext()
	for _, a := range c.Allowlists {
		if a.ResourceKeyAllowed(source, blockscan.MetaPath, fragment.Path) {
			return false
		}
		if a.ResourceAllowed(source, metadata) {
			return false
		}
	}
	return true
}

// FindingAllowed returns true if the finding should be kept, i.e. it is not
// covered by a global or rule-level allowlist.
func (c *Config) FindingAllowed(finding blockscan.Finding, rule Rule) bool {
	allowlists := make([]*Allowlist, 0, len(c.Allowlists)+len(rule.Allowlists))
	allowlists = append(allowlists, c.Allowlists...)
	allowlists = append(allowlists, rule.Allowlists...)

	source, metadata := finding.ResourceContext()
	for _, a := range allowlists {
		target := finding.Match
		if a.RegexTarget == "line" {
			target = finding.Line
		}
		if a.RegexAllowed(target) {
			return false
		}
		if a.StopWordAllowed(finding.Match) {
			return false
		}
		if a.ResourceAllowed(source, metadata) {
			return false
		}
	}
	return true
}
