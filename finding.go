package blockscan

import (
	"encoding/json"
)

// Finding is one detected blocking-call violation.
type Finding struct {
	// RuleID is the id of the rule that was matched
	RuleID      string
	Description string
	Severity    string

	// Location within the resource. Lines and columns are 1-based.
	StartLine   int
	EndLine     int
	StartColumn int
	EndColumn   int

	// Line is the full line content containing the finding.
	Line string `json:"-"`

	// Match is the part of the content that matched the rule. For
	// multi-line patterns this spans the whole matched region.
	Match string

	// Tags are arbitrary labels associated with the finding
	Tags []string

	// unique identifier
	Fingerprint string

	// Used for bookkeeping back to the fragment
	Fragment *Fragment `json:"-"`

	// Metadata holds per-finding metadata copied from the resource at
	// creation time.
	Metadata map[string]string `json:"-"`
}

// ResourceContext returns the source type and metadata for allowlist matching.
func (f *Finding) ResourceContext() (string, map[string]string) {
	if f == nil || f.Fragment == nil || f.Fragment.Resource == nil {
		return "", nil
	}
	return f.Fragment.Resource.Source, f.Fragment.Resource.Metadata
}

// File returns the path metadata of the finding, or empty string.
func (f *Finding) File() string {
	if f == nil || f.Metadata == nil {
		return ""
	}
	return f.Metadata[MetaPath]
}

type findingJSON struct {
	RuleID      string            `json:"RuleID"`
	Description string            `json:"Description"`
	Severity    string            `json:"Severity"`
	StartLine   int               `json:"StartLine"`
	EndLine     int               `json:"EndLine"`
	StartColumn int               `json:"StartColumn"`
	EndColumn   int               `json:"EndColumn"`
	Match       string            `json:"Match"`
	Tags        []string          `json:"Tags"`
	Fingerprint string            `json:"Fingerprint"`
	Metadata    map[string]string `json:"Metadata"`
}

func (f Finding) MarshalJSON() ([]byte, error) {
	j := findingJSON{
		RuleID:      f.RuleID,
		Description: f.Description,
		Severity:    f.Severity,
		StartLine:   f.StartLine,
		EndLine:     f.EndLine,
		StartColumn: f.StartColumn,
		EndColumn:   f.EndColumn,
		Match:       f.Match,
		Tags:        f.Tags,
		Fingerprint: f.Fingerprint,
		Metadata:    f.Metadata,
	}
	return json.Marshal(j)
}

func (f *Finding) UnmarshalJSON(data []byte) error {
	var j findingJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}

	f.RuleID = j.RuleID
	f.Description = j.Description
	f.Severity = j.Severity
	f.StartLine = j.StartLine
	f.EndLine = j.EndLine
	f.StartColumn = j.StartColumn
	f.EndColumn = j.EndColumn
	f.Match = j.Match
	f.Tags = j.Tags
	f.Fingerprint = j.Fingerprint
	f.Metadata = j.Metadata

	// Reconstruct a synthetic Fragment + Resource so code that references
	// f.Fragment.Resource (baselines, mostly) continues to work.
	if j.Metadata != nil {
		path := j.Metadata[MetaPath]
		f.Fragment = &Fragment{
			Path: path,
			Resource: &Resource{
				Path:     path,
				Metadata: j.Metadata,
			},
		}
	}
	return nil
}
