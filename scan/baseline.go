package scan

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Ncn914491/blockscan"
)

// IsNew reports whether a finding is absent from the baseline.
func IsNew(finding blockscan.Finding, baseline []blockscan.Finding) bool {
	for _, b := range baseline {
		// Fast path: identical fingerprints.
		if finding.Fingerprint != "" && b.Fingerprint != "" {
			if finding.Fingerprint == b.Fingerprint {
				return false
			}
			continue
		}

		// Fallback: field-by-field comparison for baselines generated
		// without fingerprints.
		if finding.RuleID == b.RuleID &&
			finding.StartLine == b.StartLine &&
			finding.EndLine == b.EndLine &&
			finding.StartColumn == b.StartColumn &&
			finding.EndColumn == b.EndColumn &&
			finding.Match == b.Match &&
			finding.Metadata[blockscan.MetaPath] == b.Metadata[blockscan.MetaPath] {
			return false
		}
	}
	return true
}

// LoadBaseline reads a JSON findings report produced by a previous scan.
func LoadBaseline(baselinePath string) ([]blockscan.Finding, error) {
	bytes, err := os.ReadFile(baselinePath)
	if err != nil {
		return nil, fmt.Errorf("could not open %s", baselinePath)
	}

	var previousFindings []blockscan.Finding
	if err := json.Unmarshal(bytes, &previousFindings); err != nil {
		return nil, fmt.Errorf("the format of the file %s is not supported", baselinePath)
	}

	return previousFindings, nil
}

// AddBaseline loads the baseline report and excludes it from the scan.
func (p *Pipeline) AddBaseline(baselinePath string, source string) error {
	if baselinePath == "" {
		return nil
	}

	baseline, err := LoadBaseline(baselinePath)
	if err != nil {
		return err
	}

	absoluteSource, err := filepath.Abs(source)
	if err != nil {
		return err
	}
	absoluteBaseline, err := filepath.Abs(baselinePath)
	if err != nil {
		return err
	}
	relativeBaseline, err := filepath.Rel(absoluteSource, absoluteBaseline)
	if err != nil {
		return err
	}

	p.baseline = baseline
	p.baselinePath = filepath.Join(source, relativeBaseline)
	return nil
}
