package scan

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/Ncn914491/blockscan"
	"github.com/Ncn914491/blockscan/config"
	"github.com/Ncn914491/blockscan/regexp"
)

var (
	newLineRegexp  = regexp.MustCompile("\n")
	allowSignature = "blockscan:allow"
)

// FindingsFunc is the yield callback Run invokes once per surviving finding.
type FindingsFunc func(finding blockscan.Finding, err error) error

type Pipeline struct {
	Config config.Config

	// resource enumerator, fragment producer
	Source blockscan.Source

	// fragment consumer, match producer
	Scanner Scanner

	baseline     []blockscan.Finding
	baselinePath string
	totalBytes   atomic.Uint64
}

func NewPipeline(cfg config.Config, src blockscan.Source, scanner Scanner) *Pipeline {
	return &Pipeline{
		Config:  cfg,
		Source:  src,
		Scanner: scanner,
	}
}

// TotalBytes returns the number of bytes processed so far.
func (p *Pipeline) TotalBytes() uint64 {
	return p.totalBytes.Load()
}

// ProcessFragment filters, scans, and produces findings for a single
// fragment. This is the channel-free API for processing fragments directly.
func (p *Pipeline) ProcessFragment(ctx context.Context, fragment blockscan.Fragment) ([]blockscan.Finding, error) {
	if fragment.Bytes == nil {
		p.totalBytes.Add(uint64(len(fragment.Raw)))
	}
	p.totalBytes.Add(uint64(len(fragment.Bytes)))

	if !p.Config.FragmentAllowed(fragment) {
		return nil, nil
	}

	matches, err := p.Scanner.ScanFragment(ctx, fragment)
	if err != nil {
		return nil, err
	}

	var findings []blockscan.Finding
	var newLineIndices [][]int
	for _, match := range matches {
		rule := p.Config.Rules[match.RuleID]
		finding := CreateFinding(fragment, match, rule)

		if newLineIndices == nil {
			newLineIndices = newLineRegexp.FindAllStringIndex(fragment.Raw, -1)
		}
		AddLocationToFinding(finding, fragment, match, newLineIndices)

		if strings.Contains(finding.Line, allowSignature) {
			continue
		}
		if !p.Config.FindingAllowed(*finding, rule) {
			continue
		}

		blockscan.AddFingerprintToFinding(finding)
		if p.Scanner.IsIgnored(finding.Fingerprint) {
			continue
		}
		if p.baseline != nil && !IsNew(*finding, p.baseline) {
			continue
		}
		findings = append(findings, *finding)
	}

	return findings, nil
}

// Run processes all fragments from the source concurrently, yielding each
// surviving finding. Duplicate fingerprints are yielded once.
func (p *Pipeline) Run(ctx context.Context, yield FindingsFunc) error {
	var (
		mu   sync.Mutex
		seen = map[string]struct{}{}
	)

	err := p.Source.Fragments(ctx, func(fragment blockscan.Fragment, err error) error {
		if err != nil {
			return err
		}
		if p.baselinePath != "" && fragment.Path == p.baselinePath {
			return nil
		}

		p.Scanner.Sema.Go(func() error {
			findings, err := p.ProcessFragment(ctx, fragment)
			if err != nil {
				return err
			}
			if len(findings) == 0 {
				return nil
			}

			mu.Lock()
			defer mu.Unlock()
			for _, finding := range findings {
				if _, dup := seen[finding.Fingerprint]; dup {
					continue
				}
				seen[finding.Fingerprint] = struct{}{}
				if err := yield(finding, nil); err != nil {
					return err
				}
			}
			return nil
		})
		return nil
	})
	if err != nil {
		return err
	}

	return p.Scanner.Sema.Wait()
}
