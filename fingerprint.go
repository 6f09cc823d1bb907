package blockscan

import (
	"fmt"
	"strings"

	"github.com/zeebo/xxh3"
)

// AddFingerprintToFinding computes and sets the fingerprint on a finding.
//
// A fingerprint is a deterministic, unique identifier for a finding. It
// encodes where the finding was found, which rule matched, and a hash of the
// matched text. Two scans of the same content always produce the same
// fingerprint, making fingerprints suitable for deduplication, ignore lists,
// and baselines.
//
// Format ("!" delimits identity segments, "#" anchors location):
//
//	{source}!{resource_kind}!{identity_kvs}!{rule_id}!{match_hash}#L{startLine}-{endLine}#C{startCol}-{endCol}
//
// Example, a blocking cache copy found in a local Kotlin file:
//
//	file!file_content!path=ui/MainActivity.kt!blocking-cache-copy!a1b2c3d4#L42-44#C9-31
func AddFingerprintToFinding(finding *Finding) {
	r := finding.Fragment.Resource

	var b strings.Builder
	fmt.Fprintf(&b, "%s!%s!%s!%s!%s#L%d-%d#C%d-%d",
		r.Source,
		r.Kind,
		r.FingerprintIdentity(),
		finding.RuleID,
		matchHash(finding.Match),
		finding.StartLine, finding.EndLine,
		finding.StartColumn, finding.EndColumn,
	)

	finding.Fingerprint = b.String()
}

// matchHash returns the first 8 hex characters of the XXH3-64 hash of s.
// This is not a security context; 32 bits is plenty for per-resource dedup.
func matchHash(s string) string {
	h := xxh3.HashString(s)
	return fmt.Sprintf("%016x", h)[:8]
}
