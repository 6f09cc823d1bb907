package scan

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Ncn914491/blockscan"
	"github.com/Ncn914491/blockscan/config"
)

// CreateFinding builds a finding from a fragment, a match, and the rule that
// produced it. Location and fingerprint are attached separately.
func CreateFinding(fragment blockscan.Fragment, match blockscan.Match, rule config.Rule) *blockscan.Finding {
	var metadata map[string]string
	if fragment.Resource != nil && fragment.Resource.Metadata != nil {
		metadata = make(map[string]string, len(fragment.Resource.Metadata))
		for k, v := range fragment.Resource.Metadata {
			metadata[k] = v
		}
	}

	tags := make([]string, 0, len(rule.Tags)+len(match.MetaTags))
	tags = append(tags, rule.Tags...)
	tags = append(tags, match.MetaTags...)

	return &blockscan.Finding{
		RuleID:      rule.RuleID,
		Description: rule.Description,
		Severity:    rule.Severity,
		Match:       match.MatchString,
		Tags:        tags,
		Fragment:    &fragment,
		Metadata:    metadata,
	}
}

// lineAt returns the 1-based line number containing byte index idx, and the
// byte index where that line starts. newLineIndices holds the spans of every
// "\n" in the raw content, in order.
func lineAt(idx int, newLineIndices [][]int) (line, lineStart int) {
	line = 1
	for _, nl := range newLineIndices {
		if nl[0] >= idx {
			break
		}
		line++
		lineStart = nl[1]
	}
	return line, lineStart
}

// AddLocationToFinding computes line/column information for a match and sets
// the Line content on the finding. Multi-line matches span all lines from the
// first to the last matched byte.
func AddLocationToFinding(finding *blockscan.Finding, fragment blockscan.Fragment, match blockscan.Match, newLineIndices [][]int) {
	if match.NoPattern {
		finding.StartLine = fragment.StartLine
		finding.EndLine = fragment.StartLine
		return
	}

	start := match.MatchStart
	end := match.MatchEnd
	if end > start {
		end--
	}

	startLine, startLineBegin := lineAt(start, newLineIndices)
	endLine, _ := lineAt(end, newLineIndices)

	// End of the last matched line: the first newline at or past the match,
	// or the end of the fragment.
	lastLineEnd := len(fragment.Raw)
	for _, nl := range newLineIndices {
		if nl[0] >= match.MatchEnd {
			lastLineEnd = nl[0]
			break
		}
	}

	finding.StartLine = startLine + fragment.StartLine
	finding.EndLine = endLine + fragment.StartLine
	finding.StartColumn = start - startLineBegin + 1
	finding.EndColumn = finding.StartColumn + (match.MatchEnd - match.MatchStart) - 1
	if startLine != endLine {
		_, endLineBegin := lineAt(end, newLineIndices)
		finding.EndColumn = end - endLineBegin + 1
	}
	finding.Line = fragment.Raw[startLineBegin:lastLineEnd]
}

var (
	matchStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#f5d445"))
	severityStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#f05c07"))
)

// PrintFinding prints a finding to stdout with optional color formatting.
func PrintFinding(f blockscan.Finding, noColor bool) {
	match := strings.TrimSpace(f.Match)
	if idx := strings.IndexByte(match, '\n'); idx >= 0 {
		match = match[:idx] + " ..."
	}
	severity := f.Severity

	if !noColor {
		match = matchStyle.Render(match)
		severity = severityStyle.Render(severity)
	}

	fmt.Printf("%-12s %s\n", "Finding:", match)
	fmt.Printf("%-12s %s\n", "RuleID:", f.RuleID)
	fmt.Printf("%-12s %s\n", "Severity:", severity)
	if f.File() != "" {
		fmt.Printf("%-12s %s\n", "File:", f.File())
		fmt.Printf("%-12s %d\n", "Line:", f.StartLine)
	}
	if len(f.Tags) > 0 {
		fmt.Printf("%-12s %s\n", "Tags:", strings.Join(f.Tags, ", "))
	}
	fmt.Printf("%-12s %s\n", "Fingerprint:", f.Fingerprint)
	fmt.Println("")
}
