package report

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/Ncn914491/blockscan"
)

type CsvReporter struct {
}

var _ blockscan.Reporter = (*CsvReporter)(nil)

func (r *CsvReporter) Write(w io.WriteCloser, findings []blockscan.Finding) error {
	if len(findings) == 0 {
		return nil
	}

	var (
		cw  = csv.NewWriter(w)
		err error
	)
	columns := []string{
		"RuleID",
		"Severity",
		"File",
		"SymlinkFile",
		"Match",
		"StartLine",
		"EndLine",
		"StartColumn",
		"EndColumn",
		"Description",
		"Tags",
		"Fingerprint",
	}

	if err = cw.Write(columns); err != nil {
		return err
	}
	for _, f := range findings {
		row := []string{
			f.RuleID,
			f.Severity,
			f.Metadata[blockscan.MetaPath],
			f.Metadata[blockscan.MetaSymlinkFile],
			f.Match,
			strconv.Itoa(f.StartLine),
			strconv.Itoa(f.EndLine),
			strconv.Itoa(f.StartColumn),
			strconv.Itoa(f.EndColumn),
			f.Description,
			strings.Join(f.Tags, " "),
			f.Fingerprint,
		}
		if err = cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
