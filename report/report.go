package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Ncn914491/blockscan"
)

const (
	JSONFormat     = "json"
	CSVFormat      = "csv"
	TemplateFormat = "template"

	// StdoutPath writes the report to standard output.
	StdoutPath = "-"
)

// NewReporter returns a reporter for the given format. An empty format is
// inferred from the report path extension, defaulting to JSON.
func NewReporter(format, reportPath, templatePath string) (blockscan.Reporter, error) {
	if format == "" {
		format = inferFormat(reportPath)
	}
	if templatePath != "" {
		format = TemplateFormat
	}

	switch strings.ToLower(format) {
	case JSONFormat:
		return &JsonReporter{}, nil
	case CSVFormat:
		return &CsvReporter{}, nil
	case TemplateFormat:
		return NewTemplateReporter(templatePath)
	default:
		return nil, fmt.Errorf("unknown report format %q", format)
	}
}

// Write renders findings to reportPath using the reporter for format.
func Write(findings []blockscan.Finding, format, reportPath, templatePath string) error {
	reporter, err := NewReporter(format, reportPath, templatePath)
	if err != nil {
		return err
	}

	var w *os.File
	if reportPath == StdoutPath {
		w = os.Stdout
	} else {
		w, err = os.Create(reportPath)
		if err != nil {
			return fmt.Errorf("could not create report file: %w", err)
		}
	}

	err = reporter.Write(w, findings)
	if reportPath != StdoutPath {
		if closeErr := w.Close(); err == nil {
			err = closeErr
		}
	}
	return err
}

func inferFormat(reportPath string) string {
	switch strings.ToLower(filepath.Ext(reportPath)) {
	case ".csv":
		return CSVFormat
	case ".tmpl", ".template":
		return TemplateFormat
	default:
		return JSONFormat
	}
}
