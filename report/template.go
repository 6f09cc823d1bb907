package report

import (
	"fmt"
	"io"
	"os"
	"text/template"

	"github.com/go-sprout/sprout/sprigin"

	"github.com/Ncn914491/blockscan"
)

// TemplateReporter renders findings through a user-provided text/template.
// Templates get the full findings slice and the sprout function map.
type TemplateReporter struct {
	template *template.Template
}

var _ blockscan.Reporter = (*TemplateReporter)(nil)

func NewTemplateReporter(templatePath string) (*TemplateReporter, error) {
	if templatePath == "" {
		return nil, fmt.Errorf("template path cannot be empty")
	}

	templateText, err := os.ReadFile(templatePath)
	if err != nil {
		return nil, fmt.Errorf("error reading template file: %w", err)
	}

	t := template.New("blockscan-report").Funcs(sprigin.FuncMap())
	t, err = t.Parse(string(templateText))
	if err != nil {
		return nil, fmt.Errorf("error parsing template: %w", err)
	}
	return &TemplateReporter{template: t}, nil
}

func (t *TemplateReporter) Write(w io.WriteCloser, findings []blockscan.Finding) error {
	return t.template.Execute(w, findings)
}
