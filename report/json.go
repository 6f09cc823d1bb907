package report

import (
	"encoding/json"
	"io"

	"github.com/Ncn914491/blockscan"
)

type JsonReporter struct {
}

var _ blockscan.Reporter = (*JsonReporter)(nil)

func (t *JsonReporter) Write(w io.WriteCloser, findings []blockscan.Finding) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", " ")
	return encoder.Encode(findings)
}
