package brakeman

import (
	"bytes"
	"encoding/json"
	"os"

	"github.com/adedayo/checkmate-drone/pkg/diagnostics"
	"github.com/adedayo/checkmate-drone/pkg/parse"
	"github.com/cockroachdb/errors"
)

//brakemanReport is the part of Brakeman's JSON output the drone uses. Warnings stay as raw objects so
//that every attribute Brakeman emits reaches the plugins.
type brakemanReport struct {
	ScanInfo map[string]interface{} `json:"scan_info"`
	Warnings *[]json.RawMessage     `json:"warnings"`
	Errors   []json.RawMessage      `json:"errors"`
}

//Parser reads `brakeman -f json` reports
type Parser struct{}

var _ parse.Parser = Parser{}

func (Parser) Name() string    { return "brakeman" }
func (Parser) Pattern() string { return "*.json" }

func (p Parser) ParseFile(path string) (*diagnostics.Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", path)
	}
	report, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}
	report.Path = path
	return report, nil
}

//Parse decodes a Brakeman JSON document
func Parse(data []byte) (*diagnostics.Report, error) {
	var raw brakemanReport
	if err := decode(data, &raw); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "invalid brakeman json"), parse.ErrMalformedReport)
	}
	if raw.Warnings == nil {
		return nil, errors.Mark(errors.New("no warnings section in brakeman json"), parse.ErrMalformedReport)
	}

	report := &diagnostics.Report{
		Issues:   make([]diagnostics.Issue, 0, len(*raw.Warnings)),
		Metadata: raw.ScanInfo,
	}
	if report.Metadata == nil {
		report.Metadata = make(map[string]interface{})
	}
	report.Metadata["errors"] = len(raw.Errors)

	for i, w := range *raw.Warnings {
		var issue diagnostics.Issue
		if err := decode(w, &issue); err != nil || issue == nil {
			return nil, errors.Mark(errors.Newf("warning %d is not an object", i), parse.ErrMalformedReport)
		}
		report.Issues = append(report.Issues, issue)
	}
	return report, nil
}

func decode(data []byte, out interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(out)
}
