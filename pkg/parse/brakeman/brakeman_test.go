package brakeman

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/adedayo/checkmate-drone/pkg/diagnostics"
	"github.com/adedayo/checkmate-drone/pkg/parse"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `{
  "scan_info": {
    "app_path": "/srv/app",
    "rails_version": "6.1.4",
    "brakeman_version": "5.1.1",
    "checks_performed": ["BasicAuth", "SQL"]
  },
  "warnings": [
    {
      "warning_type": "SQL Injection",
      "warning_code": 0,
      "fingerprint": "6b7dd4ea",
      "check_name": "SQL",
      "message": "Possible SQL injection",
      "file": "app/models/user.rb",
      "line": 12,
      "link": "https://brakemanscanner.org/docs/warning_types/sql_injection/",
      "code": "User.where(\"name = #{params[:name]}\")",
      "render_path": null,
      "location": {"type": "method", "class": "User", "method": "search"},
      "user_input": "params[:name]",
      "confidence": "High"
    },
    {
      "warning_type": "Redirect",
      "fingerprint": "a1b2",
      "file": "app/controllers/home_controller.rb",
      "line": 3,
      "confidence": "Weak"
    }
  ],
  "ignored_warnings": [],
  "errors": [{"error": "parse error", "location": "x.rb"}],
  "obsolete": []
}`

func TestParse(t *testing.T) {
	report, err := Parse([]byte(sample))
	require.NoError(t, err)
	require.Len(t, report.Issues, 2)

	first := report.Issues[0]
	assert.Equal(t, "SQL Injection", first.String(diagnostics.AttrWarningType))
	assert.Equal(t, "12", first.String(diagnostics.AttrLine))
	assert.Equal(t, json.Number("12"), first[diagnostics.AttrLine])
	assert.Equal(t, diagnostics.High, first.Confidence())
	assert.True(t, first.Has("render_path"))
	assert.Equal(t, "User", first["location"].(map[string]interface{})["class"])

	assert.Equal(t, diagnostics.Low, report.Issues[1].Confidence())
	assert.Equal(t, "6.1.4", report.Metadata["rails_version"])
	assert.Equal(t, 1, report.Metadata["errors"])
}

func TestParseEmptyReport(t *testing.T) {
	report, err := Parse([]byte(`{"scan_info": {}, "warnings": []}`))
	require.NoError(t, err)
	assert.Equal(t, 0, report.Len())
	assert.NotNil(t, report.Issues)
}

func TestParseMalformed(t *testing.T) {
	for name, doc := range map[string]string{
		"not json":        `{"warnings": [`,
		"no warnings":     `{"scan_info": {}}`,
		"warnings object": `{"warnings": {}}`,
		"warning not obj": `{"warnings": [1]}`,
		"null warning":    `{"warnings": [null]}`,
		"top level array": `[]`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			require.Error(t, err)
			assert.True(t, errors.Is(err, parse.ErrMalformedReport))
		})
	}
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.json")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0644))

	p := Parser{}
	assert.Equal(t, "brakeman", p.Name())
	assert.Equal(t, "*.json", p.Pattern())

	report, err := p.ParseFile(path)
	require.NoError(t, err)
	assert.Equal(t, path, report.Path)
	assert.Equal(t, 2, report.Len())

	_, err = p.ParseFile(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}
