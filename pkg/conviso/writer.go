// Package conviso writes issues in the XML document format the importer consumes.
package conviso

import (
	"encoding/json"
	"encoding/xml"
	"fmt"

	"github.com/adedayo/checkmate-drone/pkg/diagnostics"
	"github.com/cockroachdb/errors"
)

//Target identifies where an issue belongs on the importer side
type Target struct {
	ClientID  string
	ProjectID string
	ToolName  string
	//Revision of the scanned code, when known
	Revision string
}

type document struct {
	XMLName         xml.Name        `xml:"scan"`
	Header          header          `xml:"header"`
	Vulnerabilities []vulnerability `xml:"vulnerabilities>vulnerability"`
}

type header struct {
	Tool      string `xml:"tool"`
	ClientID  string `xml:"client_id"`
	ProjectID string `xml:"project_id"`
	Revision  string `xml:"revision,omitempty"`
}

type vulnerability struct {
	Title       string      `xml:"title"`
	Description string      `xml:"description"`
	File        string      `xml:"file,omitempty"`
	Line        string      `xml:"line,omitempty"`
	Severity    string      `xml:"severity,omitempty"`
	Confidence  string      `xml:"confidence,omitempty"`
	Fingerprint string      `xml:"fingerprint,omitempty"`
	Attributes  []attribute `xml:"attributes>attribute"`
}

type attribute struct {
	Name  string `xml:"name,attr"`
	Value string `xml:",chardata"`
}

//BuildXML renders one issue for the given target. Every attribute of the issue is carried in the
//attributes list; the well-known ones are also promoted to their own elements.
func BuildXML(issue diagnostics.Issue, target Target) ([]byte, error) {
	v := vulnerability{
		Title:       issue.String(diagnostics.AttrWarningType),
		Description: issue.String(diagnostics.AttrMessage),
		File:        issue.String(diagnostics.AttrFile),
		Line:        issue.String(diagnostics.AttrLine),
		Severity:    issue.String(diagnostics.AttrSeverity),
		Confidence:  issue.String(diagnostics.AttrConfidence),
		Fingerprint: issue.String(diagnostics.AttrFingerprint),
	}

	for _, k := range issue.Keys() {
		value, err := attributeText(issue[k])
		if err != nil {
			return nil, errors.Wrapf(err, "attribute %s", k)
		}
		v.Attributes = append(v.Attributes, attribute{Name: k, Value: value})
	}

	doc := document{
		Header: header{
			Tool:      target.ToolName,
			ClientID:  target.ClientID,
			ProjectID: target.ProjectID,
			Revision:  target.Revision,
		},
		Vulnerabilities: []vulnerability{v},
	}

	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "failed to render issue")
	}
	return append([]byte(xml.Header), out...), nil
}

//structured values (Brakeman's location, render_path) travel as JSON text
func attributeText(v interface{}) (string, error) {
	switch val := v.(type) {
	case nil:
		return "", nil
	case string:
		return val, nil
	case json.Number:
		return val.String(), nil
	case bool, int, int64, float64:
		return fmt.Sprint(val), nil
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
}
