package diagnostics

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
)

//Issue is a single finding reported by a scanner. Its attributes are opaque to the pipeline and are
//only interpreted by plugins and the wire writer. Identity is positional within a Report.
type Issue map[string]interface{}

//Well-known issue attribute keys
const (
	AttrWarningType = "warning_type"
	AttrWarningCode = "warning_code"
	AttrFingerprint = "fingerprint"
	AttrCheckName   = "check_name"
	AttrMessage     = "message"
	AttrFile        = "file"
	AttrLine        = "line"
	AttrLink        = "link"
	AttrCode        = "code"
	AttrConfidence  = "confidence"
	AttrSeverity    = "severity"
)

//String returns the attribute as a string, or "" when it is absent
func (is Issue) String(key string) string {
	v, present := is[key]
	if !present || v == nil {
		return ""
	}
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprintf("%v", val)
	}
}

//Has reports whether the attribute is set
func (is Issue) Has(key string) bool {
	_, present := is[key]
	return present
}

//Clone makes a shallow copy so that a transform does not mutate its input
func (is Issue) Clone() Issue {
	out := make(Issue, len(is))
	for k, v := range is {
		out[k] = v
	}
	return out
}

//Keys returns the attribute names in sorted order
func (is Issue) Keys() []string {
	keys := make([]string, 0, len(is))
	for k := range is {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

//Confidence returns the parsed confidence of the issue, Low when it cannot be determined
func (is Issue) Confidence() Confidence {
	c, err := ParseConfidence(is.String(AttrConfidence))
	if err != nil {
		return Low
	}
	return c
}

//Report is the parsed content of a single report file
type Report struct {
	//Path of the report file this was parsed from
	Path     string
	Issues   []Issue
	Metadata map[string]interface{}
}

//Len returns the number of issues in the report
func (r *Report) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Issues)
}

//Confidence reflects the degree of confidence that we have in an assessment
type Confidence int

const (
	//Low Confidence in the assessment
	Low Confidence = iota
	//Medium Confidence in the assessment
	Medium
	//High Confidence in the assessment
	High
)

func (conf Confidence) String() string {
	switch conf {
	case Low:
		return "Low"
	case Medium:
		return "Medium"
	case High:
		return "High"
	default:
		return "Unknown"
	}
}

//ParseConfidence understands both our own names and the ones Brakeman emits ("Weak" is Brakeman's Low)
func ParseConfidence(s string) (Confidence, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low", "weak":
		return Low, nil
	case "medium":
		return Medium, nil
	case "high":
		return High, nil
	default:
		return Low, errors.Newf("unknown confidence type: %q", s)
	}
}
