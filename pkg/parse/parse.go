package parse

import (
	"github.com/adedayo/checkmate-drone/pkg/diagnostics"
	"github.com/cockroachdb/errors"
)

//ErrMalformedReport marks a report file that could not be turned into issues
var ErrMalformedReport = errors.New("malformed report")

//Parser turns one report file into issues. A deployment uses a single parser.
type Parser interface {
	//Name of the scanner whose reports are understood
	Name() string
	//Pattern selects report files in an input directory, e.g. "*.json"
	Pattern() string
	ParseFile(path string) (*diagnostics.Report, error)
}
