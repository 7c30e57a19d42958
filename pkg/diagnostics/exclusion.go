package diagnostics

import (
	"regexp"
)

//ExclusionProvider implements a exclude strategy for issues
type ExclusionProvider interface {
	//ShouldExclude determines whether the issue should be dropped from a report
	ShouldExclude(issue Issue) bool
	ShouldExcludePath(path string) bool
	ShouldExcludeValue(value string) bool
}

// ExcludeDefinition describes exclude rules
type ExcludeDefinition struct {
	//These specify fingerprints of issues that should be ignored anywhere they are found
	GloballyExcludedFingerprints []string `yaml:"GloballyExcludedFingerprints"`
	//These specify regular expressions matched against the warning type of an issue
	WarningTypeExclusionRegExs []string `yaml:"WarningTypeExclusionRegExs"`
	//These specify regular expressions that ignore issues whose file paths match
	PathExclusionRegExs []string `yaml:"PathExclusionRegExs"`
	//These specify sets of check names that should be excluded in a given file. That is filepath -> Set(check names)
	PerFileExcludedChecks map[string][]string `yaml:"PerFileExcludedChecks"`
	//These specify sets of regular expressions that if matched on the message of an issue in a path matched by the filepath key should be ignored. That is filepath_regex -> Set(regex)
	PathRegexExcludedRegExs map[string][]string `yaml:"PathRegexExcludedRegex"`
}

//GenerateSampleExclusion generates a sample exclusion YAML block with descriptions, to be placed under
//analysis.exclude in the drone configuration
func GenerateSampleExclusion() string {
	return `# Sample exclusion rules for the "exclude" analysis plugin

# Use GloballyExcludedFingerprints to drop issues by their scanner fingerprint
# GloballyExcludedFingerprints:
#    - 6b7dd4ea3fc4e3e7a0f4f1f2b5e9c0d1b8c2a3f4e5d6c7b8a9f0e1d2c3b4a5f6

# Use WarningTypeExclusionRegExs to drop whole categories of warnings
# WarningTypeExclusionRegExs:
#    - ^Cross-Site Request Forgery$
#    - .*Redirect.*

# Use PathExclusionRegExs to drop issues reported in matching files
# PathExclusionRegExs:
#     - ^vendor/.*
#     - .*_spec[.]rb

# Use PerFileExcludedChecks to drop given checks in a given file
# PerFileExcludedChecks:
#     app/controllers/users_controller.rb:
#         - CheckRedirect

# PathRegexExcludedRegex drops issues whose message matches in files whose path matches
# PathRegexExcludedRegex:
#     ^app/views/.*:
#         - .*params[[]:locale[]].*
`
}

//defaultExclusionProvider contains various mechanisms for excluding false positives
type defaultExclusionProvider struct {
	*ExcludeDefinition
	warningTypeRegExsCompiled       []*regexp.Regexp
	pathExclusionRegExsCompiled     []*regexp.Regexp
	pathRegexExcludedRegExsCompiled map[*regexp.Regexp][]*regexp.Regexp
}

//CompileExcludes returns a ExclusionProvider with the regular expressions already compiled
func CompileExcludes(exclude *ExcludeDefinition) (ExclusionProvider, error) {
	if exclude == nil {
		return MakeEmptyExcludes(), nil
	}
	wl := defaultExclusionProvider{
		ExcludeDefinition: exclude,
	}
	if err := wl.compileRegExs(); err != nil {
		return nil, err
	}
	return &wl, nil
}

//MakeEmptyExcludes creates an empty default exclusion list
func MakeEmptyExcludes() ExclusionProvider {
	return &defaultExclusionProvider{
		ExcludeDefinition: &ExcludeDefinition{
			PathRegexExcludedRegExs: make(map[string][]string),
			PerFileExcludedChecks:   make(map[string][]string),
		},
		pathRegexExcludedRegExsCompiled: make(map[*regexp.Regexp][]*regexp.Regexp),
	}
}

func compileAll(exprs []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(exprs))
	for _, s := range exprs {
		re, err := regexp.Compile(s)
		if err != nil {
			return nil, err
		}
		out = append(out, re)
	}
	return out, nil
}

//compileRegExs ensures the regular expressions defined are compiled before use
func (wl *defaultExclusionProvider) compileRegExs() (err error) {
	if wl.warningTypeRegExsCompiled, err = compileAll(wl.WarningTypeExclusionRegExs); err != nil {
		return err
	}

	if wl.pathExclusionRegExsCompiled, err = compileAll(wl.PathExclusionRegExs); err != nil {
		return err
	}

	wl.pathRegexExcludedRegExsCompiled = make(map[*regexp.Regexp][]*regexp.Regexp)
	for p, ss := range wl.PathRegexExcludedRegExs {
		pre, err := regexp.Compile(p)
		if err != nil {
			return err
		}
		srs, err := compileAll(ss)
		if err != nil {
			return err
		}
		wl.pathRegexExcludedRegExsCompiled[pre] = srs
	}
	return nil
}

func (wl *defaultExclusionProvider) ShouldExclude(issue Issue) bool {
	path := issue.String(AttrFile)

	if fp := issue.String(AttrFingerprint); fp != "" && wl.ShouldExcludeValue(fp) {
		return true
	}

	for _, rx := range wl.warningTypeRegExsCompiled {
		if rx.MatchString(issue.String(AttrWarningType)) {
			return true
		}
	}

	if wl.ShouldExcludePath(path) {
		return true
	}

	for p, checks := range wl.PerFileExcludedChecks {
		if p == path {
			for _, check := range checks {
				if check == issue.String(AttrCheckName) {
					return true
				}
			}
		}
	}

	message := issue.String(AttrMessage)
	for prx, rxs := range wl.pathRegexExcludedRegExsCompiled {
		if prx.MatchString(path) {
			for _, rx := range rxs {
				if rx.MatchString(message) {
					return true
				}
			}
		}
	}
	return false
}

//ShouldExcludePath determines whether issues in the path should be dropped
func (wl *defaultExclusionProvider) ShouldExcludePath(path string) bool {
	for _, prx := range wl.pathExclusionRegExsCompiled {
		if prx.MatchString(path) {
			return true
		}
	}
	return false
}

//ShouldExcludeValue determines whether a fingerprint is globally excluded
func (wl *defaultExclusionProvider) ShouldExcludeValue(value string) bool {
	for _, s := range wl.GloballyExcludedFingerprints {
		if s == value {
			return true
		}
	}
	return false
}
