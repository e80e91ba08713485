package policy

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/Wikid82/warden/internal/models"
)

// RuleVersion is the rule grammar generation this build understands. The
// version field is mandatory so the grammar can evolve without guessing what
// an opaque rule string means.
const RuleVersion = 1

// StringFilterKind selects how a StringFilter compares its data.
type StringFilterKind string

const (
	StringEquals     StringFilterKind = "Equals"
	StringRegex      StringFilterKind = "Regex"
	StringStartsWith StringFilterKind = "StartsWith"
	StringEndsWith   StringFilterKind = "EndsWith"
	StringContains   StringFilterKind = "Contains"
)

// StringFilter matches a single command line argument.
type StringFilter struct {
	Kind StringFilterKind `json:"kind"`
	Data string           `json:"data"`
}

// Match reports whether the filter accepts the given string.
func (f StringFilter) Match(s string) bool {
	switch f.Kind {
	case StringEquals:
		return s == f.Data
	case StringRegex:
		re, err := regexp.Compile(f.Data)
		return err == nil && re.MatchString(s)
	case StringStartsWith:
		return strings.HasPrefix(s, f.Data)
	case StringEndsWith:
		return strings.HasSuffix(s, f.Data)
	case StringContains:
		return strings.Contains(s, f.Data)
	}
	return false
}

// PathFilterKind selects how a PathFilter compares paths.
type PathFilterKind string

const (
	PathEquals   PathFilterKind = "Equals"
	PathFileName PathFilterKind = "FileName"
	PathWildcard PathFilterKind = "Wildcard"
)

// PathFilter matches an executable or working directory path.
type PathFilter struct {
	Kind PathFilterKind `json:"kind"`
	Data string         `json:"data"`
}

// Match reports whether the filter accepts the given path. Paths are cleaned
// before comparison so trailing separators and dot segments do not defeat a
// rule.
func (f PathFilter) Match(path string) bool {
	base := filepath.Clean(path)
	data := filepath.Clean(f.Data)

	switch f.Kind {
	case PathEquals:
		return base == data
	case PathFileName:
		return filepath.Base(base) == filepath.Base(data)
	case PathWildcard:
		ok, err := filepath.Match(data, base)
		return err == nil && ok
	}
	return false
}

// HashFilter allow-lists a target by digest. Set fields must all match.
type HashFilter struct {
	Sha1   string `json:"sha1,omitempty"`
	Sha256 string `json:"sha256,omitempty"`
}

// Match reports whether the filter accepts the given hash.
func (f HashFilter) Match(h Hash) bool {
	if f.Sha1 == "" && f.Sha256 == "" {
		return false
	}
	if f.Sha1 != "" && !strings.EqualFold(f.Sha1, h.Sha1) {
		return false
	}
	if f.Sha256 != "" && !strings.EqualFold(f.Sha256, h.Sha256) {
		return false
	}
	return true
}

// SignatureFilter requires a valid authenticode signature when set.
type SignatureFilter struct {
	CheckAuthenticode bool `json:"check_authenticode"`
}

// Match reports whether the filter accepts the given signature.
func (f SignatureFilter) Match(sig Signature) bool {
	return !f.CheckAuthenticode || sig.Status == models.SignatureValid
}

// Rule is one versioned rule document from Profile.Rules. Rules are
// evaluated in order and the first match wins.
type Rule struct {
	Version int                  `json:"version"`
	Kind    models.ElevationKind `json:"kind"`

	Path             *PathFilter      `json:"path,omitempty"`
	CommandLine      []StringFilter   `json:"command_line,omitempty"`
	WorkingDirectory *PathFilter      `json:"working_directory,omitempty"`
	Signature        *SignatureFilter `json:"signature,omitempty"`
	Hashes           []HashFilter     `json:"hashes,omitempty"`
}

// ParseRule decodes and validates a single rule document.
func ParseRule(raw string) (Rule, error) {
	var r Rule
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return Rule{}, fmt.Errorf("parse rule: %w", err)
	}
	if r.Version != RuleVersion {
		return Rule{}, fmt.Errorf("unsupported rule version %d", r.Version)
	}
	if !r.Kind.Valid() {
		return Rule{}, fmt.Errorf("invalid rule kind %q", r.Kind)
	}
	if r.Path == nil && r.CommandLine == nil && r.WorkingDirectory == nil && r.Signature == nil && r.Hashes == nil {
		return Rule{}, fmt.Errorf("rule has no matchers")
	}
	return r, nil
}

// ValidateRules rejects a profile whose rule list contains documents this
// build cannot evaluate.
func ValidateRules(rules []string) error {
	for i, raw := range rules {
		if _, err := ParseRule(raw); err != nil {
			return fmt.Errorf("rule %d: %w", i, err)
		}
	}
	return nil
}

// Matches reports whether the rule accepts the target application. Every
// present matcher must accept; the hash list is an any-of allow-list and the
// command line is compared argument by argument.
func (r Rule) Matches(app Application) bool {
	if r.Path != nil && !r.Path.Match(app.Path) {
		return false
	}
	if r.WorkingDirectory != nil && !r.WorkingDirectory.Match(app.WorkingDirectory) {
		return false
	}
	if r.Signature != nil && !r.Signature.Match(app.Signature) {
		return false
	}
	if r.CommandLine != nil {
		if len(r.CommandLine) != len(app.CommandLine) {
			return false
		}
		for i, f := range r.CommandLine {
			if !f.Match(app.CommandLine[i]) {
				return false
			}
		}
	}
	if r.Hashes != nil {
		any := false
		for _, f := range r.Hashes {
			if f.Match(app.Hash) {
				any = true
				break
			}
		}
		if !any {
			return false
		}
	}
	return true
}
