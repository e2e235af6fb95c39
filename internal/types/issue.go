// Package types holds the issue records shared by the intake, normalization
// and analysis packages.
package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// =============================================================================
// SEVERITY
// =============================================================================

// Severity is the canonical severity of an issue.
type Severity string

const (
	SeverityMinor  Severity = "minor"
	SeverityNormal Severity = "normal"
	SeverityMajor  Severity = "major"
)

// DefaultSeverity is used when the model gives no usable severity.
const DefaultSeverity = SeverityNormal

// severityAliases maps the labels models commonly emit onto the canonical set.
var severityAliases = map[string]Severity{
	"minor":      SeverityMinor,
	"info":       SeverityMinor,
	"low":        SeverityMinor,
	"suggestion": SeverityMinor,
	"hint":       SeverityMinor,

	"normal":   SeverityNormal,
	"warning":  SeverityNormal,
	"warn":     SeverityNormal,
	"medium":   SeverityNormal,
	"moderate": SeverityNormal,

	"major":    SeverityMajor,
	"error":    SeverityMajor,
	"high":     SeverityMajor,
	"critical": SeverityMajor,
	"severe":   SeverityMajor,
}

// ParseSeverity maps a model-provided label onto the canonical set.
// Unknown or blank labels yield DefaultSeverity.
func ParseSeverity(s string) Severity {
	if sev, ok := severityAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return sev
	}
	return DefaultSeverity
}

// Valid reports whether s is one of the canonical severities.
func (s Severity) Valid() bool {
	switch s {
	case SeverityMinor, SeverityNormal, SeverityMajor:
		return true
	}
	return false
}

// Rank orders severities from least (0) to most (2) serious.
func (s Severity) Rank() int {
	switch s {
	case SeverityMinor:
		return 0
	case SeverityMajor:
		return 2
	default:
		return 1
	}
}

func (s Severity) String() string { return string(s) }

// =============================================================================
// RAW ISSUE
// =============================================================================

// RawIssue is one issue as reported by the model, after field-level
// validation. Absent fields are empty strings or nil offsets.
type RawIssue struct {
	ID         string
	Span       string
	Start      *int
	End        *int
	Message    string
	Suggestion string
	Severity   string
}

// UnmarshalJSON decodes a loosely typed issue object. Fields of the wrong
// shape are treated as absent; only a value that is not an object is an
// error.
func (r *RawIssue) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var fields map[string]interface{}
	if err := dec.Decode(&fields); err != nil {
		return fmt.Errorf("issue is not an object: %w", err)
	}
	if fields == nil {
		return fmt.Errorf("issue is null")
	}

	*r = RawIssue{
		ID:         stringField(fields, "id"),
		Span:       stringField(fields, "span"),
		Start:      intField(fields, "start"),
		End:        intField(fields, "end"),
		Message:    stringField(fields, "message"),
		Suggestion: stringField(fields, "suggestion"),
		Severity:   stringField(fields, "severity"),
	}
	return nil
}

func stringField(fields map[string]interface{}, key string) string {
	s, _ := ExtractString(fields[key])
	return s
}

func intField(fields map[string]interface{}, key string) *int {
	n, ok := ExtractInt(fields[key])
	if !ok {
		return nil
	}
	return &n
}

// StartOr returns the start offset, or def when absent.
func (r RawIssue) StartOr(def int) int {
	if r.Start == nil {
		return def
	}
	return *r.Start
}

// EndOr returns the end offset, or def when absent.
func (r RawIssue) EndOr(def int) int {
	if r.End == nil {
		return def
	}
	return *r.End
}

// =============================================================================
// NORMALIZED ISSUE
// =============================================================================

// Issue is a normalized issue. Start and End are UTF-16 code-unit offsets
// into the analyzed text with 0 <= Start <= End <= len(text).
type Issue struct {
	ID         string   `json:"id"`
	Start      int      `json:"start"`
	End        int      `json:"end"`
	Span       string   `json:"span"`
	Message    string   `json:"message"`
	Suggestion string   `json:"suggestion"`
	Severity   Severity `json:"severity"`
}

// Len returns the length of the range in code units.
func (i Issue) Len() int { return i.End - i.Start }

// Raw converts the issue back into a RawIssue, for re-normalizing against
// the same text.
func (i Issue) Raw() RawIssue {
	start, end := i.Start, i.End
	return RawIssue{
		ID:         i.ID,
		Span:       i.Span,
		Start:      &start,
		End:        &end,
		Message:    i.Message,
		Suggestion: i.Suggestion,
		Severity:   string(i.Severity),
	}
}
