// Package intake turns a language model's response text into raw issue
// records. It never fails: anything it cannot read degrades to "no issues".
//
// Parsing proceeds down a ladder of increasingly lenient attempts:
//
//  1. the trimmed payload (fence markers stripped) as a JSON array
//  2. each balanced [ ... ] substring, in order of appearance
//  3. the text from the first '[' to the last ']'
//
// Steps 2 and 3 pass over arrays whose elements are all non-objects, so a
// citation such as [1] ahead of the real array does not end the search.
//
// Elements that are not objects are dropped; fields of the wrong shape are
// treated as absent (see types.RawIssue).
package intake

import (
	"encoding/json"
	"strings"

	"proofread/internal/types"
)

// Method names the parse attempt that produced the issues.
type Method string

const (
	MethodJSON      Method = "json"
	MethodFenced    Method = "json_fenced"
	MethodExtracted Method = "json_extracted"
	MethodNone      Method = "none"
)

// Extraction is the result of reading one payload.
type Extraction struct {
	Issues []types.RawIssue
	Method Method
	// Dropped counts array elements that were not issue objects.
	Dropped int
}

// Extract reads payload and returns the issues it contains along with how
// they were found. Issues is never nil.
func Extract(payload string) Extraction {
	s := strings.TrimSpace(payload)

	unfenced, fenced := stripFence(s)
	if issues, dropped, ok := decodeArray(unfenced); ok {
		m := MethodJSON
		if fenced {
			m = MethodFenced
		}
		return Extraction{Issues: issues, Method: m, Dropped: dropped}
	}

	for _, cand := range findArrayCandidates(unfenced) {
		if issues, dropped, ok := decodeArray(cand); ok && !onlyDropped(issues, dropped) {
			return Extraction{Issues: issues, Method: MethodExtracted, Dropped: dropped}
		}
	}

	if cand := outermostBrackets(unfenced); cand != "" {
		if issues, dropped, ok := decodeArray(cand); ok && !onlyDropped(issues, dropped) {
			return Extraction{Issues: issues, Method: MethodExtracted, Dropped: dropped}
		}
	}

	return Extraction{Issues: []types.RawIssue{}, Method: MethodNone}
}

// Parse returns the raw issues in payload, or an empty slice.
func Parse(payload string) []types.RawIssue {
	return Extract(payload).Issues
}

// stripFence removes a surrounding ``` fence, with or without a language
// tag. It reports whether a fence was present.
func stripFence(s string) (string, bool) {
	if !strings.HasPrefix(s, "```") {
		return s, false
	}
	body := strings.TrimPrefix(s, "```")

	// drop the language tag: everything up to the first newline, unless the
	// opening line already carries content
	if nl := strings.IndexByte(body, '\n'); nl >= 0 && !strings.ContainsAny(body[:nl], "[{") {
		body = body[nl+1:]
	} else {
		body = strings.TrimLeft(body, "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ")
	}

	if end := strings.LastIndex(body, "```"); end >= 0 {
		body = body[:end]
	}
	return strings.TrimSpace(body), true
}

// onlyDropped reports whether an array held elements but none of them were
// issues.
func onlyDropped(issues []types.RawIssue, dropped int) bool {
	return len(issues) == 0 && dropped > 0
}

// decodeArray parses s as a JSON array of issue objects. ok is false when s
// is not an array at all.
func decodeArray(s string) (issues []types.RawIssue, dropped int, ok bool) {
	if !strings.HasPrefix(s, "[") {
		return nil, 0, false
	}

	var elems []json.RawMessage
	if err := json.Unmarshal([]byte(s), &elems); err != nil {
		return nil, 0, false
	}

	issues = make([]types.RawIssue, 0, len(elems))
	for _, elem := range elems {
		var raw types.RawIssue
		if err := json.Unmarshal(elem, &raw); err != nil {
			dropped++
			continue
		}
		issues = append(issues, raw)
	}
	return issues, dropped, true
}
