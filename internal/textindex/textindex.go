// Package textindex converts offsets over a document between two counting
// conventions: codepoints (one unit per Unicode scalar value) and UTF-16
// code units (codepoints above the Basic Multilingual Plane take two).
//
// Every function here is a pure function of (text, index). Indices below
// zero saturate to 0 and indices at or past the end saturate to the text's
// length in the target convention, so callers never need to bounds-check.
//
// Invalid UTF-8 bytes count as one codepoint and one code unit each, the
// same way a range loop over the string decodes them.
package textindex

import "unicode/utf8"

// codeUnits returns how many UTF-16 code units r occupies.
func codeUnits(r rune) int {
	if r > 0xFFFF {
		return 2
	}
	return 1
}

// CodepointLen returns the length of text in codepoints.
func CodepointLen(text string) int {
	return utf8.RuneCountInString(text)
}

// CodeUnitLen returns the length of text in UTF-16 code units.
func CodeUnitLen(text string) int {
	n := 0
	for _, r := range text {
		n += codeUnits(r)
	}
	return n
}

// CodepointToCodeUnit maps a codepoint index to the UTF-16 code-unit index
// of the same position.
func CodepointToCodeUnit(text string, cp int) int {
	if cp <= 0 {
		return 0
	}
	cu, i := 0, 0
	for _, r := range text {
		if i == cp {
			return cu
		}
		cu += codeUnits(r)
		i++
	}
	return cu
}

// CodeUnitToCodepoint maps a UTF-16 code-unit index to a codepoint index.
// An index that points between the two halves of a surrogate pair maps to
// the codepoint that owns the pair.
func CodeUnitToCodepoint(text string, cu int) int {
	if cu <= 0 {
		return 0
	}
	units, cp := 0, 0
	for _, r := range text {
		need := codeUnits(r)
		if units+need > cu {
			return cp
		}
		units += need
		cp++
		if units == cu {
			return cp
		}
	}
	return cp
}

// ByteOffset returns the byte offset in text of codepoint index cp.
func ByteOffset(text string, cp int) int {
	if cp <= 0 {
		return 0
	}
	i := 0
	for b := range text {
		if i == cp {
			return b
		}
		i++
	}
	return len(text)
}

// SnapCodeUnit clamps cu into [0, CodeUnitLen(text)] and rounds it down to
// the nearest codepoint boundary.
func SnapCodeUnit(text string, cu int) int {
	return CodepointToCodeUnit(text, CodeUnitToCodepoint(text, cu))
}

// SliceCodeUnits returns the substring of text covering the code-unit range
// [start, end). Both ends are snapped to codepoint boundaries first.
func SliceCodeUnits(text string, start, end int) string {
	lo := ByteOffset(text, CodeUnitToCodepoint(text, start))
	hi := ByteOffset(text, CodeUnitToCodepoint(text, end))
	if hi < lo {
		return ""
	}
	return text[lo:hi]
}
