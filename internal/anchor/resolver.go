// Package anchor relocates a literal span to its true position in a
// document when the reported offset is only approximate.
//
// The search first looks in a window of fixed radius around the reported
// position and picks the occurrence nearest to it. If the window has no
// occurrence the whole text is searched and the first occurrence wins. The
// global fallback is a heuristic: when a span repeats and the hint is far
// off, the earliest occurrence is returned even if another was intended.
package anchor

import (
	"strings"
	"unicode/utf8"

	"proofread/internal/textindex"
)

// DefaultWindowRadius is the window radius in codepoints.
const DefaultWindowRadius = 200

// Method records how a span was located.
type Method int

const (
	MethodNone Method = iota
	MethodLocal
	MethodGlobal
)

func (m Method) String() string {
	switch m {
	case MethodLocal:
		return "local"
	case MethodGlobal:
		return "global"
	default:
		return "none"
	}
}

// Resolution is a located span in UTF-16 code units.
type Resolution struct {
	Start  int
	End    int
	Method Method
}

// Found reports whether the span was located.
func (r Resolution) Found() bool {
	return r.Method != MethodNone
}

// Resolver locates spans. The zero value uses DefaultWindowRadius.
type Resolver struct {
	radius int
}

// NewResolver returns a Resolver with the given window radius. A radius
// of zero or less selects DefaultWindowRadius.
func NewResolver(radius int) *Resolver {
	return &Resolver{radius: radius}
}

// Radius returns the effective window radius.
func (r *Resolver) Radius() int {
	if r == nil || r.radius <= 0 {
		return DefaultWindowRadius
	}
	return r.radius
}

// Resolve locates span in text near approxStart, a UTF-16 code-unit
// offset. Pass 0 when the caller has no hint. An empty span is never found.
func (r *Resolver) Resolve(text, span string, approxStart int) Resolution {
	if span == "" {
		return Resolution{}
	}

	hint := textindex.CodeUnitToCodepoint(text, approxStart)
	spanLen := utf8.RuneCountInString(span)
	total := textindex.CodepointLen(text)

	lo := max(0, hint-r.Radius())
	hi := min(total, hint+r.Radius()+spanLen)

	if cp, ok := nearestInWindow(text, span, lo, hi, hint); ok {
		return toResolution(text, cp, spanLen, MethodLocal)
	}

	if b := strings.Index(text, span); b >= 0 {
		return toResolution(text, utf8.RuneCountInString(text[:b]), spanLen, MethodGlobal)
	}
	return Resolution{}
}

// Resolve locates span using the default window radius.
func Resolve(text, span string, approxStart int) Resolution {
	var r Resolver
	return r.Resolve(text, span, approxStart)
}

// nearestInWindow scans the codepoint window [lo, hi) for occurrences of
// span and returns the codepoint index of the one closest to hint. Ties go
// to the earlier occurrence. Overlapping occurrences are considered.
func nearestInWindow(text, span string, lo, hi, hint int) (int, bool) {
	loB := textindex.ByteOffset(text, lo)
	hiB := textindex.ByteOffset(text, hi)
	if hiB-loB < len(span) {
		return 0, false
	}
	window := text[loB:hiB]

	_, step := utf8.DecodeRuneInString(span)
	best, bestDist := -1, 0
	for off := 0; off <= len(window)-len(span); {
		idx := strings.Index(window[off:], span)
		if idx < 0 {
			break
		}
		pos := off + idx
		cp := lo + utf8.RuneCountInString(window[:pos])
		dist := abs(cp - hint)
		if best < 0 || dist < bestDist {
			best, bestDist = cp, dist
		}
		if cp >= hint {
			// every later occurrence is farther away
			break
		}
		off = pos + step
	}
	return best, best >= 0
}

func toResolution(text string, cp, spanLen int, m Method) Resolution {
	return Resolution{
		Start:  textindex.CodepointToCodeUnit(text, cp),
		End:    textindex.CodepointToCodeUnit(text, cp+spanLen),
		Method: m,
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
