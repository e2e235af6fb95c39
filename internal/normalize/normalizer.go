// Package normalize turns raw issues into well-formed issues against the
// text they were reported for.
//
// Every output issue satisfies 0 <= Start <= End <= len(text) in UTF-16
// code units, has a non-empty id unique within its batch, and a canonical
// severity. Offsets never split a surrogate pair. Normalizing an already
// normalized batch against the same text returns it unchanged.
package normalize

import (
	"strings"

	"github.com/google/uuid"

	"proofread/internal/anchor"
	"proofread/internal/logging"
	"proofread/internal/textindex"
	"proofread/internal/types"
)

// IDGenerator returns a fresh issue id.
type IDGenerator func() string

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithResolver sets the span resolver.
func WithResolver(r *anchor.Resolver) Option {
	return func(n *Normalizer) {
		if r != nil {
			n.resolver = r
		}
	}
}

// WithIDGenerator replaces the random id source.
func WithIDGenerator(gen IDGenerator) Option {
	return func(n *Normalizer) {
		if gen != nil {
			n.newID = gen
		}
	}
}

// Normalizer reconciles raw issues with document text. It holds no
// per-batch state and is safe for concurrent use.
type Normalizer struct {
	resolver *anchor.Resolver
	newID    IDGenerator
}

// New returns a Normalizer using the default window radius and random
// UUIDs unless overridden.
func New(opts ...Option) *Normalizer {
	n := &Normalizer{
		resolver: anchor.NewResolver(anchor.DefaultWindowRadius),
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Report summarizes one batch.
type Report struct {
	Total          int
	ResolvedLocal  int
	ResolvedGlobal int
	Unresolved     int // had a span that was not found in the text
	NoSpan         int // had no span; raw offsets used
	Clamped        int // at least one offset moved into range
	Collapsed      int // end before start, collapsed to an empty range
	GeneratedIDs   int
}

// Normalize returns one issue per raw issue, in input order.
func (n *Normalizer) Normalize(text string, raws []types.RawIssue) []types.Issue {
	issues, _ := n.NormalizeWithReport(text, raws)
	return issues
}

// NormalizeWithReport is Normalize plus batch statistics.
func (n *Normalizer) NormalizeWithReport(text string, raws []types.RawIssue) ([]types.Issue, Report) {
	rep := Report{Total: len(raws)}
	issues := make([]types.Issue, 0, len(raws))
	seen := make(map[string]struct{}, len(raws))
	total := textindex.CodeUnitLen(text)

	for _, raw := range raws {
		id := strings.TrimSpace(raw.ID)
		if _, dup := seen[id]; id == "" || dup {
			id = n.freshID(seen)
			rep.GeneratedIDs++
		}
		seen[id] = struct{}{}

		start, end := n.locate(text, raw, &rep)

		var startMoved, endMoved bool
		start, startMoved = clamp(start, total)
		end, endMoved = clamp(end, total)
		if startMoved || endMoved {
			rep.Clamped++
		}
		start = textindex.SnapCodeUnit(text, start)
		end = textindex.SnapCodeUnit(text, end)
		if end < start {
			end = start
			rep.Collapsed++
		}

		span := raw.Span
		if span == "" {
			span = textindex.SliceCodeUnits(text, start, end)
		}

		issues = append(issues, types.Issue{
			ID:         id,
			Start:      start,
			End:        end,
			Span:       span,
			Message:    raw.Message,
			Suggestion: raw.Suggestion,
			Severity:   types.ParseSeverity(raw.Severity),
		})
	}

	logging.NormalizeDebug("normalized %d issues: local=%d global=%d unresolved=%d no_span=%d clamped=%d collapsed=%d generated_ids=%d",
		rep.Total, rep.ResolvedLocal, rep.ResolvedGlobal, rep.Unresolved, rep.NoSpan, rep.Clamped, rep.Collapsed, rep.GeneratedIDs)
	return issues, rep
}

// locate returns the unclamped range for raw: the reanchored span when it
// can be found, otherwise the raw offsets with absent values as zero.
func (n *Normalizer) locate(text string, raw types.RawIssue, rep *Report) (int, int) {
	if raw.Span == "" {
		rep.NoSpan++
		return raw.StartOr(0), raw.EndOr(0)
	}

	res := n.resolver.Resolve(text, raw.Span, raw.StartOr(0))
	switch res.Method {
	case anchor.MethodLocal:
		rep.ResolvedLocal++
	case anchor.MethodGlobal:
		rep.ResolvedGlobal++
	default:
		rep.Unresolved++
		logging.AnchorDebug("span %q not found near %d", raw.Span, raw.StartOr(0))
		return raw.StartOr(0), raw.EndOr(0)
	}
	return res.Start, res.End
}

func (n *Normalizer) freshID(seen map[string]struct{}) string {
	for {
		id := n.newID()
		if _, dup := seen[id]; id != "" && !dup {
			return id
		}
	}
}

// Normalize normalizes raws with a default Normalizer.
func Normalize(text string, raws []types.RawIssue) []types.Issue {
	return New().Normalize(text, raws)
}

func clamp(v, total int) (int, bool) {
	switch {
	case v < 0:
		return 0, true
	case v > total:
		return total, true
	}
	return v, false
}
