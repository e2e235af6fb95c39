// Package analyzer proofreads a document: it prompts the language model,
// then reconciles the response with the document text.
//
// Analyze never returns a Go error. Upstream failures are reported in the
// Result's Status and Err, and callers decide what to show; the usual
// choice is Result.IssuesOrEmpty.
package analyzer

import (
	"context"
	"strings"

	"proofread/internal/intake"
	"proofread/internal/logging"
	"proofread/internal/normalize"
	"proofread/internal/perception"
	"proofread/internal/types"
)

// Status tags the outcome of one analysis.
type Status int

const (
	// StatusOK means the model answered; Issues may still be empty.
	StatusOK Status = iota
	// StatusEmptyText means there was nothing to analyze and no call was made.
	StatusEmptyText
	// StatusUpstreamFailed means the model call failed; Err says why.
	StatusUpstreamFailed
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusEmptyText:
		return "empty_text"
	case StatusUpstreamFailed:
		return "upstream_failed"
	default:
		return "unknown"
	}
}

// Result is the tagged outcome of Analyze.
type Result struct {
	Status Status
	Issues []types.Issue
	// Err is the upstream failure when Status is StatusUpstreamFailed.
	Err    error
	Method intake.Method
	Report normalize.Report
}

// OK reports whether the model was reached.
func (r Result) OK() bool { return r.Status != StatusUpstreamFailed }

// IssuesOrEmpty returns the issues, substituting an empty list when the
// upstream call failed. The result is never nil.
func (r Result) IssuesOrEmpty() []types.Issue {
	if r.Status == StatusUpstreamFailed || r.Issues == nil {
		return []types.Issue{}
	}
	return r.Issues
}

// Analyzer proofreads documents. It is safe for concurrent use when its
// client is.
type Analyzer struct {
	client perception.LLMClient
	engine *Engine
}

// New returns an Analyzer calling client and reconciling with engine. A
// nil engine selects the defaults.
func New(client perception.LLMClient, engine *Engine) *Analyzer {
	if engine == nil {
		engine = NewEngine(nil)
	}
	return &Analyzer{client: client, engine: engine}
}

// Analyze proofreads text. Whitespace-only text short-circuits without an
// upstream call.
func (a *Analyzer) Analyze(ctx context.Context, text string) Result {
	if strings.TrimSpace(text) == "" {
		logging.AnalyzerDebug("empty text, skipping model call")
		return Result{Status: StatusEmptyText, Issues: []types.Issue{}, Method: intake.MethodNone}
	}

	timer := logging.StartTimer(logging.CategoryAnalyzer, "analyze")
	defer timer.Stop()

	payload, err := a.client.CompleteWithSystem(ctx, SystemPrompt, BuildUserPrompt(text))
	if err != nil {
		logging.AnalyzerWarn("model call failed: %v", err)
		return Result{Status: StatusUpstreamFailed, Err: err, Method: intake.MethodNone}
	}

	rec := a.engine.Reconcile(text, payload)
	logging.Analyzer("analyzed %d chars: %d issues (method=%s unresolved=%d)",
		len([]rune(text)), len(rec.Issues), rec.Method, rec.Report.Unresolved)

	return Result{
		Status: StatusOK,
		Issues: rec.Issues,
		Method: rec.Method,
		Report: rec.Report,
	}
}

// Engine returns the analyzer's reconciliation engine.
func (a *Analyzer) Engine() *Engine { return a.engine }
