package analyzer

import (
	"proofread/internal/intake"
	"proofread/internal/logging"
	"proofread/internal/normalize"
	"proofread/internal/types"
)

// Engine is the offline part of analysis: it reads a model response and
// reconciles its issues with the document text. It never fails and is safe
// for concurrent use.
type Engine struct {
	normalizer *normalize.Normalizer
}

// NewEngine returns an Engine using n, or a default Normalizer when n is nil.
func NewEngine(n *normalize.Normalizer) *Engine {
	if n == nil {
		n = normalize.New()
	}
	return &Engine{normalizer: n}
}

// Reconciliation is the outcome of reconciling one payload.
type Reconciliation struct {
	Issues []types.Issue
	Method intake.Method
	// Dropped counts array elements that were not issue objects.
	Dropped int
	Report  normalize.Report
}

// Reconcile parses payload and normalizes its issues against text.
func (e *Engine) Reconcile(text, payload string) Reconciliation {
	ext := intake.Extract(payload)
	if ext.Method == intake.MethodNone && len(payload) > 0 {
		logging.IntakeWarn("no issue array in model response (len=%d)", len(payload))
	} else {
		logging.IntakeDebug("parsed %d issues via %s, dropped %d", len(ext.Issues), ext.Method, ext.Dropped)
	}

	issues, rep := e.normalizer.NormalizeWithReport(text, ext.Issues)
	return Reconciliation{
		Issues:  issues,
		Method:  ext.Method,
		Dropped: ext.Dropped,
		Report:  rep,
	}
}
