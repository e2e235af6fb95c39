package perception

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"proofread/internal/logging"
)

// Trace captures one LLM interaction.
type Trace struct {
	ID           string    `json:"id"`
	Model        string    `json:"model,omitempty"`
	SystemPrompt string    `json:"system_prompt"`
	UserPrompt   string    `json:"user_prompt"`
	Response     string    `json:"response"`
	DurationMs   int64     `json:"duration_ms"`
	Success      bool      `json:"success"`
	ErrorMessage string    `json:"error_message,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// TraceStore defines the interface for storing traces.
type TraceStore interface {
	StoreTrace(trace *Trace) error
}

type modelGetter interface {
	GetModel() string
}

// TracingClient wraps any LLMClient, logs each call and, when a store is
// set, records it. Saved traces let a response be replayed offline through
// the reconcile command.
type TracingClient struct {
	underlying LLMClient
	store      TraceStore
}

// NewTracingClient creates a tracing wrapper around an existing client.
// store may be nil.
func NewTracingClient(underlying LLMClient, store TraceStore) *TracingClient {
	return &TracingClient{underlying: underlying, store: store}
}

// CompleteWithSystem implements LLMClient with tracing.
func (tc *TracingClient) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	start := time.Now()
	logging.API("LLM call started: prompt_len=%d", len(userPrompt))

	response, err := tc.underlying.CompleteWithSystem(ctx, systemPrompt, userPrompt)

	duration := time.Since(start)
	if err != nil {
		logging.APIWarn("LLM call failed: duration=%v error=%v", duration, err)
	} else {
		logging.API("LLM call completed: duration=%v response_len=%d", duration, len(response))
	}

	if tc.store == nil {
		return response, err
	}

	trace := &Trace{
		ID:           uuid.NewString(),
		SystemPrompt: systemPrompt,
		UserPrompt:   userPrompt,
		Response:     response,
		DurationMs:   duration.Milliseconds(),
		Success:      err == nil,
		Timestamp:    start,
	}
	if mg, ok := tc.underlying.(modelGetter); ok {
		trace.Model = mg.GetModel()
	}
	if err != nil {
		trace.ErrorMessage = err.Error()
	}
	if storeErr := tc.store.StoreTrace(trace); storeErr != nil {
		logging.APIError("Failed to store trace %s: %v", trace.ID, storeErr)
	} else {
		logging.API("trace stored: id=%s", trace.ID)
	}

	return response, err
}

// JSONLTraceStore writes one JSON object per line. Safe for concurrent use.
type JSONLTraceStore struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewJSONLTraceStore returns a store writing to w.
func NewJSONLTraceStore(w io.Writer) *JSONLTraceStore {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &JSONLTraceStore{enc: enc}
}

// StoreTrace appends trace as one line.
func (s *JSONLTraceStore) StoreTrace(trace *Trace) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enc.Encode(trace); err != nil {
		return fmt.Errorf("failed to write trace: %w", err)
	}
	return nil
}
