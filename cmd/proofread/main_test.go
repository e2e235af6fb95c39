package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"proofread/internal/config"
	"proofread/internal/perception"
	"proofread/internal/store"
	"proofread/internal/types"
)

type fakeClient struct {
	mu       sync.Mutex
	response string
	err      error
	calls    int
}

func (f *fakeClient) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.response, f.err
}

// execute runs the root command with fresh flag state and captures output.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	resetFlags(rootCmd)

	args = append([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml")}, args...)
	var stdout, stderr bytes.Buffer
	rootCmd.SetArgs(args)
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

// resetFlags restores every flag to its default, including the Changed
// marks that required and exclusive flag groups look at.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

func useFakeClient(t *testing.T, fc *fakeClient) {
	t.Helper()
	t.Setenv("PROOFREAD_LLM_PROVIDER", "siliconflow")
	t.Setenv("SILICONFLOW_API_KEY", "test-key")
	orig := newClient
	newClient = func(ctx context.Context, c *config.Config) (perception.LLMClient, error) { return fc, nil }
	t.Cleanup(func() { newClient = orig })
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestReconcile(t *testing.T) {
	dir := t.TempDir()
	text := writeFile(t, dir, "notice.txt", "关于请贵部门。。。。。。。。。。请贵部门协助办理")
	payload := writeFile(t, dir, "resp.txt", "```json\n"+`[{"span":"请贵部门","start":14,"end":18,"severity":"MAJOR"}]`+"\n```")

	out, stderr, err := execute(t, "reconcile", "--text", text, "--payload", payload, "--summary")
	require.NoError(t, err)

	var issues []types.Issue
	require.NoError(t, json.Unmarshal([]byte(out), &issues))
	require.Len(t, issues, 1)
	assert.Equal(t, 16, issues[0].Start)
	assert.Equal(t, 20, issues[0].End)
	assert.Equal(t, types.SeverityMajor, issues[0].Severity)
	assert.NotEmpty(t, issues[0].ID)
	assert.Contains(t, stderr, "method=json_fenced")
	assert.Contains(t, stderr, "local=1")
}

func TestReconcile_MalformedPayload(t *testing.T) {
	dir := t.TempDir()
	text := writeFile(t, dir, "notice.txt", "正文")
	payload := writeFile(t, dir, "resp.txt", "抱歉，我无法完成。")

	out, _, err := execute(t, "reconcile", "--text", text, "--payload", payload)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, out)
}

func TestReconcile_MissingPayload(t *testing.T) {
	dir := t.TempDir()
	text := writeFile(t, dir, "notice.txt", "正文")

	_, _, err := execute(t, "reconcile", "--text", text, "--payload", filepath.Join(dir, "nope.txt"))
	assert.Error(t, err)
}

func TestCheck_JSON(t *testing.T) {
	fc := &fakeClient{response: `[{"span":"貴單位","start":5,"suggestion":"贵单位","severity":"minor"}]`}
	useFakeClient(t, fc)

	dir := t.TempDir()
	good := writeFile(t, dir, "notice.txt", "貴單位已收到来函")
	missing := filepath.Join(dir, "missing.txt")

	out, _, err := execute(t, "check", good, missing)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 files failed")

	var reports []fileReport
	require.NoError(t, json.Unmarshal([]byte(out), &reports))
	require.Len(t, reports, 2)

	assert.Equal(t, good, reports[0].File)
	assert.Equal(t, "ok", reports[0].Status)
	require.Len(t, reports[0].Issues, 1)
	assert.Equal(t, 0, reports[0].Issues[0].Start)
	assert.Equal(t, 3, reports[0].Issues[0].End)

	assert.Equal(t, missing, reports[1].File)
	assert.Equal(t, "extract_failed", reports[1].Status)
	assert.NotNil(t, reports[1].Issues)
	assert.Empty(t, reports[1].Issues)

	assert.Equal(t, 1, fc.calls)
}

func TestCheck_UpstreamFailure(t *testing.T) {
	useFakeClient(t, &fakeClient{err: errors.New("connection refused")})
	path := writeFile(t, t.TempDir(), "notice.txt", "正文")

	out, _, err := execute(t, "check", path)
	require.Error(t, err)

	var reports []fileReport
	require.NoError(t, json.Unmarshal([]byte(out), &reports))
	require.Len(t, reports, 1)
	assert.Equal(t, "upstream_failed", reports[0].Status)
	assert.Contains(t, reports[0].Error, "connection refused")
	assert.NotNil(t, reports[0].Issues)
}

func TestCheck_TextFormat(t *testing.T) {
	useFakeClient(t, &fakeClient{response: `[{"span":"貴單位","start":0,"message":"用语不规范","suggestion":"贵单位"}]`})
	path := writeFile(t, t.TempDir(), "notice.txt", "第一行\n貴單位已收到来函")

	out, _, err := execute(t, "check", "--format", "text", path)
	require.NoError(t, err)
	assert.Contains(t, out, "notice.txt")
	assert.Contains(t, out, "2:1")
	assert.Contains(t, out, "[normal]")
	assert.Contains(t, out, "贵单位")
	assert.Contains(t, out, "用语不规范")
}

func TestCheck_Trace(t *testing.T) {
	useFakeClient(t, &fakeClient{response: `[]`})
	dir := t.TempDir()
	path := writeFile(t, dir, "notice.txt", "正文")
	trace := filepath.Join(dir, "trace.jsonl")

	_, _, err := execute(t, "check", "--trace", trace, path)
	require.NoError(t, err)

	data, err := os.ReadFile(trace)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var tr perception.Trace
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &tr))
	assert.True(t, tr.Success)
	assert.Equal(t, "[]", tr.Response)
	assert.Contains(t, tr.UserPrompt, "正文")
}

func TestCheck_TraceDBReplay(t *testing.T) {
	useFakeClient(t, &fakeClient{response: `[{"span":"来函","start":0,"message":"示例"}]`})
	dir := t.TempDir()
	path := writeFile(t, dir, "notice.txt", "貴單位已收到来函")
	db := filepath.Join(dir, "traces.db")

	_, _, err := execute(t, "check", "--trace", db, path)
	require.NoError(t, err)

	ts, err := store.Open(db)
	require.NoError(t, err)
	traces, err := ts.Recent(10)
	require.NoError(t, err)
	require.NoError(t, ts.Close())
	require.Len(t, traces, 1)

	out, _, err := execute(t, "reconcile", "--text", path, "--trace", db, "--trace-id", traces[0].ID)
	require.NoError(t, err)

	var issues []types.Issue
	require.NoError(t, json.Unmarshal([]byte(out), &issues))
	require.Len(t, issues, 1)
	assert.Equal(t, 6, issues[0].Start)
	assert.Equal(t, 8, issues[0].End)
}

func TestReconcile_NeedsPayloadSource(t *testing.T) {
	text := writeFile(t, t.TempDir(), "notice.txt", "正文")
	_, _, err := execute(t, "reconcile", "--text", text)
	assert.ErrorContains(t, err, "--payload")
}

func TestCheck_MarkdownFormat(t *testing.T) {
	useFakeClient(t, &fakeClient{response: `[{"span":"貴單位","start":0,"suggestion":"贵单位","severity":"major"}]`})
	path := writeFile(t, t.TempDir(), "notice.txt", "貴單位已收到来函")

	out, _, err := execute(t, "check", "--format", "markdown", path)
	require.NoError(t, err)
	assert.Contains(t, out, "貴單位")
	assert.Contains(t, out, "贵单位")
	assert.Contains(t, out, "major")
}

func TestCheck_BadFormat(t *testing.T) {
	useFakeClient(t, &fakeClient{})
	_, _, err := execute(t, "check", "--format", "xml", "x.txt")
	assert.ErrorContains(t, err, "unknown format")
}

func TestCheck_MissingKey(t *testing.T) {
	t.Setenv("PROOFREAD_LLM_PROVIDER", "siliconflow")
	t.Setenv("SILICONFLOW_API_KEY", "")
	path := writeFile(t, t.TempDir(), "notice.txt", "正文")

	_, _, err := execute(t, "check", path)
	assert.ErrorContains(t, err, "SILICONFLOW_API_KEY")
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "proofread.yaml")

	out, _, err := execute(t, "config", "init", path)
	require.NoError(t, err)
	assert.Contains(t, out, path)

	loaded, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultWindowRadius, loaded.Analysis.WindowRadius)

	_, _, err = execute(t, "config", "init", path)
	assert.ErrorContains(t, err, "already exists")

	_, _, err = execute(t, "config", "init", "--force", path)
	assert.NoError(t, err)
}

func TestConfigShow_MasksKey(t *testing.T) {
	t.Setenv("PROOFREAD_LLM_PROVIDER", "siliconflow")
	t.Setenv("SILICONFLOW_API_KEY", "sk-secret")

	out, _, err := execute(t, "config", "show")
	require.NoError(t, err)
	assert.NotContains(t, out, "sk-secret")
	assert.Contains(t, out, "****")
}

func TestPosition(t *testing.T) {
	tests := []struct {
		text      string
		cu        int
		line, col int
	}{
		{"abc", 0, 1, 1},
		{"abc", 2, 1, 3},
		{"ab\ncd", 3, 2, 1},
		{"ab\ncd", 4, 2, 2},
		{"😀x\ny", 2, 1, 2},
		{"😀x\ny", 4, 2, 1},
		{"", 0, 1, 1},
	}
	for _, tt := range tests {
		line, col := position(tt.text, tt.cu)
		assert.Equal(t, tt.line, line, "%q@%d", tt.text, tt.cu)
		assert.Equal(t, tt.col, col, "%q@%d", tt.text, tt.cu)
	}
}

func TestCheck_TraceDBReplayNewest(t *testing.T) {
	useFakeClient(t, &fakeClient{response: `[{"span":"来函","start":0,"message":"示例"}]`})
	dir := t.TempDir()
	path := writeFile(t, dir, "notice.txt", "貴單位已收到来函")
	db := filepath.Join(dir, "traces.db")

	_, _, err := execute(t, "check", "--trace", db, path)
	require.NoError(t, err)

	out, _, err := execute(t, "reconcile", "--text", path, "--trace", db)
	require.NoError(t, err)

	var issues []types.Issue
	require.NoError(t, json.Unmarshal([]byte(out), &issues))
	require.Len(t, issues, 1)
	assert.Equal(t, 6, issues[0].Start)
	assert.Equal(t, 8, issues[0].End)
}

func TestReconcile_EmptyTraceDB(t *testing.T) {
	dir := t.TempDir()
	text := writeFile(t, dir, "notice.txt", "正文")
	db := filepath.Join(dir, "traces.db")
	ts, err := store.Open(db)
	require.NoError(t, err)
	require.NoError(t, ts.Close())

	_, _, err = execute(t, "reconcile", "--text", text, "--trace", db)
	assert.ErrorIs(t, err, store.ErrTraceNotFound)
}

func TestReconcile_TraceIDNeedsTrace(t *testing.T) {
	text := writeFile(t, t.TempDir(), "notice.txt", "正文")
	_, _, err := execute(t, "reconcile", "--text", text, "--payload", text, "--trace-id", "abc")
	assert.ErrorContains(t, err, "--trace-id requires --trace")
}

func TestTraceList(t *testing.T) {
	useFakeClient(t, &fakeClient{response: `[]`})
	dir := t.TempDir()
	first := writeFile(t, dir, "a.txt", "正文一")
	second := writeFile(t, dir, "b.txt", "正文二")
	db := filepath.Join(dir, "traces.db")

	_, _, err := execute(t, "check", "--trace", db, first)
	require.NoError(t, err)
	_, _, err = execute(t, "check", "--trace", db, second)
	require.NoError(t, err)

	ts, err := store.Open(db)
	require.NoError(t, err)
	stored, err := ts.Recent(10)
	require.NoError(t, err)
	require.NoError(t, ts.Close())
	require.Len(t, stored, 2)

	out, _, err := execute(t, "trace", "list", "--format", "json", db)
	require.NoError(t, err)
	var listed []traceSummary
	require.NoError(t, json.Unmarshal([]byte(out), &listed))
	require.Len(t, listed, 2)
	assert.Equal(t, stored[0].ID, listed[0].ID)
	assert.Equal(t, stored[1].ID, listed[1].ID)
	assert.True(t, listed[0].Success)
	assert.Equal(t, 2, listed[0].ResponseLen)

	out, _, err = execute(t, "trace", "list", "-n", "1", db)
	require.NoError(t, err)
	assert.Contains(t, out, stored[0].ID)
	assert.NotContains(t, out, stored[1].ID)
}

func TestTraceList_RejectsJSONL(t *testing.T) {
	_, _, err := execute(t, "trace", "list", filepath.Join(t.TempDir(), "trace.jsonl"))
	assert.ErrorContains(t, err, "not a trace database")
}

func TestCheck_HTML(t *testing.T) {
	fc := &fakeClient{response: `[{"span":"貴單位","start":0,"suggestion":"贵单位"}]`}
	useFakeClient(t, fc)
	path := writeFile(t, t.TempDir(), "notice.html",
		"<html><head><title>x</title></head><body><h1>通知</h1><p>貴單位已收到来函</p></body></html>")

	out, _, err := execute(t, "check", path)
	require.NoError(t, err)

	var reports []fileReport
	require.NoError(t, json.Unmarshal([]byte(out), &reports))
	require.Len(t, reports, 1)
	require.Len(t, reports[0].Issues, 1)
	assert.Equal(t, 3, reports[0].Issues[0].Start)
	assert.Equal(t, 6, reports[0].Issues[0].End)
	assert.Contains(t, checkCmd.Short, ".html")
}
