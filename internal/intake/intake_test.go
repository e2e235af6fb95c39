package intake

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract_Methods(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		method  Method
		count   int
	}{
		{"bare array", `[{"span":"贵单位","start":0}]`, MethodJSON, 1},
		{"surrounding whitespace", "\n\t [ {\"span\":\"a\"}, {\"span\":\"b\"} ]  \n", MethodJSON, 2},
		{"json fence", "```json\n[{\"span\":\"a\"}]\n```", MethodFenced, 1},
		{"bare fence", "```\n[{\"span\":\"a\"}]\n```", MethodFenced, 1},
		{"single line fence", "```json[{\"span\":\"a\"}]```", MethodFenced, 1},
		{"prose around array", "好的，结果如下：\n[{\"span\":\"a\"}]\n如有疑问请告知。", MethodExtracted, 1},
		{"fence after prose", "结果：\n```json\n[{\"span\":\"a\"}]\n```", MethodExtracted, 1},
		{"wrapped in object", `{"issues": [{"span":"a"},{"span":"b"}]}`, MethodExtracted, 2},
		{"bracketed prose first", "[注] 见下表 [{\"span\":\"a\"}]", MethodExtracted, 1},
		{"citation before array", "参见[1]号文件 [{\"span\":\"a\"}]", MethodExtracted, 1},
		{"numeric list before array", "see [1, 2] then [{\"span\":\"a\"},{\"span\":\"b\"}]", MethodExtracted, 2},
		{"empty array", `[]`, MethodJSON, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Extract(tt.payload)
			assert.Equal(t, tt.method, got.Method)
			assert.Len(t, got.Issues, tt.count)
		})
	}
}

func TestExtract_NotJSON(t *testing.T) {
	payloads := []string{
		"not json at all",
		"",
		"   ",
		`{"issues": "none"}`,
		`null`,
		`"issues"`,
		`[unterminated`,
		"```json\n{\"a\": 1}\n```",
	}
	for _, p := range payloads {
		t.Run(p, func(t *testing.T) {
			got := Extract(p)
			assert.Equal(t, MethodNone, got.Method)
			require.NotNil(t, got.Issues)
			assert.Empty(t, got.Issues)
			assert.Empty(t, Parse(p))
		})
	}
}

func TestExtract_DropsNonObjects(t *testing.T) {
	got := Extract(`[{"span":"a"}, 3, "x", null, [1], {"span":"b"}]`)
	assert.Equal(t, MethodJSON, got.Method)
	assert.Equal(t, 4, got.Dropped)
	require.Len(t, got.Issues, 2)
	assert.Equal(t, "a", got.Issues[0].Span)
	assert.Equal(t, "b", got.Issues[1].Span)
}

func TestExtract_PreservesOrderAndFields(t *testing.T) {
	payload := `[
		{"id":"1","span":"貴單位","start":0,"end":3,"message":"用语不规范","suggestion":"贵单位","severity":"minor"},
		{"id":"2","span":"請貴部門","start":"8","message":"使用简体","suggestion":"请贵部门","severity":"normal"}
	]`
	issues := Parse(payload)
	require.Len(t, issues, 2)

	assert.Equal(t, "1", issues[0].ID)
	assert.Equal(t, "貴單位", issues[0].Span)
	assert.Equal(t, 3, issues[0].EndOr(-1))
	assert.Equal(t, "minor", issues[0].Severity)

	assert.Equal(t, "2", issues[1].ID)
	assert.Equal(t, 8, issues[1].StartOr(-1))
	assert.Nil(t, issues[1].End)
	assert.Equal(t, "请贵部门", issues[1].Suggestion)
}

func TestStripFence(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		fenced bool
	}{
		{"```json\n[1]\n```", "[1]", true},
		{"```JSON\n[1]\n```", "[1]", true},
		{"```\n[1]\n```", "[1]", true},
		{"```json [1]```", "[1]", true},
		{"```json\n[1]", "[1]", true},
		{"[1]", "[1]", false},
	}
	for _, tt := range tests {
		got, fenced := stripFence(tt.in)
		assert.Equal(t, tt.want, got, tt.in)
		assert.Equal(t, tt.fenced, fenced, tt.in)
	}
}

func TestExtract_OnlyCitations(t *testing.T) {
	got := Extract("依据[1]和[2]办理。")
	assert.Equal(t, MethodNone, got.Method)
	assert.Empty(t, got.Issues)
	assert.Zero(t, got.Dropped)
}
