package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"proofread/internal/anchor"
	"proofread/internal/intake"
	"proofread/internal/normalize"
)

func TestEngine_Reconcile(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		payload string
		method  intake.Method
		ranges  [][2]int
	}{
		{
			name:    "exact offsets",
			text:    "贵单位已收到来函",
			payload: `[{"span":"贵单位","start":0}]`,
			method:  intake.MethodJSON,
			ranges:  [][2]int{{0, 3}},
		},
		{
			name:    "wrong offsets are reanchored",
			text:    "关于请贵部门" + "。。。。。。。。。。" + "请贵部门协助办理",
			payload: `好的：[{"span":"请贵部门","start":14,"end":18}]`,
			method:  intake.MethodExtracted,
			ranges:  [][2]int{{16, 20}},
		},
		{
			name:    "not json",
			text:    "正文",
			payload: "not json at all",
			method:  intake.MethodNone,
			ranges:  [][2]int{},
		},
		{
			name:    "out of range without span",
			text:    "请贵部门协助办理为盼",
			payload: `[{"start":-5,"end":100000,"span":""}]`,
			method:  intake.MethodJSON,
			ranges:  [][2]int{{0, 10}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := NewEngine(nil).Reconcile(tt.text, tt.payload)
			assert.Equal(t, tt.method, rec.Method)
			require.Len(t, rec.Issues, len(tt.ranges))
			for i, r := range tt.ranges {
				assert.Equal(t, r[0], rec.Issues[i].Start)
				assert.Equal(t, r[1], rec.Issues[i].End)
			}
		})
	}
}

func TestEngine_CustomRadius(t *testing.T) {
	text := "请贵部门" + "。。。。。。。。。。" + "请贵部门"
	payload := `[{"span":"请贵部门","start":13}]`

	wide := NewEngine(nil).Reconcile(text, payload)
	narrow := NewEngine(normalize.New(normalize.WithResolver(anchor.NewResolver(1)))).Reconcile(text, payload)

	require.Len(t, wide.Issues, 1)
	require.Len(t, narrow.Issues, 1)
	assert.Equal(t, 14, wide.Issues[0].Start)
	assert.Equal(t, 14, narrow.Issues[0].Start)
	assert.Equal(t, 1, narrow.Report.ResolvedLocal)
}
