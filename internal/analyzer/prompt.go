package analyzer

import (
	"fmt"
	"strings"
)

// SystemPrompt instructs the model to report issues as a bare JSON array
// with the fields the intake stage reads.
const SystemPrompt = `你是一名资深的公文校对专家，熟悉《党政机关公文格式》与《党政机关公文处理工作条例》。
请逐句校对用户提供的公文全文，找出以下问题：
- 错别字、繁体字、异体字
- 标点符号误用
- 不规范的公文用语与称谓
- 语法错误与搭配不当
- 数字、日期、计量单位书写不规范

输出要求：
1. 只输出一个 JSON 数组，不要输出任何解释、前言或 Markdown 代码块。
2. 数组每个元素是一个对象，字段如下：
   - "span": 原文中需要修改的片段，必须与原文逐字一致
   - "start": 该片段在全文中的起始位置（从 0 开始计数的字符下标）
   - "end": 该片段的结束位置（不含）
   - "message": 问题说明
   - "suggestion": 修改后的文字
   - "severity": "minor"、"normal" 或 "major" 之一
3. 没有发现问题时输出 []。`

// BuildUserPrompt wraps the document text for the model.
func BuildUserPrompt(text string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "以下是待校对的公文全文，共 %d 个字符：\n", len([]rune(text)))
	sb.WriteString("<<<\n")
	sb.WriteString(text)
	sb.WriteString("\n>>>")
	return sb.String()
}
