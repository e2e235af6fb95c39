package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"proofread/internal/textindex"
	"proofread/internal/types"
)

const (
	formatJSON     = "json"
	formatText     = "text"
	formatMarkdown = "markdown"
)

// fileReport is the check result for one file.
type fileReport struct {
	File   string        `json:"file"`
	Status string        `json:"status"`
	Error  string        `json:"error,omitempty"`
	Issues []types.Issue `json:"issues"`

	text string
}

var (
	fileStyle       = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	posStyle        = lipgloss.NewStyle().Faint(true)
	spanStyle       = lipgloss.NewStyle().Underline(true)
	suggestionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575"))
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F87"))

	severityStyles = map[types.Severity]lipgloss.Style{
		types.SeverityMajor:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF5F87")),
		types.SeverityNormal: lipgloss.NewStyle().Foreground(lipgloss.Color("#FFB86C")),
		types.SeverityMinor:  lipgloss.NewStyle().Faint(true),
	}
)

func checkFormat(format string) error {
	switch format {
	case formatJSON, formatText, formatMarkdown:
		return nil
	}
	return fmt.Errorf("unknown format %q (valid: %s, %s, %s)", format, formatJSON, formatText, formatMarkdown)
}

func emptyIssues() []types.Issue { return []types.Issue{} }

func writeReports(w io.Writer, format string, reports []fileReport) error {
	switch format {
	case formatText:
		for i, r := range reports {
			if i > 0 {
				fmt.Fprintln(w)
			}
			fmt.Fprint(w, renderText(r))
		}
		return nil
	case formatMarkdown:
		var sb strings.Builder
		for _, r := range reports {
			sb.WriteString(renderMarkdown(r))
		}
		return writeMarkdown(w, sb.String())
	}
	return writeJSON(w, reports)
}

// writeIssues prints a bare issue list.
func writeIssues(w io.Writer, format, text string, issues []types.Issue) error {
	if issues == nil {
		issues = emptyIssues()
	}
	rep := fileReport{Status: "ok", Issues: issues, text: text}
	switch format {
	case formatText:
		fmt.Fprint(w, renderText(rep))
		return nil
	case formatMarkdown:
		return writeMarkdown(w, renderMarkdown(rep))
	}
	return writeJSON(w, issues)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeMarkdown(w io.Writer, md string) error {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return fmt.Errorf("failed to create markdown renderer: %w", err)
	}
	out, err := renderer.Render(md)
	if err != nil {
		return fmt.Errorf("failed to render markdown: %w", err)
	}
	_, err = io.WriteString(w, out)
	return err
}

func renderText(r fileReport) string {
	var sb strings.Builder
	if r.File != "" {
		sb.WriteString(fileStyle.Render(r.File))
		sb.WriteString("\n")
	}
	if r.Error != "" {
		sb.WriteString("  " + errorStyle.Render(r.Status+": "+r.Error) + "\n")
		return sb.String()
	}
	if len(r.Issues) == 0 {
		sb.WriteString("  " + posStyle.Render("no issues") + "\n")
		return sb.String()
	}
	for _, iss := range r.Issues {
		line, col := position(r.text, iss.Start)
		sev, ok := severityStyles[iss.Severity]
		if !ok {
			sev = severityStyles[types.SeverityNormal]
		}
		fmt.Fprintf(&sb, "  %s %s %s",
			posStyle.Render(fmt.Sprintf("%d:%d", line, col)),
			sev.Render("["+iss.Severity.String()+"]"),
			spanStyle.Render(iss.Span))
		if iss.Suggestion != "" {
			sb.WriteString(" → " + suggestionStyle.Render(iss.Suggestion))
		}
		if iss.Message != "" {
			sb.WriteString("  " + iss.Message)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func renderMarkdown(r fileReport) string {
	var sb strings.Builder
	if r.File != "" {
		fmt.Fprintf(&sb, "## %s\n\n", r.File)
	}
	if r.Error != "" {
		fmt.Fprintf(&sb, "**%s**: %s\n\n", r.Status, r.Error)
		return sb.String()
	}
	if len(r.Issues) == 0 {
		sb.WriteString("_no issues_\n\n")
		return sb.String()
	}
	sb.WriteString("| Position | Severity | Text | Suggestion | Note |\n")
	sb.WriteString("|---|---|---|---|---|\n")
	for _, iss := range r.Issues {
		line, col := position(r.text, iss.Start)
		fmt.Fprintf(&sb, "| %d:%d | %s | %s | %s | %s |\n",
			line, col, iss.Severity, cell(iss.Span), cell(iss.Suggestion), cell(iss.Message))
	}
	sb.WriteString("\n")
	return sb.String()
}

// cell escapes a value for a markdown table cell.
func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}

// position returns the 1-based line and column, in codepoints, of the
// code-unit offset cu.
func position(text string, cu int) (int, int) {
	cp := textindex.CodeUnitToCodepoint(text, cu)
	line, col := 1, 1
	i := 0
	for _, r := range text {
		if i == cp {
			break
		}
		if r == '\n' {
			line++
			col = 1
		} else {
			col++
		}
		i++
	}
	return line, col
}
