// Package report renders an analysis result as Markdown and HTML.
package report

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"kpijoin/domain/kpi"
	"kpijoin/internal/errors"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// Title heads every rendered report
const Title = "KPI Analysis"

// Markdown renders KPIs, tips and the monthly trend as a Markdown document
func Markdown(result *kpi.Result) (string, error) {
	if result == nil {
		return "", errors.NothingToExport()
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("# %s\n\n", Title))
	if result.Source != "" {
		b.WriteString(fmt.Sprintf("Source: **%s** (%d rows)", result.Source, result.RowCount))
		if !result.AnalyzedAt.IsZero() {
			b.WriteString(fmt.Sprintf(", analyzed %s", result.AnalyzedAt.UTC().Format("2006-01-02 15:04 MST")))
		}
		b.WriteString("\n\n")
	}

	b.WriteString("## KPIs\n\n")
	if len(result.KPIs) == 0 {
		b.WriteString("No KPIs could be computed for this dataset.\n\n")
	} else {
		b.WriteString("| KPI | Value |\n|---|---:|\n")
		for _, k := range result.KPIs {
			b.WriteString(fmt.Sprintf("| %s | %s |\n", escapeCell(k.Name), escapeCell(formatValue(k.Value))))
		}
		b.WriteString("\n")
	}

	b.WriteString("## Tips\n\n")
	if len(result.Tips) == 0 {
		b.WriteString("Nothing to flag.\n\n")
	} else {
		for _, tip := range result.Tips {
			b.WriteString("- " + escapeText(tip) + "\n")
		}
		b.WriteString("\n")
	}

	if result.HasTrend {
		b.WriteString("## Monthly units\n\n")
		b.WriteString("| Month | Count |\n|---|---:|\n")
		for _, p := range result.Trend {
			b.WriteString(fmt.Sprintf("| %s | %s |\n", p.Month, formatNumber(p.Count)))
		}
		b.WriteString("\n")
	}

	return b.String(), nil
}

// HTML renders the Markdown report as a standalone page
func HTML(result *kpi.Result) ([]byte, error) {
	md, err := Markdown(result)
	if err != nil {
		return nil, err
	}

	p := parser.NewWithExtensions(parser.CommonExtensions)
	doc := p.Parse([]byte(md))

	renderer := html.NewRenderer(html.RendererOptions{
		Title: Title,
		Flags: html.CommonFlags | html.CompletePage | html.SkipHTML | html.Safelink,
	})
	return markdown.Render(doc, renderer), nil
}

func formatValue(v kpi.Value) string {
	if v.IsText {
		return v.Str
	}
	return formatNumber(v.Num)
}

func formatNumber(n float64) string {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return "n/a"
	}
	return strconv.FormatFloat(n, 'f', -1, 64)
}

// markdownEscaper backslash-escapes everything that could turn cell text into
// markup, raw HTML or a link
var markdownEscaper = strings.NewReplacer(
	`\`, `\\`, "`", "\\`", "*", `\*`, "_", `\_`, "[", `\[`, "]", `\]`,
	"<", `\<`, ">", `\>`, "&", `\&`, "~", `\~`, "$", `\$`,
)

func escapeText(s string) string {
	return markdownEscaper.Replace(s)
}

func escapeCell(s string) string {
	return strings.ReplaceAll(escapeText(s), "|", `\|`)
}
