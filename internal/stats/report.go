package stats

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"knapevo/internal/model"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	headerStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	pickedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF"))
)

// RenderReport prints the best solution as a product/picked table followed
// by its occupied space and total value.
func RenderReport(w io.Writer, record model.RunRecord) error {
	nameWidth := len("Product")
	for _, item := range record.Catalog {
		if len(item.Name) > nameWidth {
			nameWidth = len(item.Name)
		}
	}
	nameCol := lipgloss.NewStyle().Width(nameWidth + 2)

	var b strings.Builder
	b.WriteString(titleStyle.Render("Best solution:"))
	b.WriteByte('\n')
	b.WriteString(nameCol.Render(headerStyle.Render("Product")))
	b.WriteString(headerStyle.Render("Picked"))
	b.WriteByte('\n')
	for i, item := range record.Catalog {
		picked := 0
		if i < len(record.Best.Candidate) {
			picked = record.Best.Candidate[i]
		}
		style := mutedStyle
		if picked > 0 {
			style = pickedStyle
		}
		b.WriteString(nameCol.Render(item.Name))
		b.WriteString(style.Render(strconv.Itoa(picked)))
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	fmt.Fprintf(&b, "Predicted solution occupied space: %.3f\n", record.UsedSpace)
	fmt.Fprintf(&b, "Predicted total value: %.3f\n", record.TotalValue)
	fmt.Fprintf(&b, "Fitness: %s after %s generations (%s)\n",
		humanize.CommafWithDigits(record.Best.Score, 2),
		humanize.Comma(int64(record.CompletedGenerations)),
		record.StopReason,
	)

	_, err := io.WriteString(w, b.String())
	return err
}

// RenderRunList prints one line per run summary.
func RenderRunList(w io.Writer, runs []model.RunSummary) error {
	var b strings.Builder
	for _, run := range runs {
		fmt.Fprintf(&b, "%s\t%s\titems=%d\tcapacity=%g\tseed=%d\tgenerations=%d\tbest=%s\n",
			run.ID,
			humanize.Time(run.CreatedAt),
			run.Items,
			run.Capacity,
			run.Seed,
			run.CompletedGenerations,
			humanize.CommafWithDigits(run.BestScore, 3),
		)
	}
	_, err := io.WriteString(w, b.String())
	return err
}
