// Package report renders retainer and workload reports for the terminal.
package report

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/rpggio/agencyops/internal/domain/retainer"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))

	levelColors = map[retainer.Level]lipgloss.Color{
		retainer.LevelHealthy:  lipgloss.Color("#4CAF50"),
		retainer.LevelWarning:  lipgloss.Color("#FFB300"),
		retainer.LevelCritical: lipgloss.Color("#FF6B00"),
		retainer.LevelExceeded: lipgloss.Color("#FF3B3B"),
	}
)

// Retainers writes the monthly status of every retainer client.
func Retainers(w io.Writer, r *retainer.Report) error {
	rows := make([][]string, 0, len(r.Retainers))
	for _, s := range r.Retainers {
		rows = append(rows, []string{
			s.ClientName,
			hours(s.AllocatedHours),
			hours(s.UsedHours),
			hours(s.RemainingHours),
			strconv.Itoa(s.PercentUsed) + "%",
			string(s.Status),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("#444444"))).
		Headers("CLIENT", "ALLOCATED", "USED", "REMAINING", "%", "STATUS").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == 5 && row >= 0 && row < len(r.Retainers) {
				return cellStyle.Foreground(levelColors[r.Retainers[row].Status])
			}
			return cellStyle
		})

	sum := r.Summary
	footer := fmt.Sprintf("%d clients: %d exceeded, %d critical, %d warning, %d healthy",
		sum.Total, sum.Exceeded, sum.Critical, sum.Warning, sum.Healthy)

	_, err := fmt.Fprintln(w, strings.Join([]string{
		titleStyle.Render("Retainers · " + r.Month),
		t.Render(),
		mutedStyle.Render(footer),
	}, "\n"))
	return err
}

// Usage writes the realized and projected usage of one client.
func Usage(w io.Writer, clientName string, u *retainer.Usage) error {
	limit := int(math.Round(u.RetainerHours * 60))
	lines := []string{
		titleStyle.Render(fmt.Sprintf("%s · %s", clientName, u.Month)),
		fmt.Sprintf("Retainer   %s h (%d min)", hours(u.RetainerHours), limit),
		fmt.Sprintf("Used       %d min, overage %d min", u.UsedMinutes, u.OverageMinutes),
		fmt.Sprintf("Scheduled  %d min across %d tasks", u.ScheduledMinutes, len(u.ScheduledTasks)),
		fmt.Sprintf("Projected  %d min, overage %d min", u.ProjectedTotalMinutes, u.ProjectedOverageMinutes),
		mutedStyle.Render(fmt.Sprintf("Unscheduled: %d tasks, up to %d min", u.UnscheduledTasksCount, u.UnscheduledMinutes)),
	}

	if len(u.Tasks) > 0 {
		rows := make([][]string, 0, len(u.Tasks))
		for _, rt := range u.Tasks {
			project := ""
			if rt.ProjectName != nil {
				project = *rt.ProjectName
			}
			rows = append(rows, []string{rt.Title, project, strconv.Itoa(rt.TimeSpentMinutes)})
		}
		t := table.New().
			Border(lipgloss.NormalBorder()).
			Headers("TASK", "PROJECT", "MIN").
			Rows(rows...).
			StyleFunc(func(row, col int) lipgloss.Style {
				if row == table.HeaderRow {
					return headerStyle
				}
				return cellStyle
			})
		lines = append(lines, t.Render())
	}

	_, err := fmt.Fprintln(w, strings.Join(lines, "\n"))
	return err
}

func hours(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
