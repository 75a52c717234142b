package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/rpggio/agencyops/internal/domain/workload"
)

var utilizationColors = map[workload.Level]lipgloss.Color{
	workload.LevelUnder:  lipgloss.Color("#FFB300"),
	workload.LevelTarget: lipgloss.Color("#4CAF50"),
	workload.LevelOver:   lipgloss.Color("#FF3B3B"),
}

func plainTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
}

// Time writes the groups and per-user split of a time report.
func Time(w io.Writer, r *workload.TimeReport) error {
	groups := plainTable(strings.ToUpper(string(r.GroupBy)), "HOURS", "ENTRIES")
	for _, g := range r.Grouped {
		groups.Row(g.Label, hours(g.Hours), strconv.Itoa(g.Count))
	}
	users := plainTable("USER", "BILLABLE", "NON-BILLABLE", "BILLABLE %")
	for _, u := range r.ByUser {
		users.Row(u.UserName, hours(u.BillableHours), hours(u.NonBillableHours), strconv.Itoa(u.BillablePercent)+"%")
	}

	tot := r.Totals
	footer := fmt.Sprintf("%d entries, %s h logged, %s h billable (%d%%)",
		tot.EntryCount, hours(tot.TotalHours), hours(tot.BillableHours), tot.BillablePercent)

	_, err := fmt.Fprintln(w, strings.Join([]string{
		titleStyle.Render("Time · by " + string(r.GroupBy)),
		groups.Render(),
		users.Render(),
		mutedStyle.Render(footer),
	}, "\n"))
	return err
}

// Utilization writes the team utilization for a period.
func Utilization(w io.Writer, u *workload.Utilization) error {
	rows := make([][]string, 0, len(u.Team))
	for _, m := range u.Team {
		rows = append(rows, []string{
			m.UserName,
			hours(m.TotalHours),
			hours(m.BillableHours),
			hours(m.TargetHours),
			hours(m.ReservedHours),
			strconv.Itoa(m.UtilizationPercent) + "%",
			string(m.Status),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("#444444"))).
		Headers("USER", "LOGGED", "BILLABLE", "TARGET", "RESERVED", "UTIL", "STATUS").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == 6 && row >= 0 && row < len(u.Team) {
				return cellStyle.Foreground(utilizationColors[u.Team[row].Status])
			}
			return cellStyle
		})

	sum := u.Summary
	footer := fmt.Sprintf("team: %s of %s target hours (%d%%), %s h reserved",
		hours(sum.TotalHours), hours(sum.TargetHours), sum.AvgUtilization, hours(sum.ReservedHours))
	title := fmt.Sprintf("Utilization · %s %s to %s", u.Period.Type,
		u.Period.Start.Format("2006-01-02"), u.Period.End.Format("2006-01-02"))

	_, err := fmt.Fprintln(w, strings.Join([]string{
		titleStyle.Render(title),
		t.Render(),
		mutedStyle.Render(footer),
	}, "\n"))
	return err
}
