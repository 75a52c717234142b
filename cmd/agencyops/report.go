package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/rpggio/agencyops/internal/auth"
	"github.com/rpggio/agencyops/internal/domain/workload"
	"github.com/rpggio/agencyops/internal/report"
)

var reportMonth string

var timeFlags struct {
	start, end, user, client, project, groupBy string
}

var utilFlags struct {
	period            string
	year, month, week int
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print retainer and workload reports",
}

var reportRetainersCmd = &cobra.Command{
	Use:   "retainers",
	Short: "Show usage of every active retainer client",
	Args:  cobra.NoArgs,
	RunE:  runReportRetainers,
}

var reportUsageCmd = &cobra.Command{
	Use:   "usage <client id>",
	Short: "Show realized and projected retainer usage of one client",
	Args:  cobra.ExactArgs(1),
	RunE:  runReportUsage,
}

var reportTimeCmd = &cobra.Command{
	Use:   "time",
	Short: "Show logged time grouped by day, week, project, client or user",
	Args:  cobra.NoArgs,
	RunE:  runReportTime,
}

var reportUtilizationCmd = &cobra.Command{
	Use:   "utilization",
	Short: "Show team utilization against weekly targets",
	Args:  cobra.NoArgs,
	RunE:  runReportUtilization,
}

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Retainer alerts and due-soon reminders",
}

var alertsCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Send alerts for retainers past a usage threshold",
	Args:  cobra.NoArgs,
	RunE:  runAlertsCheck,
}

var alertsDueCmd = &cobra.Command{
	Use:   "due-soon",
	Short: "Remind assignees of tasks due in the next 24 hours",
	Args:  cobra.NoArgs,
	RunE:  runAlertsDue,
}

func init() {
	for _, c := range []*cobra.Command{reportRetainersCmd, reportUsageCmd, alertsCheckCmd} {
		c.Flags().StringVar(&reportMonth, "month", "", "Month as YYYY-MM (default current month)")
	}
	tf := reportTimeCmd.Flags()
	tf.StringVar(&timeFlags.start, "start", "", "Earliest start, RFC 3339 or YYYY-MM-DD")
	tf.StringVar(&timeFlags.end, "end", "", "Latest start, RFC 3339 or YYYY-MM-DD (whole day)")
	tf.StringVar(&timeFlags.user, "user", "", "Only this user's entries")
	tf.StringVar(&timeFlags.client, "client", "", "Only this client's entries")
	tf.StringVar(&timeFlags.project, "project", "", "Only this project's entries")
	tf.StringVar(&timeFlags.groupBy, "group-by", "day", "day, week, project, client, user or all")

	uf := reportUtilizationCmd.Flags()
	uf.StringVar(&utilFlags.period, "period", "month", "week or month")
	uf.IntVar(&utilFlags.year, "year", 0, "Year of the period")
	uf.IntVar(&utilFlags.month, "month", 0, "Month number, with --period month")
	uf.IntVar(&utilFlags.week, "week", 0, "ISO week number, with --period week")

	reportCmd.AddCommand(reportRetainersCmd)
	reportCmd.AddCommand(reportUsageCmd)
	reportCmd.AddCommand(reportTimeCmd)
	reportCmd.AddCommand(reportUtilizationCmd)
	alertsCmd.AddCommand(alertsCheckCmd)
	alertsCmd.AddCommand(alertsDueCmd)
}

func parseDay(name, raw string, endOfDay bool) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return nil, fmt.Errorf("--%s must be RFC 3339 or YYYY-MM-DD", name)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

func runReportRetainers(cmd *cobra.Command, args []string) error {
	logger := newLogger(os.Stderr)
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()
	a, err := newApp(db, nil, logger)
	if err != nil {
		return err
	}

	r, err := a.Retainers.Statuses(cmd.Context(), auth.System, reportMonth)
	if err != nil {
		return err
	}
	return report.Retainers(cmd.OutOrStdout(), r)
}

func runReportUsage(cmd *cobra.Command, args []string) error {
	logger := newLogger(os.Stderr)
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()
	a, err := newApp(db, nil, logger)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	c, err := a.Clients.Get(ctx, auth.System, args[0])
	if err != nil {
		return err
	}
	u, err := a.Retainers.Usage(ctx, auth.System, c.ID, reportMonth)
	if err != nil {
		return err
	}
	return report.Usage(cmd.OutOrStdout(), c.Name, u)
}

func runAlertsCheck(cmd *cobra.Command, args []string) error {
	logger := newLogger(os.Stderr)
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()
	a, err := newApp(db, nil, logger)
	if err != nil {
		return err
	}

	run, err := a.Retainers.CheckAlerts(cmd.Context(), auth.System, reportMonth)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: checked %d clients, sent %d alerts\n", run.Month, run.ClientsChecked, run.AlertsSent)
	for _, al := range run.Alerts {
		fmt.Fprintf(cmd.OutOrStdout(), "  %s crossed %d%% (%d%% used)\n", al.ClientName, al.Threshold, al.PercentUsed)
	}
	return nil
}

func runReportTime(cmd *cobra.Command, args []string) error {
	start, err := parseDay("start", timeFlags.start, false)
	if err != nil {
		return err
	}
	end, err := parseDay("end", timeFlags.end, true)
	if err != nil {
		return err
	}

	logger := newLogger(os.Stderr)
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()
	a, err := newApp(db, nil, logger)
	if err != nil {
		return err
	}

	r, err := a.Workload.Time(cmd.Context(), auth.System, workload.TimeQuery{
		Start:     start,
		End:       end,
		UserID:    timeFlags.user,
		ClientID:  timeFlags.client,
		ProjectID: timeFlags.project,
		GroupBy:   workload.GroupBy(timeFlags.groupBy),
	})
	if err != nil {
		return err
	}
	return report.Time(cmd.OutOrStdout(), r)
}

func runReportUtilization(cmd *cobra.Command, args []string) error {
	logger := newLogger(os.Stderr)
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()
	a, err := newApp(db, nil, logger)
	if err != nil {
		return err
	}

	u, err := a.Workload.Utilization(cmd.Context(), auth.System, workload.UtilizationQuery{
		Period: workload.PeriodType(utilFlags.period),
		Year:   utilFlags.year,
		Month:  utilFlags.month,
		Week:   utilFlags.week,
	})
	if err != nil {
		return err
	}
	return report.Utilization(cmd.OutOrStdout(), u)
}

func runAlertsDue(cmd *cobra.Command, args []string) error {
	logger := newLogger(os.Stderr)
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()
	a, err := newApp(db, nil, logger)
	if err != nil {
		return err
	}

	run, err := a.Workload.NotifyDueSoon(cmd.Context(), auth.System)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: checked %d tasks, sent %d notices\n", run.Day, run.TasksChecked, run.NotificationsSent)
	for _, t := range run.Notified {
		fmt.Fprintf(cmd.OutOrStdout(), "  %s (%s) due %s\n", t.Title, t.AssigneeName, t.DueDate.Format(time.RFC3339))
	}
	return nil
}
