package cmd

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/theirongolddev/exptrack/internal/cli"
	"github.com/theirongolddev/exptrack/internal/dashboard"
	"github.com/theirongolddev/exptrack/internal/model"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var (
	flagFilterFrom     string
	flagFilterTo       string
	flagFilterCategory string
	flagMonth          string
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Spending by category",
	RunE:  runStats,
}

var monthlyCmd = &cobra.Command{
	Use:   "monthly",
	Short: "Monthly summary",
	RunE:  runMonthly,
}

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Next month's predicted spend",
	RunE:  runPredict,
}

func init() {
	addFilterFlags(statsCmd)
	monthlyCmd.Flags().StringVar(&flagMonth, "month", "", "Month as YYYY-MM (default current month)")

	rootCmd.AddCommand(statsCmd, monthlyCmd, predictCmd)
}

func addFilterFlags(c *cobra.Command) {
	c.Flags().StringVar(&flagFilterFrom, "from", "", "Start date (YYYY-MM-DD)")
	c.Flags().StringVar(&flagFilterTo, "to", "", "End date (YYYY-MM-DD)")
	c.Flags().StringVarP(&flagFilterCategory, "category", "c", "", "Category")
}

func filterFromFlags() model.Filter {
	return model.Filter{
		StartDate: strings.TrimSpace(flagFilterFrom),
		EndDate:   strings.TrimSpace(flagFilterTo),
		Category:  strings.TrimSpace(flagFilterCategory),
	}
}

func describeFilter(f model.Filter) string {
	if f.IsZero() {
		return "All time"
	}
	var parts []string
	if f.StartDate != "" {
		parts = append(parts, "from "+f.StartDate)
	}
	if f.EndDate != "" {
		parts = append(parts, "to "+f.EndDate)
	}
	if f.Category != "" {
		parts = append(parts, "in "+f.Category)
	}
	return strings.Join(parts, " ")
}

func runOverview(cmd *cobra.Command, _ []string) error {
	e, err := openEnv(false)
	if err != nil {
		return err
	}
	defer e.Close()

	if _, err := e.resume(cmd.Context()); err != nil {
		return err
	}
	d := e.newDashboard()
	cached := d.LoadCached()

	progress("Fetching dashboard...")
	if err := d.Refresh(cmd.Context()); err != nil {
		if !useCached(err, e.mgr.State(), cached > 0) {
			return commandError("load dashboard", err)
		}
		if !flagQuiet {
			fmt.Println(cli.RenderWarning("  " + cli.ErrorMessage("refresh", err) + " Some figures are cached."))
		}
	}

	s := d.Summary()
	fmt.Println()
	fmt.Println(cli.RenderTitle("EXPENSES  Overview"))
	fmt.Println()

	top := s.TopCategory
	if top == "" {
		top = "-"
	}
	rows := [][]string{
		{"Entries", cli.FormatNumber(int64(s.Entries))},
		{"Total spent", cli.FormatMoney(s.TotalSpent)},
		{"Categories", strconv.Itoa(s.Categories)},
		{"Top category", top},
		{"---"},
		{monthTitle(s.MonthLabel, d.Month()), cli.FormatMoney(s.MonthTotal)},
		{"Month entries", strconv.Itoa(s.MonthCount)},
		{"---"},
		{"Predicted next month", cli.FormatMoney(s.Predicted)},
		{"Recent average", cli.FormatMoney(s.RecentAverage)},
	}
	if s.SpenderType != "" {
		rows = append(rows, []string{"Spender type", s.SpenderType})
	}
	fmt.Print(cli.RenderTable(cli.Table{Headers: []string{"Metric", "Value"}, Rows: rows}))

	daily := dashboard.DailyTotals(d.Expenses(), timeNow(), 30)
	if len(daily) > 0 {
		fmt.Printf("\n  Last 30 days  %s\n", cli.RenderSparkline(toFloats(daily)))
	}
	if s.Suggestion != "" {
		fmt.Printf("\n  %s\n", cli.RenderMuted(s.Suggestion))
	}

	recent, total := d.Recent()
	if len(recent) > 0 {
		fmt.Println()
		fmt.Print(cli.RenderTable(expenseTable(fmt.Sprintf("Recent  %d shown of %d", len(recent), total), recent)))
	}
	return nil
}

func monthTitle(label string, month time.Time) string {
	if label == "" {
		label = month.Format("January 2006")
	}
	return label
}

func toFloats(values []decimal.Decimal) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = v.InexactFloat64()
	}
	return out
}

func runStats(cmd *cobra.Command, _ []string) error {
	f := filterFromFlags()
	if err := f.Validate(); err != nil {
		return commandError("", err)
	}

	e, err := openEnv(false)
	if err != nil {
		return err
	}
	defer e.Close()

	if _, err := e.resume(cmd.Context()); err != nil {
		return err
	}
	d := e.newDashboard()

	progress("Fetching statistics...")
	if f.IsZero() {
		err = e.loadView(cmd.Context(), d, model.ViewStats, "fetch statistics", d.RefreshStats)
	} else if err = d.SetFilter(cmd.Context(), f); err != nil {
		err = commandError("fetch statistics", err)
	}
	if err != nil {
		return err
	}

	stats := d.Stats()
	fmt.Println()
	fmt.Println(cli.RenderTitle("SPENDING  " + describeFilter(f)))
	fmt.Println()
	fmt.Println(cli.RenderKeyValue("Total spent", cli.RenderMoney(cli.FormatMoney(stats.TotalSpent)), 12))
	fmt.Println()

	shares := d.Shares()
	if len(shares) == 0 {
		fmt.Println("  No expenses match this filter.")
		return nil
	}

	labelW := 0
	for _, s := range shares {
		labelW = max(labelW, len([]rune(s.Category)))
	}
	labelW = min(labelW, 20)
	for _, s := range shares {
		fmt.Println(cli.RenderShareBar(s.Category, s.Percent, cli.FormatMoney(s.Total), labelW, 30))
	}

	if len(stats.MonthlyTrend) > 0 {
		rows := make([][]string, 0, len(stats.MonthlyTrend))
		values := make([]decimal.Decimal, 0, len(stats.MonthlyTrend))
		for _, m := range stats.MonthlyTrend {
			rows = append(rows, []string{m.Month, cli.FormatMoney(m.Total)})
			values = append(values, m.Total)
		}
		fmt.Printf("\n  Monthly trend  %s\n\n", cli.RenderSparkline(toFloats(values)))
		fmt.Print(cli.RenderTable(cli.Table{Headers: []string{"Month", "Total"}, Rows: rows}))
	}
	return nil
}

func runMonthly(cmd *cobra.Command, _ []string) error {
	var month time.Time
	if flagMonth != "" {
		t, err := time.ParseInLocation(model.MonthLayout, strings.TrimSpace(flagMonth), time.Local)
		if err != nil {
			return fmt.Errorf("invalid --month %q, want YYYY-MM", flagMonth)
		}
		month = t
	}

	e, err := openEnv(false)
	if err != nil {
		return err
	}
	defer e.Close()

	if _, err := e.resume(cmd.Context()); err != nil {
		return err
	}
	d := e.newDashboard()

	progress("Fetching monthly summary...")
	if month.IsZero() {
		err = e.loadView(cmd.Context(), d, model.ViewMonthly, "fetch monthly summary", d.RefreshMonthly)
	} else if err = d.SelectMonth(cmd.Context(), month); err != nil {
		err = commandError("fetch monthly summary", err)
	}
	if err != nil {
		return err
	}

	m := d.Monthly()
	fmt.Println()
	fmt.Println(cli.RenderTitle("MONTHLY  " + monthTitle(m.Month, d.Month())))
	fmt.Println()
	fmt.Println(cli.RenderKeyValue("Total", cli.RenderMoney(cli.FormatMoney(m.Total)), 8))
	fmt.Println(cli.RenderKeyValue("Entries", strconv.Itoa(m.Count), 8))
	fmt.Println()

	items := d.MonthlyItems()
	if len(items) == 0 {
		fmt.Println("  No expenses this month.")
		return nil
	}
	fmt.Print(cli.RenderTable(expenseTable(fmt.Sprintf("%d shown of %d", len(items), len(m.Expenses)), items)))
	return nil
}

func runPredict(cmd *cobra.Command, _ []string) error {
	e, err := openEnv(false)
	if err != nil {
		return err
	}
	defer e.Close()

	if _, err := e.resume(cmd.Context()); err != nil {
		return err
	}
	d := e.newDashboard()

	progress("Fetching prediction...")
	if err := e.loadView(cmd.Context(), d, model.ViewPredict, "fetch prediction", d.RefreshPrediction); err != nil {
		return err
	}

	p := d.Prediction()
	const labelW = 15
	fmt.Println()
	fmt.Println(cli.RenderTitle("NEXT MONTH"))
	fmt.Println()
	fmt.Println(cli.RenderKeyValue("Predicted", cli.RenderMoney(cli.FormatMoney(p.PredictedAmount)), labelW))
	fmt.Println(cli.RenderKeyValue("Recent average", cli.FormatMoney(p.RecentAverage), labelW))
	if p.SpenderType != "" {
		fmt.Println(cli.RenderKeyValue("Spender type", p.SpenderType, labelW))
	}
	if p.Suggestion != "" {
		fmt.Printf("\n  %s\n", cli.RenderMuted(p.Suggestion))
	}
	fmt.Println()
	return nil
}
