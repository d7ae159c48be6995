package cmd

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/theirongolddev/exptrack/internal/cli"
	"github.com/theirongolddev/exptrack/internal/dashboard"
	"github.com/theirongolddev/exptrack/internal/model"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

var (
	flagListAll bool

	flagDraftAmount      string
	flagDraftCategory    string
	flagDraftDate        string
	flagDraftDescription string

	flagDeleteYes bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent expenses",
	RunE:  runList,
}

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Record a new expense",
	RunE:  runAdd,
}

var editCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Edit an expense",
	Args:  cobra.ExactArgs(1),
	RunE:  runEdit,
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an expense",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

func init() {
	listCmd.Flags().BoolVarP(&flagListAll, "all", "a", false, "List the whole ledger")

	for _, c := range []*cobra.Command{addCmd, editCmd} {
		c.Flags().StringVar(&flagDraftAmount, "amount", "", "Amount")
		c.Flags().StringVarP(&flagDraftCategory, "category", "c", "", "Category")
		c.Flags().StringVar(&flagDraftDate, "date", "", "Date (YYYY-MM-DD, default today)")
		c.Flags().StringVarP(&flagDraftDescription, "description", "m", "", "Description")
	}

	deleteCmd.Flags().BoolVarP(&flagDeleteYes, "yes", "y", false, "Skip the confirmation prompt")

	rootCmd.AddCommand(listCmd, addCmd, editCmd, deleteCmd)
}

func runList(cmd *cobra.Command, _ []string) error {
	e, err := openEnv(false)
	if err != nil {
		return err
	}
	defer e.Close()

	if _, err := e.resume(cmd.Context()); err != nil {
		return err
	}
	d := e.newDashboard()
	if err := e.loadView(cmd.Context(), d, model.ViewExpenses, "fetch expenses", d.List); err != nil {
		return err
	}

	all := d.Expenses()
	if len(all) == 0 {
		fmt.Println("\n  No expenses yet. Add one with `exptrack add`.")
		return nil
	}

	shown := all
	if !flagListAll {
		limit := e.cfg.General.RecentLimit
		if limit <= 0 {
			limit = dashboard.RecentLimit
		}
		shown = all[:min(limit, len(all))]
	}

	fmt.Println()
	fmt.Print(cli.RenderTable(expenseTable(
		fmt.Sprintf("Expenses  %d shown of %d", len(shown), len(all)), shown)))
	return nil
}

func expenseTable(title string, expenses []model.Expense) cli.Table {
	rows := make([][]string, 0, len(expenses))
	for _, x := range expenses {
		rows = append(rows, []string{
			strconv.FormatInt(x.ID, 10),
			cli.FormatDate(x.Date),
			x.Category,
			cli.Truncate(x.Description, 36),
			cli.FormatMoney(x.Amount),
		})
	}
	return cli.Table{
		Title:    title,
		Headers:  []string{"ID", "Date", "Category", "Description", "Amount"},
		Rows:     rows,
		LeftCols: 4,
	}
}

// draftFromFlags overlays the flags the user set onto draft.
func draftFromFlags(cmd *cobra.Command, draft model.Draft) (model.Draft, bool) {
	changed := false
	set := func(name string, dst *string, v string) {
		if cmd.Flags().Changed(name) {
			*dst = v
			changed = true
		}
	}
	set("amount", &draft.Amount, flagDraftAmount)
	set("category", &draft.Category, flagDraftCategory)
	set("date", &draft.Date, flagDraftDate)
	set("description", &draft.Description, flagDraftDescription)
	return draft, changed
}

// editDraft lets the user complete draft interactively.
func editDraft(title string, draft *model.Draft, categories []string) error {
	return runForm(huh.NewGroup(
		huh.NewInput().Title("Amount").Value(&draft.Amount).Validate(func(s string) error {
			_, err := model.ParseAmount(s)
			return err
		}),
		huh.NewInput().Title("Category").Value(&draft.Category).
			Suggestions(categories).Validate(requiredField("category")),
		huh.NewInput().Title("Date").Description("YYYY-MM-DD").Value(&draft.Date).Validate(func(s string) error {
			if _, err := model.ParseDate(s); err != nil {
				return errors.New("date must be YYYY-MM-DD")
			}
			return nil
		}),
		huh.NewText().Title("Description").Lines(3).Value(&draft.Description),
	).Title(title))
}

func runAdd(cmd *cobra.Command, _ []string) error {
	e, err := openEnv(false)
	if err != nil {
		return err
	}
	defer e.Close()

	if _, err := e.resume(cmd.Context()); err != nil {
		return err
	}
	d := e.newDashboard()
	d.LoadCached()

	draft, _ := draftFromFlags(cmd, model.Draft{Date: model.NewDate(timeNow()).String()})
	if draft.Amount == "" || draft.Category == "" {
		if err := editDraft("New expense", &draft, dashboard.Categories(d.Expenses())); err != nil {
			return commandError("add expense", err)
		}
	}

	x, err := d.Create(cmd.Context(), draft)
	if err != nil {
		return commandError("add expense", err)
	}
	fmt.Printf("  Added expense #%d: %s %s\n", x.ID, cli.FormatMoney(x.Amount), x.Category)
	warnRefresh(d)
	return nil
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid expense id %q", arg)
	}
	return id, nil
}

func runEdit(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
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
	if err := e.loadView(cmd.Context(), d, model.ViewExpenses, "fetch expenses", d.List); err != nil {
		return err
	}
	current, ok := d.Expense(id)
	if !ok {
		return fmt.Errorf("expense #%d not found", id)
	}

	draft, changed := draftFromFlags(cmd, model.DraftFrom(current))
	if !changed {
		if err := editDraft(fmt.Sprintf("Edit expense #%d", id), &draft, dashboard.Categories(d.Expenses())); err != nil {
			return commandError("update expense", err)
		}
	}

	x, err := d.Update(cmd.Context(), id, draft)
	if err != nil {
		return commandError("update expense", err)
	}
	fmt.Printf("  Updated expense #%d: %s %s\n", x.ID, cli.FormatMoney(x.Amount), x.Category)
	warnRefresh(d)
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
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
	d.LoadCached()

	label := fmt.Sprintf("expense #%d", id)
	if x, ok := d.Expense(id); ok {
		label = fmt.Sprintf("%s (%s, %s)", label, cli.FormatMoney(x.Amount), x.Category)
	}

	confirm := func() bool {
		if flagDeleteYes {
			return true
		}
		var ok bool
		err := huh.NewConfirm().
			Title("Delete " + label + "?").
			Affirmative("Delete").
			Negative("Keep").
			Value(&ok).
			Run()
		return err == nil && ok
	}

	if err := d.Delete(cmd.Context(), id, confirm); err != nil {
		if errors.Is(err, dashboard.ErrCancelled) {
			fmt.Println("  Cancelled.")
			return nil
		}
		return commandError("delete expense", err)
	}
	fmt.Printf("  Deleted %s\n", label)
	warnRefresh(d)
	return nil
}

// warnRefresh reports a refresh failure that followed a successful mutation.
func warnRefresh(d *dashboard.Dashboard) {
	if err := d.LastError(); err != nil && !flagQuiet {
		fmt.Println(cli.RenderWarning("  " + cli.ErrorMessage("refresh", err)))
	}
}
