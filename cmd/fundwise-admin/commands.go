package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/fundwise/fundwise/internal/database"
	"github.com/fundwise/fundwise/internal/utils"
	"github.com/fundwise/fundwise/pkg/report"
	"github.com/fundwise/fundwise/pkg/user"
	"github.com/spf13/cobra"
)

func newMigrateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.config()
			if err != nil {
				return err
			}
			if err := database.Migrate(cfg.Database); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Database is up to date")
			return nil
		},
	}
}

func newUsersCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "users",
		Short: "List users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := ctx.dependencies()
			if err != nil {
				return err
			}
			users, err := deps.UserService.GetAllUsers(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderUsers(users, isTerminal(cmd.OutOrStdout())))
			return nil
		},
	}
}

func newReportCommand(ctx *commandContext) *cobra.Command {
	var month string
	var csv bool

	cmd := &cobra.Command{
		Use:   "report <user uid>",
		Short: "Print the monthly budget report of a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := ctx.dependencies()
			if err != nil {
				return err
			}
			u, err := deps.UserService.GetUserByUid(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("user %s: %w", args[0], err)
			}

			budgetMonth := utils.BudgetMonthOf(time.Now(), u.Settings.MonthStartDay, u.Settings.Location())
			if month != "" {
				if budgetMonth, err = utils.ParseBudgetMonth(month); err != nil {
					return err
				}
			}

			monthly, err := deps.ReportService.Monthly(user.WithUser(cmd.Context(), u), budgetMonth)
			if err != nil {
				return err
			}
			if csv {
				out, err := report.NewCsvRenderer().Render(monthly)
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), out)
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderReport(monthly, isTerminal(cmd.OutOrStdout())))
			return nil
		},
	}
	cmd.Flags().StringVarP(&month, "month", "m", "", "Budget month (YYYY-MM), defaults to the current one")
	cmd.Flags().BoolVar(&csv, "csv", false, "Print CSV instead of a table")
	return cmd
}

func renderUsers(users []user.User, styled bool) string {
	rows := make([][]string, 0, len(users))
	for _, u := range users {
		rows = append(rows, []string{
			u.Uid,
			u.Username,
			u.DisplayName,
			u.Settings.Currency,
			u.Settings.Timezone,
			strconv.Itoa(u.Settings.MonthStartDay),
		})
	}
	return renderTable(
		[]string{"UID", "Username", "Name", "Currency", "Timezone", "Month start"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
		styled,
	)
}

func renderReport(monthly report.MonthlyReport, styled bool) string {
	rows := make([][]string, 0, len(monthly.Categories)+3)
	for _, c := range monthly.Categories {
		percent := "-"
		if c.Limit.IsPositive() {
			percent = c.Percent.StringFixed(1) + "%"
		}
		rows = append(rows, []string{
			c.Category.Name,
			c.Limit.StringFixed(2),
			c.Spent.StringFixed(2),
			c.Remaining.StringFixed(2),
			percent,
		})
	}
	if !monthly.Uncategorized.IsZero() {
		rows = append(rows, []string{"(uncategorized)", "", monthly.Uncategorized.StringFixed(2), "", ""})
	}
	rows = append(rows,
		[]string{"Total", monthly.TotalLimit.StringFixed(2), monthly.TotalExpense.StringFixed(2), monthly.TotalRemaining.StringFixed(2), ""},
		[]string{"Income", "", monthly.TotalIncome.StringFixed(2), "", ""},
	)

	title := fmt.Sprintf("%s (%s)\n", monthly.Month, monthly.Currency)
	return title + renderTable(
		[]string{"Category", "Limit", "Spent", "Remaining", "Used"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight},
		styled,
	)
}
