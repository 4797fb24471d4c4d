package main

import (
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/spf13/cobra"

	"github.com/jgoulah/billbuddy/internal/config"
	"github.com/jgoulah/billbuddy/internal/controller"
	"github.com/jgoulah/billbuddy/internal/database"
	"github.com/jgoulah/billbuddy/internal/ledger"
	"github.com/jgoulah/billbuddy/internal/notify"
	"github.com/jgoulah/billbuddy/internal/report"
	"github.com/jgoulah/billbuddy/internal/state"
	"github.com/jgoulah/billbuddy/pkg/models"
)

// shell is the interactive session behind "billbuddy shell"
type shell struct {
	cfg   *config.Config
	ctrl  *controller.Controller
	db    *database.DB
	lines *lineReader
	notes *countingNotifier
}

// countingNotifier counts banners so the prompt loop does not print an error
// the user has already been shown
type countingNotifier struct {
	next  notify.Notifier
	count atomic.Int64
}

func (n *countingNotifier) Notify(kind notify.Kind, message string) string {
	n.count.Add(1)
	return n.next.Notify(kind, message)
}

func (n *countingNotifier) Count() int64 {
	return n.count.Load()
}

func (sh *shell) commands() *cobra.Command {
	root := &cobra.Command{
		Use:           "billbuddy>",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.CompletionOptions.DisableDefaultCmd = true

	root.AddCommand(
		sh.loginCmd(),
		sh.logoutCmd(),
		sh.whoamiCmd(),
		sh.viewCmd(),
		sh.customersCmd(),
		sh.usageCmd(),
		sh.reportCmd(),
		sh.tipCmd(),
		sh.catalogCmd(),
		sh.exportCmd(),
		sh.historyCmd(),
		&cobra.Command{
			Use:     "exit",
			Aliases: []string{"quit"},
			Short:   "Log out and leave the shell",
			RunE:    func(*cobra.Command, []string) error { return errExit },
		},
	)
	return root
}

func (sh *shell) loginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login <username>",
		Short: "Log in as an administrator or a customer (email)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if sh.ctrl.Session().LoggedIn {
				return fmt.Errorf("already logged in, log out first")
			}
			username := args[0]
			password, err := resolvePassword(sh.cfg, username, sh.lines)
			if err != nil {
				return err
			}
			if err := sh.ctrl.Login(cmd.Context(), username, password); err != nil {
				return err
			}

			// Remember the username, never the password
			if sh.cfg.Credentials.Username != username {
				sh.cfg.Credentials.Username = username
				if err := saveConfig(sh.cfg); err != nil {
					fmt.Printf("⚠ Could not save username: %v\n", err)
				}
			}
			return nil
		},
	}
}

func (sh *shell) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !sh.ctrl.Session().LoggedIn {
				return controller.ErrNotLoggedIn
			}
			sh.ctrl.Logout(cmd.Context())
			return nil
		},
	}
}

func (sh *shell) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the current session",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(describe(sh.ctrl.Session()))
		},
	}
}

func (sh *shell) viewCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "view <dashboard|customers|reports|tips>",
		Short:     "Switch to a section and load its data",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"dashboard", "customers", "reports", "tips"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return sh.ctrl.ShowView(cmd.Context(), args[0])
		},
	}
}

func (sh *shell) customersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "customers",
		Aliases: []string{"c"},
		Short:   "List and manage customers (administrators)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return sh.ctrl.ListCustomers(cmd.Context())
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "search [term]",
		Short: "Filter the listed customers by name or email",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := sh.ctrl.SearchCustomers(strings.Join(args, " "))
			return err
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "select <id>",
		Short: "View a customer's data",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return sh.ctrl.SelectCustomer(cmd.Context(), id)
		},
	})

	var form models.CustomerForm
	add := &cobra.Command{
		Use:   "add",
		Short: "Add a customer",
		RunE: func(cmd *cobra.Command, args []string) error {
			return sh.ctrl.AddCustomer(cmd.Context(), form)
		},
	}
	customerFlags(add, &form)
	cmd.AddCommand(add)

	edit := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit a customer; omitted fields keep their value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			update := form
			if c, ok := sh.ctrl.CustomerByID(id); ok {
				if !cmd.Flags().Changed("name") {
					update.Name = c.CustomerName
				}
				if !cmd.Flags().Changed("email") {
					update.Email = c.EmailID
				}
				if !cmd.Flags().Changed("phone") {
					update.Phone = c.PhoneNo
				}
			}
			return sh.ctrl.EditCustomer(cmd.Context(), id, update)
		},
	}
	customerFlags(edit, &form)
	cmd.AddCommand(edit)

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a customer and all of their usage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return sh.ctrl.DeleteCustomer(cmd.Context(), id)
		},
	})

	return cmd
}

func customerFlags(cmd *cobra.Command, form *models.CustomerForm) {
	cmd.Flags().StringVar(&form.Name, "name", "", "customer name")
	cmd.Flags().StringVar(&form.Email, "email", "", "email address, also the customer's login")
	cmd.Flags().StringVar(&form.Phone, "phone", "", "phone number")
}

func (sh *shell) usageCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "usage",
		Aliases: []string{"u"},
		Short:   "List and manage the selected customer's usage records",
		RunE: func(cmd *cobra.Command, args []string) error {
			return sh.ctrl.ListUsage(cmd.Context())
		},
	}

	var (
		qty   int
		hours float64
		at    string
	)
	add := &cobra.Command{
		Use:   "add <application>",
		Short: `Log usage of a catalog application, e.g. usage add "Ceiling Fan" --qty 2 --hours 6`,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return sh.ctrl.AddUsage(cmd.Context(), ledger.AddForm{
				ApplicationName: strings.Join(args, " "),
				Qty:             qty,
				HoursDay:        hours,
				DateTime:        at,
			})
		},
	}
	add.Flags().IntVar(&qty, "qty", 1, "number of units")
	add.Flags().Float64Var(&hours, "hours", 0, "hours per day")
	add.Flags().StringVar(&at, "at", "", "date and time as YYYY-MM-DDTHH:MM (default now)")
	cmd.AddCommand(add)

	var (
		editQty   int
		editHours float64
		editAt    string
	)
	edit := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit a usage record; omitted fields keep their value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			update := models.UsageUpdate{Qty: editQty, HoursDay: editHours, DateTime: editAt}
			if rec, ok := sh.ctrl.UsageRecord(id); ok {
				if !cmd.Flags().Changed("qty") {
					update.Qty = rec.Qty
				}
				if !cmd.Flags().Changed("hours") {
					update.HoursDay = rec.HoursDay
				}
				if !cmd.Flags().Changed("at") {
					update.DateTime = strings.Replace(rec.DateTime, " ", "T", 1)
				}
			}
			return sh.ctrl.EditUsage(cmd.Context(), id, update)
		},
	}
	edit.Flags().IntVar(&editQty, "qty", 0, "number of units")
	edit.Flags().Float64Var(&editHours, "hours", 0, "hours per day")
	edit.Flags().StringVar(&editAt, "at", "", "date and time as YYYY-MM-DDTHH:MM")
	cmd.AddCommand(edit)

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a usage record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return sh.ctrl.DeleteUsage(cmd.Context(), id)
		},
	})

	return cmd
}

func (sh *shell) reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "report",
		Aliases: []string{"r"},
		Short:   "Re-run the cost analysis for the current period",
		RunE: func(cmd *cobra.Command, args []string) error {
			return sh.ctrl.FetchAnalysis(cmd.Context())
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:       "period <day|month|year|custom>",
		Short:     "Switch the reporting period (dates reset to the current one)",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"day", "month", "year", "custom"},
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := state.ParsePeriod(args[0])
			if err != nil {
				return err
			}
			return sh.ctrl.SetPeriod(cmd.Context(), p)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "dates <date> [end-date]",
		Short: "Set the period's date: YYYY-MM-DD, YYYY-MM or YYYY; custom takes a start and an end",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			end := ""
			if len(args) == 2 {
				end = args[1]
			}
			return sh.ctrl.SetDates(cmd.Context(), args[0], end)
		},
	})

	return cmd
}

func (sh *shell) tipCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tip [application]",
		Short: "Show the energy saving tip for an application, or the general tips",
		RunE: func(cmd *cobra.Command, args []string) error {
			return sh.ctrl.Tip(strings.Join(args, " "))
		},
	}
}

func (sh *shell) catalogCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "List the applications usage can be logged for",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := sh.ctrl.Applications()
			return err
		},
	}
}

func (sh *shell) exportCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "export [pdf|xlsx]",
		Short:     "Export the selected customer's report (default pdf)",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"pdf", "xlsx"},
		RunE: func(cmd *cobra.Command, args []string) error {
			format := report.PDF
			if len(args) == 1 {
				f, err := report.ParseFormat(args[0])
				if err != nil {
					return err
				}
				format = f
			}
			path, err := sh.ctrl.ExportReport(cmd.Context(), format)
			if err != nil {
				return err
			}
			fmt.Printf("Saved %s\n", path)
			return nil
		},
	}
}

func (sh *shell) historyCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List generated reports",
		RunE: func(cmd *cobra.Command, args []string) error {
			customerID := 0
			s := sh.ctrl.Session()
			if s.LoggedIn && !s.IsAdmin() {
				customerID = s.UserID
			}
			exports, err := sh.db.ListExports(cmd.Context(), customerID, limit)
			if err != nil {
				return fmt.Errorf("listing exports: %w", err)
			}
			printExports(exports)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "number of entries (0 = all)")
	return cmd
}

func parseID(s string) (int, error) {
	id, err := strconv.Atoi(strings.TrimPrefix(s, "#"))
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}
