package main

import (
    "context"
    "database/sql"
    "fmt"
    "os"
    "strconv"
    "strings"
    "time"

    "github.com/fatih/color"
    "github.com/olekukonko/tablewriter"
    "github.com/spf13/cobra"

    "github.com/dialerhub/core/internal/authz"
    "github.com/dialerhub/core/internal/billing"
    "github.com/dialerhub/core/internal/models"
    "github.com/dialerhub/core/internal/numbers"
    "github.com/dialerhub/core/internal/smsmatch"
    "github.com/dialerhub/core/internal/store"
)

// Operator CLI surface (spec §6 "specified for contract"): inspection
// and manual-adjustment commands an on-call engineer runs directly
// against the database, grounded on cmd/router/commands.go's
// color+tablewriter reporting style. None of this issues sessions —
// every command runs as an implicit superuser actor, matching the
// trust level of shell access to the box.
var (
    green  = color.New(color.FgGreen).SprintFunc()
    red    = color.New(color.FgRed).SprintFunc()
    yellow = color.New(color.FgYellow).SprintFunc()
)

func superuserActor() authz.Actor {
    return authz.Actor{IsSuperuser: true, Role: "ADMIN"}
}

func resolveTenantBySlug(ctx context.Context, slug string) (int64, error) {
    tenant, err := store.TenantBySlug(ctx, database.DB, slug)
    if err != nil {
        return 0, fmt.Errorf("unknown tenant %q: %w", slug, err)
    }
    return tenant.ID, nil
}

func createTenantCommands() *cobra.Command {
    tenantCmd := &cobra.Command{
        Use:   "tenant",
        Short: "Inspect tenants",
    }
    tenantCmd.AddCommand(createTenantShowCommand())
    return tenantCmd
}

func createTenantShowCommand() *cobra.Command {
    return &cobra.Command{
        Use:   "show <slug>",
        Short: "Show a tenant's schedule and wallet summary",
        Args:  cobra.ExactArgs(1),
        RunE: func(cmd *cobra.Command, args []string) error {
            ctx := context.Background()
            if err := initializeForCLI(ctx); err != nil {
                return err
            }

            tenant, err := store.TenantBySlug(ctx, database.DB, args[0])
            if err != nil {
                return fmt.Errorf("unknown tenant %q: %w", args[0], err)
            }

            cfg, err := store.ScheduleConfigByTenant(ctx, database.DB, tenant.ID)
            if err != nil {
                return fmt.Errorf("failed to load schedule config: %w", err)
            }

            table := tablewriter.NewWriter(os.Stdout)
            table.SetHeader([]string{"Field", "Value"})
            table.Append([]string{"slug", tenant.Slug})
            table.Append([]string{"display name", tenant.DisplayName})
            table.Append([]string{"active", fmt.Sprintf("%v", tenant.Active)})
            table.Append([]string{"schedule enabled", fmt.Sprintf("%v", cfg.Enabled)})
            table.Append([]string{"disabled by dialer", fmt.Sprintf("%v", cfg.DisabledByDialer)})
            table.Append([]string{"skip holidays", fmt.Sprintf("%v", cfg.SkipHolidays)})
            table.Append([]string{"wallet balance (toman)", fmt.Sprintf("%d", cfg.WalletBalance)})
            table.Append([]string{"cost per connected", fmt.Sprintf("%d", cfg.CostPerConnected)})
            table.Render()
            return nil
        },
    }
}

func createWalletCommands() *cobra.Command {
    walletCmd := &cobra.Command{
        Use:   "wallet",
        Short: "Manage tenant wallet balances",
    }
    walletCmd.AddCommand(createWalletAdjustCommand(), createWalletHistoryCommand(), createWalletMatchCommand())
    return walletCmd
}

func createWalletAdjustCommand() *cobra.Command {
    var (
        tenantSlug string
        op         string
        note       string
    )
    cmd := &cobra.Command{
        Use:   "adjust <amount-toman>",
        Short: "Apply a manual wallet credit or debit",
        Args:  cobra.ExactArgs(1),
        RunE: func(cmd *cobra.Command, args []string) error {
            ctx := context.Background()
            if err := initializeForCLI(ctx); err != nil {
                return err
            }

            amount, err := strconv.ParseInt(args[0], 10, 64)
            if err != nil {
                return fmt.Errorf("invalid amount: %w", err)
            }

            tenantID, err := resolveTenantBySlug(ctx, tenantSlug)
            if err != nil {
                return err
            }

            adjustOp := billing.OpAdd
            if strings.EqualFold(op, "subtract") {
                adjustOp = billing.OpSubtract
            }

            txn, err := billing.ManualAdjust(ctx, database, tenantID, amount, adjustOp, note, nil)
            if err != nil {
                return fmt.Errorf("adjustment failed: %w", err)
            }

            fmt.Printf("%s balance now %d toman (transaction #%d)\n", green("✓"), txn.BalanceAfter, txn.ID)
            return nil
        },
    }
    cmd.Flags().StringVar(&tenantSlug, "tenant", "", "Tenant slug")
    cmd.Flags().StringVar(&op, "op", "add", "add|subtract")
    cmd.Flags().StringVar(&note, "note", "manual CLI adjustment", "Ledger note")
    cmd.MarkFlagRequired("tenant")
    return cmd
}

func createWalletHistoryCommand() *cobra.Command {
    var (
        tenantSlug string
        limit      int
    )
    cmd := &cobra.Command{
        Use:   "history",
        Short: "List recent wallet transactions for a tenant",
        RunE: func(cmd *cobra.Command, args []string) error {
            ctx := context.Background()
            if err := initializeForCLI(ctx); err != nil {
                return err
            }

            tenantID, err := resolveTenantBySlug(ctx, tenantSlug)
            if err != nil {
                return err
            }

            txns, err := store.ListWalletTransactions(ctx, database.DB, tenantID, nil, nil, 0, limit)
            if err != nil {
                return fmt.Errorf("failed to list transactions: %w", err)
            }

            table := tablewriter.NewWriter(os.Stdout)
            table.SetHeader([]string{"ID", "Amount", "Balance After", "Source", "At", "Note"})
            for _, t := range txns {
                amount := fmt.Sprintf("%d", t.AmountToman)
                if t.AmountToman > 0 {
                    amount = green("+" + amount)
                } else {
                    amount = red(amount)
                }
                table.Append([]string{
                    fmt.Sprintf("%d", t.ID),
                    amount,
                    fmt.Sprintf("%d", t.BalanceAfter),
                    string(t.Source),
                    t.TransactionAt.Format(time.RFC3339),
                    t.Note,
                })
            }
            table.Render()
            return nil
        },
    }
    cmd.Flags().StringVar(&tenantSlug, "tenant", "", "Tenant slug")
    cmd.Flags().IntVar(&limit, "limit", 20, "Max rows to display")
    cmd.MarkFlagRequired("tenant")
    return cmd
}

// createWalletMatchCommand links an operator-claimed deposit to a
// stored bank SMS parse and credits the wallet (spec §4.H: "Operator
// later calls H to link that deposit to E"), firing the webhook/manager
// receipt notifications.
func createWalletMatchCommand() *cobra.Command {
    var (
        tenantSlug    string
        senderProfile string
        amount        int64
        jy, jm, jd    int
        hour, minute  int
    )
    cmd := &cobra.Command{
        Use:   "match",
        Short: "Match a claimed deposit to a stored bank SMS and credit the wallet",
        RunE: func(cmd *cobra.Command, args []string) error {
            ctx := context.Background()
            if err := initializeForCLI(ctx); err != nil {
                return err
            }

            tenant, err := store.TenantBySlug(ctx, database.DB, tenantSlug)
            if err != nil {
                return fmt.Errorf("unknown tenant %q: %w", tenantSlug, err)
            }

            txn, err := smsmatch.MatchAndCharge(ctx, database, cache, appCfg.SMS, tenant.Slug, senderProfile,
                tenant.ID, amount, jy, jm, jd, hour, minute, nil)
            if err != nil {
                return fmt.Errorf("match failed: %w", err)
            }

            fmt.Printf("%s matched, balance now %d toman (transaction #%d)\n", green("✓"), txn.BalanceAfter, txn.ID)
            return nil
        },
    }
    cmd.Flags().StringVar(&tenantSlug, "tenant", "", "Tenant slug")
    cmd.Flags().StringVar(&senderProfile, "sender", "", "Bank profile sender key for the manager receipt notify")
    cmd.Flags().Int64Var(&amount, "amount", 0, "Deposit amount in toman")
    cmd.Flags().IntVar(&jy, "year", 0, "Jalali year of the deposit")
    cmd.Flags().IntVar(&jm, "month", 0, "Jalali month of the deposit")
    cmd.Flags().IntVar(&jd, "day", 0, "Jalali day of the deposit")
    cmd.Flags().IntVar(&hour, "hour", 0, "Hour of the deposit (local time)")
    cmd.Flags().IntVar(&minute, "minute", 0, "Minute of the deposit (local time)")
    cmd.MarkFlagRequired("tenant")
    cmd.MarkFlagRequired("amount")
    cmd.MarkFlagRequired("year")
    cmd.MarkFlagRequired("month")
    cmd.MarkFlagRequired("day")
    return cmd
}

func createScheduleCommands() *cobra.Command {
    scheduleCmd := &cobra.Command{
        Use:   "schedule",
        Short: "Inspect and toggle a tenant's calling schedule",
    }
    scheduleCmd.AddCommand(createScheduleShowCommand(), createScheduleEnableCommand(), createScheduleSetWindowsCommand())
    return scheduleCmd
}

func createScheduleShowCommand() *cobra.Command {
    var tenantSlug string
    cmd := &cobra.Command{
        Use:   "show",
        Short: "Show a tenant's calling windows",
        RunE: func(cmd *cobra.Command, args []string) error {
            ctx := context.Background()
            if err := initializeForCLI(ctx); err != nil {
                return err
            }

            tenantID, err := resolveTenantBySlug(ctx, tenantSlug)
            if err != nil {
                return err
            }

            windows, err := store.ListScheduleWindows(ctx, database.DB, tenantID)
            if err != nil {
                return fmt.Errorf("failed to list windows: %w", err)
            }

            table := tablewriter.NewWriter(os.Stdout)
            table.SetHeader([]string{"Day of Week", "Start", "End"})
            for _, w := range windows {
                table.Append([]string{fmt.Sprintf("%d", w.DayOfWeek), w.StartTime, w.EndTime})
            }
            table.Render()
            return nil
        },
    }
    cmd.Flags().StringVar(&tenantSlug, "tenant", "", "Tenant slug")
    cmd.MarkFlagRequired("tenant")
    return cmd
}

func createScheduleEnableCommand() *cobra.Command {
    var (
        tenantSlug string
        enabled    bool
    )
    cmd := &cobra.Command{
        Use:   "set-enabled",
        Short: "Enable or disable the calling schedule for a tenant",
        RunE: func(cmd *cobra.Command, args []string) error {
            ctx := context.Background()
            if err := initializeForCLI(ctx); err != nil {
                return err
            }

            tenantID, err := resolveTenantBySlug(ctx, tenantSlug)
            if err != nil {
                return err
            }

            err = database.Transaction(ctx, func(tx *sql.Tx) error {
                cfg, err := store.ScheduleConfigForUpdate(ctx, tx, tenantID)
                if err != nil {
                    return err
                }
                cfg.Enabled = enabled
                cfg.Version++
                return store.SaveScheduleConfig(ctx, tx, cfg)
            })
            if err != nil {
                return fmt.Errorf("failed to update schedule: %w", err)
            }

            fmt.Printf("%s schedule enabled=%v for tenant %s\n", green("✓"), enabled, tenantSlug)
            return nil
        },
    }
    cmd.Flags().StringVar(&tenantSlug, "tenant", "", "Tenant slug")
    cmd.Flags().BoolVar(&enabled, "enabled", true, "Desired enabled state")
    cmd.MarkFlagRequired("tenant")
    return cmd
}

// createScheduleSetWindowsCommand replaces a tenant's calling windows
// wholesale. Each --window takes "<day-of-week>:<HH:MM:SS>-<HH:MM:SS>"
// (day-of-week 0=Sat..6=Fri, spec.md §3); repeat the flag for multiple
// windows. An empty set clears the schedule to "no windows defined".
func createScheduleSetWindowsCommand() *cobra.Command {
    var (
        tenantSlug  string
        windowSpecs []string
    )
    cmd := &cobra.Command{
        Use:   "set-windows",
        Short: "Replace a tenant's calling windows",
        RunE: func(cmd *cobra.Command, args []string) error {
            ctx := context.Background()
            if err := initializeForCLI(ctx); err != nil {
                return err
            }

            tenantID, err := resolveTenantBySlug(ctx, tenantSlug)
            if err != nil {
                return err
            }

            windows := make([]models.ScheduleWindow, 0, len(windowSpecs))
            for _, spec := range windowSpecs {
                w, err := parseWindowSpec(tenantID, spec)
                if err != nil {
                    return fmt.Errorf("invalid --window %q: %w", spec, err)
                }
                windows = append(windows, w)
            }

            err = database.Transaction(ctx, func(tx *sql.Tx) error {
                return store.ReplaceScheduleWindows(ctx, tx, tenantID, windows)
            })
            if err != nil {
                return fmt.Errorf("failed to set schedule windows: %w", err)
            }

            fmt.Printf("%s %d window(s) set for tenant %s\n", green("✓"), len(windows), tenantSlug)
            return nil
        },
    }
    cmd.Flags().StringVar(&tenantSlug, "tenant", "", "Tenant slug")
    cmd.Flags().StringArrayVar(&windowSpecs, "window", nil, "day-of-week:HH:MM:SS-HH:MM:SS, repeatable")
    cmd.MarkFlagRequired("tenant")
    return cmd
}

func parseWindowSpec(tenantID int64, spec string) (models.ScheduleWindow, error) {
    left, end, ok := strings.Cut(spec, "-")
    if !ok {
        return models.ScheduleWindow{}, fmt.Errorf("expected <day>:<start>-<end>")
    }
    dowStr, start, ok := strings.Cut(left, ":")
    if !ok {
        return models.ScheduleWindow{}, fmt.Errorf("expected <day>:<start>-<end>")
    }
    dow, err := strconv.Atoi(dowStr)
    if err != nil || dow < 0 || dow > 6 {
        return models.ScheduleWindow{}, fmt.Errorf("day-of-week must be 0..6")
    }
    if start >= end {
        return models.ScheduleWindow{}, fmt.Errorf("start must be before end")
    }
    return models.ScheduleWindow{TenantID: tenantID, DayOfWeek: dow, StartTime: start, EndTime: end}, nil
}

func createNumbersCommands() *cobra.Command {
    numbersCmd := &cobra.Command{
        Use:   "numbers",
        Short: "Inspect and bulk-manage dialer numbers",
    }
    numbersCmd.AddCommand(createNumbersListCommand(), createNumbersResetCommand())
    return numbersCmd
}

func createNumbersListCommand() *cobra.Command {
    var (
        tenantSlug string
        status     string
        limit      int
    )
    cmd := &cobra.Command{
        Use:   "list",
        Short: "List numbers for a tenant with their latest call result",
        RunE: func(cmd *cobra.Command, args []string) error {
            ctx := context.Background()
            if err := initializeForCLI(ctx); err != nil {
                return err
            }

            tenantID, err := resolveTenantBySlug(ctx, tenantSlug)
            if err != nil {
                return err
            }

            filters := store.NumberListFilters{TenantID: tenantID, Limit: limit}
            if status != "" {
                s := models.CallStatus(status)
                filters.Status = &s
            }

            rows, err := numbers.List(ctx, database, filters)
            if err != nil {
                return fmt.Errorf("failed to list numbers: %w", err)
            }

            table := tablewriter.NewWriter(os.Stdout)
            table.SetHeader([]string{"ID", "Phone", "Global Status", "Latest Call Status", "Attempts"})
            for _, r := range rows {
                latest := "-"
                if r.LatestCall != nil {
                    latest = string(r.LatestCall.Status)
                }
                table.Append([]string{
                    fmt.Sprintf("%d", r.Number.ID),
                    r.Number.PhoneNumber,
                    string(r.Number.GlobalStatus),
                    latest,
                    fmt.Sprintf("%d", r.TotalAttempts),
                })
            }
            table.Render()
            return nil
        },
    }
    cmd.Flags().StringVar(&tenantSlug, "tenant", "", "Tenant slug")
    cmd.Flags().StringVar(&status, "status", "", "Filter by latest call status")
    cmd.Flags().IntVar(&limit, "limit", 50, "Max rows to display")
    cmd.MarkFlagRequired("tenant")
    return cmd
}

func createNumbersResetCommand() *cobra.Command {
    var (
        tenantSlug string
        numberID   int64
    )
    cmd := &cobra.Command{
        Use:   "reset",
        Short: "Clear a number's assignment lease so it re-enters the claim pool",
        RunE: func(cmd *cobra.Command, args []string) error {
            ctx := context.Background()
            if err := initializeForCLI(ctx); err != nil {
                return err
            }

            tenantID, err := resolveTenantBySlug(ctx, tenantSlug)
            if err != nil {
                return err
            }

            if err := numbers.ResetNumber(ctx, database, superuserActor(), tenantID, numberID); err != nil {
                return fmt.Errorf("reset failed: %w", err)
            }
            fmt.Printf("%s number %d reset\n", green("✓"), numberID)
            return nil
        },
    }
    cmd.Flags().StringVar(&tenantSlug, "tenant", "", "Tenant slug")
    cmd.Flags().Int64Var(&numberID, "id", 0, "Number id")
    cmd.MarkFlagRequired("tenant")
    cmd.MarkFlagRequired("id")
    return cmd
}
