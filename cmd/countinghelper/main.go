package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"

	"countinghelper/internal/amqp"
	"countinghelper/internal/cli"
	"countinghelper/internal/core"
	"countinghelper/internal/currency"
	applog "countinghelper/internal/log"
	"countinghelper/internal/services"
)

const usage = `Usage: countinghelper <command> [flags]

Commands:
  add       record a transaction
  list      list transactions in a date range
  delete    delete a transaction by ID
  summary   bucketed income/expense/balance over a range
  cycles    billing cycles in a range, with stats and budgets
  cycle     the cycle containing a date, with stats and budget
  budget    set the expected totals for a cycle
  anchor    show or set the billing cycle anchor
  analysis  trailing-window breakdown by day, category and payment method

Run 'countinghelper <command> -h' for command flags.
`

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentApp)

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg := cli.LoadAndValidateConfig(logger)
	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	rates := currency.NewCachedProvider(currency.DefaultTable(), cfg.RateCacheSize, cfg.RateCacheTTL)
	normalizer := currency.NewNormalizer(cfg.BaseCurrency, rates)
	normalizer.LenientPairs = cfg.LenientPairs

	// AMQP is optional; without it writes stay local only.
	var events services.EventPublisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, export events disabled", "error", err)
		} else {
			defer client.Close()
			events = client
		}
	}

	ledger := services.NewLedger(repo, normalizer, events)
	ctx := context.Background()
	owner := cfg.DefaultOwnerID

	var err error
	switch cmd := os.Args[1]; cmd {
	case "add":
		err = runAdd(ctx, ledger, owner, cfg.BaseCurrency, os.Args[2:])
	case "list":
		err = runList(ctx, repo, owner, os.Args[2:])
	case "delete":
		err = runDelete(ctx, ledger, owner, os.Args[2:])
	case "summary":
		err = runSummary(ctx, ledger, owner, os.Args[2:])
	case "cycles":
		err = runCycles(ctx, ledger, owner, os.Args[2:])
	case "cycle":
		err = runCycle(ctx, ledger, owner, os.Args[2:])
	case "budget":
		err = runBudget(ctx, ledger, owner, os.Args[2:])
	case "anchor":
		err = runAnchor(ctx, ledger, owner, os.Args[2:])
	case "analysis":
		err = runAnalysis(ctx, ledger, owner, os.Args[2:])
	case "-h", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		os.Exit(2)
	}
	if err != nil {
		logger.Error("Command failed", "command", os.Args[1], "error", err)
		os.Exit(1)
	}
}

func runAdd(ctx context.Context, ledger *services.Ledger, owner int64, base string, args []string) error {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	amount := fs.String("amount", "", "amount, e.g. 12.50 (required)")
	cur := fs.String("currency", base, "currency code")
	desc := fs.String("desc", "", "description")
	category := fs.String("category", "", "category")
	method := fs.String("method", "", "payment method")
	kind := fs.String("kind", string(core.Expense), "income or expense")
	date := fs.String("date", "", "event date YYYY-MM-DD (default today)")
	fs.Parse(args)

	amt, err := core.ParseAmount(*amount)
	if err != nil {
		return err
	}
	eventDate, err := dateOrToday(*date)
	if err != nil {
		return err
	}

	t, err := ledger.Record(ctx, owner, services.RecordInput{
		Amount:        amt,
		Currency:      strings.ToUpper(*cur),
		Description:   *desc,
		Category:      *category,
		PaymentMethod: *method,
		Kind:          core.Kind(*kind),
		EventDate:     eventDate,
	})
	if err != nil {
		return err
	}
	fmt.Printf("recorded #%d: %s %s (%s %s) on %s\n",
		t.ID, core.MoneyString(t.Amount), t.Currency,
		core.MoneyString(t.NormalizedAmount), base, t.EventDate)
	return nil
}

func runList(ctx context.Context, store services.TransactionStore, owner int64, args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	from := fs.String("from", "", "start date YYYY-MM-DD (required)")
	to := fs.String("to", "", "end date YYYY-MM-DD (required)")
	fs.Parse(args)

	fromD, toD, err := parseRange(*from, *to)
	if err != nil {
		return err
	}
	txs, err := store.ListTransactions(ctx, owner, fromD, toD)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDATE\tKIND\tAMOUNT\tNORMALIZED\tCATEGORY\tDESCRIPTION")
	for _, t := range txs {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s %s\t%s\t%s\t%s\n",
			t.ID, t.EventDate, t.Kind,
			core.MoneyString(t.Amount), t.Currency,
			core.MoneyString(t.NormalizedAmount),
			t.Category, t.Description)
	}
	return w.Flush()
}

func runDelete(ctx context.Context, ledger *services.Ledger, owner int64, args []string) error {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	id := fs.Int64("id", 0, "transaction ID (required)")
	fs.Parse(args)

	if *id < 1 {
		return fmt.Errorf("missing -id")
	}
	if err := ledger.Delete(ctx, owner, *id); err != nil {
		return err
	}
	fmt.Printf("deleted #%d\n", *id)
	return nil
}

func runSummary(ctx context.Context, ledger *services.Ledger, owner int64, args []string) error {
	fs := flag.NewFlagSet("summary", flag.ExitOnError)
	from := fs.String("from", "", "start date YYYY-MM-DD (required)")
	to := fs.String("to", "", "end date YYYY-MM-DD (required)")
	by := fs.String("by", string(services.ByMonth), "bucket: day, week, month or cycle")
	fs.Parse(args)

	fromD, toD, err := parseRange(*from, *to)
	if err != nil {
		return err
	}
	g, err := services.ParseGranularity(*by)
	if err != nil {
		return err
	}
	stats, err := ledger.Summarize(ctx, owner, fromD, toD, g)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "BUCKET\tINCOME\tEXPENSE\tBALANCE\t#IN\t#OUT")
	for _, s := range stats {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\n",
			s.Label, core.MoneyString(s.Income), core.MoneyString(s.Expense),
			core.MoneyString(s.Balance), s.IncomeCount, s.ExpenseCount)
	}
	return w.Flush()
}

func runCycles(ctx context.Context, ledger *services.Ledger, owner int64, args []string) error {
	fs := flag.NewFlagSet("cycles", flag.ExitOnError)
	from := fs.String("from", "", "start date YYYY-MM-DD (required)")
	to := fs.String("to", "", "end date YYYY-MM-DD (required)")
	fs.Parse(args)

	fromD, toD, err := parseRange(*from, *to)
	if err != nil {
		return err
	}
	summaries, err := ledger.CyclesWithStats(ctx, owner, fromD, toD)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CYCLE\tINCOME\tEXPENSE\tBALANCE\tEXPECTED IN\tEXPECTED OUT")
	for _, s := range summaries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			s.Cycle, core.MoneyString(s.Stats.Income), core.MoneyString(s.Stats.Expense),
			core.MoneyString(s.Stats.Balance),
			budgetField(s.Budget, true), budgetField(s.Budget, false))
	}
	return w.Flush()
}

func runCycle(ctx context.Context, ledger *services.Ledger, owner int64, args []string) error {
	fs := flag.NewFlagSet("cycle", flag.ExitOnError)
	date := fs.String("date", "", "reference date YYYY-MM-DD (default today)")
	fs.Parse(args)

	ref, err := dateOrToday(*date)
	if err != nil {
		return err
	}
	s, err := ledger.CycleWithBudget(ctx, owner, ref)
	if err != nil {
		return err
	}

	fmt.Printf("cycle %s (%d days)\n", s.Cycle, s.Cycle.Days())
	fmt.Printf("  income  %s (%d)\n", core.MoneyString(s.Stats.Income), s.Stats.IncomeCount)
	fmt.Printf("  expense %s (%d)\n", core.MoneyString(s.Stats.Expense), s.Stats.ExpenseCount)
	fmt.Printf("  balance %s\n", core.MoneyString(s.Stats.Balance))
	if s.Budget != nil {
		fmt.Printf("  budget  in=%s out=%s\n",
			budgetField(s.Budget, true), budgetField(s.Budget, false))
	}
	return nil
}

func runBudget(ctx context.Context, ledger *services.Ledger, owner int64, args []string) error {
	fs := flag.NewFlagSet("budget", flag.ExitOnError)
	start := fs.String("cycle-start", "", "cycle start date YYYY-MM-DD (required)")
	income := fs.String("income", "", "expected income (empty clears)")
	expense := fs.String("expense", "", "expected expense (empty clears)")
	fs.Parse(args)

	startD, err := core.ParseDate(*start)
	if err != nil {
		return err
	}
	incomeD, err := optionalAmount(*income)
	if err != nil {
		return err
	}
	expenseD, err := optionalAmount(*expense)
	if err != nil {
		return err
	}
	if err := ledger.SetBudget(ctx, owner, startD, incomeD, expenseD); err != nil {
		return err
	}
	fmt.Printf("budget set for cycle starting %s\n", startD)
	return nil
}

func runAnchor(ctx context.Context, ledger *services.Ledger, owner int64, args []string) error {
	fs := flag.NewFlagSet("anchor", flag.ExitOnError)
	day := fs.Int("day", 0, "repayment day of month 1..31 (omit to show current)")
	tz := fs.String("tz", "", "IANA timezone (omit to keep current)")
	fs.Parse(args)

	if *day == 0 && *tz == "" {
		a, err := ledger.Anchor(ctx, owner)
		if err != nil {
			return err
		}
		fmt.Printf("repayment day %d, timezone %s\n", a.RepaymentDay, a.Timezone)
		return nil
	}

	current, err := ledger.Anchor(ctx, owner)
	if err != nil {
		return err
	}
	if *day != 0 {
		current.RepaymentDay = *day
	}
	if *tz != "" {
		current.Timezone = *tz
	}
	if err := ledger.SetAnchor(ctx, owner, current); err != nil {
		return err
	}
	fmt.Printf("anchor set: repayment day %d, timezone %s\n", current.RepaymentDay, current.Timezone)
	return nil
}

func runAnalysis(ctx context.Context, ledger *services.Ledger, owner int64, args []string) error {
	fs := flag.NewFlagSet("analysis", flag.ExitOnError)
	period := fs.String("period", services.PeriodWeek, "day, 3days, week, month or all")
	fs.Parse(args)

	report, err := ledger.Analysis(ctx, owner, *period, time.Now())
	if err != nil {
		return err
	}

	fmt.Printf("income %s, expense %s, balance %s, avg daily expense %s\n",
		core.MoneyString(report.Overview.Income),
		core.MoneyString(report.Overview.Expense),
		core.MoneyString(report.Overview.Balance),
		core.MoneyString(report.Overview.AvgDailyExpense))

	printGroup("by day", report.ByDay)
	printGroup("by category", report.ByCategory)
	printGroup("by payment method", report.ByPaymentMethod)
	return nil
}

func printGroup(title string, groups map[string]core.BucketStats) {
	if len(groups) == 0 {
		return
	}
	fmt.Println(title + ":")
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for key, s := range groups {
		fmt.Fprintf(w, "  %s\t%s\t%s\n",
			key, core.MoneyString(s.Income), core.MoneyString(s.Expense))
	}
	w.Flush()
}

func dateOrToday(s string) (core.Date, error) {
	if s == "" {
		return core.DateOf(time.Now(), time.Local), nil
	}
	return core.ParseDate(s)
}

func parseRange(from, to string) (core.Date, core.Date, error) {
	fromD, err := core.ParseDate(from)
	if err != nil {
		return core.Date{}, core.Date{}, fmt.Errorf("invalid -from: %w", err)
	}
	toD, err := core.ParseDate(to)
	if err != nil {
		return core.Date{}, core.Date{}, fmt.Errorf("invalid -to: %w", err)
	}
	return fromD, toD, nil
}

func optionalAmount(s string) (*decimal.Decimal, error) {
	if s == "" {
		return nil, nil
	}
	d, err := core.ParseAmount(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func budgetField(b *core.CycleBudget, income bool) string {
	if b == nil {
		return "-"
	}
	v := b.ExpectedExpense
	if income {
		v = b.ExpectedIncome
	}
	if v == nil {
		return "-"
	}
	return core.MoneyString(*v)
}
