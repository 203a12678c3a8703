// Command spendtrack is a terminal client for the expense-tracking
// backend: it registers and logs in accounts, keeps the bearer token in
// local state across runs, and manages the expense collection.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"spendtrack/internal/auth"
	"spendtrack/internal/cli"
	"spendtrack/internal/config"
	"spendtrack/internal/core"
	"spendtrack/internal/expense"
	"spendtrack/internal/gateway"
	"spendtrack/internal/log"
	"spendtrack/internal/session"
	"spendtrack/internal/storage"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type app struct {
	cfg      *config.Config
	logger   *log.Logger
	state    *storage.StateDB
	gw       *gateway.Client
	session  *session.Store
	auth     *auth.Controller
	expenses *expense.Controller

	stdin  io.Reader
	stdout io.Writer
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		printUsage(stdout)
		return errors.New("missing command")
	}
	command, rest := args[0], args[1:]
	if command == "help" || command == "-h" || command == "--help" {
		printUsage(stdout)
		return nil
	}

	cli.LoadEnvFile()
	cfg := config.Load()
	logger := cli.SetupLogger(cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		return err
	}

	state, err := storage.NewStateDB(cfg.StateDBPath, logger)
	if err != nil {
		return fmt.Errorf("open state database: %w", err)
	}
	defer state.Close()

	gw := gateway.New(cfg.APIBaseURL, cfg.HTTPTimeout, logger)
	store := session.NewStore(gw, state, logger)

	a := &app{
		cfg:      cfg,
		logger:   logger,
		state:    state,
		gw:       gw,
		session:  store,
		auth:     auth.NewController(gw, store, logger),
		expenses: expense.NewController(gw, store, logger),
		stdin:    stdin,
		stdout:   stdout,
	}

	ctx := context.Background()

	// Restore runs once at startup; an absent or rejected credential just
	// means the anonymous flow.
	if err := store.Restore(ctx); err != nil && !errors.Is(err, session.ErrNoSession) {
		return fmt.Errorf("restore session: %w", err)
	}

	switch command {
	case "register":
		return a.cmdRegister(ctx, rest, stderr)
	case "login":
		return a.cmdLogin(ctx, rest, stderr)
	case "logout":
		return a.cmdLogout(ctx)
	case "whoami":
		return a.cmdWhoami(ctx)
	case "list":
		return a.cmdList(ctx)
	case "add":
		return a.cmdAdd(ctx, rest, stderr)
	case "update":
		return a.cmdUpdate(ctx, rest, stderr)
	case "delete":
		return a.cmdDelete(ctx, rest, stderr)
	case "summary":
		return a.cmdSummary(ctx)
	case "overview":
		return a.cmdOverview(ctx)
	default:
		printUsage(stdout)
		return fmt.Errorf("unknown command %q", command)
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `Usage: spendtrack <command> [flags]

Commands:
  register   Create an account and start a session
  login      Authenticate and start a session
  logout     End the session and forget the stored token
  whoami     Show the logged-in profile
  list       List all expenses
  add        Add an expense
  update     Update an expense by id
  delete     Delete an expense by id
  summary    Show expense aggregates
  overview   Show profile and aggregates together

Configuration via environment (or .env): API_BASE_URL, HTTP_TIMEOUT,
STATE_DB_PATH, LOG_LEVEL.`)
}

func (a *app) cmdRegister(ctx context.Context, args []string, stderr io.Writer) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	fs.SetOutput(stderr)
	username := fs.String("username", "", "Username")
	email := fs.String("email", "", "Email address")
	passwordFlag := fs.String("password", "", "Password (optional, will prompt if omitted)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *username == "" || *email == "" {
		return errors.New("missing required flags: username, email")
	}

	password, err := a.obtainPassword(*passwordFlag)
	if err != nil {
		return err
	}

	if err := a.auth.SubmitRegister(ctx, *username, *email, password); err != nil {
		if msg := a.auth.LastError(); msg != "" {
			return errors.New(msg)
		}
		return err
	}
	fmt.Fprintf(a.stdout, "Registered %s, session started\n", *username)
	return nil
}

func (a *app) cmdLogin(ctx context.Context, args []string, stderr io.Writer) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	fs.SetOutput(stderr)
	email := fs.String("email", "", "Email address")
	passwordFlag := fs.String("password", "", "Password (optional, will prompt if omitted)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" {
		return errors.New("missing required flags: email")
	}

	password, err := a.obtainPassword(*passwordFlag)
	if err != nil {
		return err
	}

	if err := a.auth.SubmitLogin(ctx, *email, password); err != nil {
		if msg := a.auth.LastError(); msg != "" {
			return errors.New(msg)
		}
		return err
	}
	fmt.Fprintln(a.stdout, "Logged in, session started")
	return nil
}

func (a *app) cmdLogout(ctx context.Context) error {
	if err := a.session.Clear(ctx); err != nil {
		return err
	}
	a.auth.Reset()
	fmt.Fprintln(a.stdout, "Logged out")
	return nil
}

func (a *app) cmdWhoami(ctx context.Context) error {
	cred, err := a.requireSession()
	if err != nil {
		return err
	}
	profile, ok := a.session.Profile()
	if !ok {
		profile, err = a.gw.Profile(ctx, cred)
		if err != nil {
			return err
		}
		a.session.SetProfile(profile)
	}
	fmt.Fprintf(a.stdout, "%s <%s>\n", profile.Username, profile.Email)
	return nil
}

func (a *app) cmdList(ctx context.Context) error {
	if _, err := a.requireSession(); err != nil {
		return err
	}
	if err := a.expenses.Load(ctx); err != nil {
		return err
	}
	return a.printExpenses()
}

func (a *app) cmdAdd(ctx context.Context, args []string, stderr io.Writer) error {
	draft, _, err := parseDraftFlags("add", args, stderr, false)
	if err != nil {
		return err
	}
	if _, err := a.requireSession(); err != nil {
		return err
	}
	if err := a.expenses.Add(ctx, draft); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Added %q (%s %s)\n", draft.Title, draft.Amount, draft.Category)
	return nil
}

func (a *app) cmdUpdate(ctx context.Context, args []string, stderr io.Writer) error {
	draft, id, err := parseDraftFlags("update", args, stderr, true)
	if err != nil {
		return err
	}
	if _, err := a.requireSession(); err != nil {
		return err
	}
	if err := a.expenses.Update(ctx, id, draft); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Updated %s\n", id)
	return nil
}

func (a *app) cmdDelete(ctx context.Context, args []string, stderr io.Writer) error {
	fs := flag.NewFlagSet("delete", flag.ContinueOnError)
	fs.SetOutput(stderr)
	id := fs.String("id", "", "Expense id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" {
		return errors.New("missing required flags: id")
	}
	if _, err := a.requireSession(); err != nil {
		return err
	}
	if err := a.expenses.Delete(ctx, *id); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Deleted %s\n", *id)
	return nil
}

func (a *app) cmdSummary(ctx context.Context) error {
	if _, err := a.requireSession(); err != nil {
		return err
	}
	if err := a.expenses.Load(ctx); err != nil {
		return err
	}
	return a.printSummary(a.expenses.Summarize())
}

// cmdOverview fetches the profile and the expense list concurrently and
// prints both.
func (a *app) cmdOverview(ctx context.Context) error {
	cred, err := a.requireSession()
	if err != nil {
		return err
	}

	var profile core.Profile
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := a.gw.Profile(gctx, cred)
		if err != nil {
			return err
		}
		profile = p
		return nil
	})
	g.Go(func() error {
		return a.expenses.Load(gctx)
	})
	if err := g.Wait(); err != nil {
		return err
	}
	a.session.SetProfile(profile)

	fmt.Fprintf(a.stdout, "%s <%s>\n\n", profile.Username, profile.Email)
	return a.printSummary(a.expenses.Summarize())
}

func (a *app) requireSession() (core.Credential, error) {
	cred, ok := a.session.Current()
	if !ok {
		return "", errors.New("not logged in; run 'spendtrack login' first")
	}
	return cred, nil
}

func (a *app) printExpenses() error {
	expenses := a.expenses.Expenses()
	if len(expenses) == 0 {
		fmt.Fprintln(a.stdout, "No expenses")
		return nil
	}
	tw := tabwriter.NewWriter(a.stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tCATEGORY\tAMOUNT\tTITLE")
	for _, e := range expenses {
		date := ""
		if !e.Date.IsEmpty() {
			date = e.Date.Format("2006-01-02")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", e.ID, date, e.Category, e.Amount, e.Title)
	}
	return tw.Flush()
}

func (a *app) printSummary(s core.Summary) error {
	fmt.Fprintf(a.stdout, "Expenses: %d\nTotal:    %s\nAverage:  %s\n\n", s.Count, s.Total, s.Average)
	tw := tabwriter.NewWriter(a.stdout, 2, 4, 2, ' ', 0)
	for _, c := range core.Categories() {
		fmt.Fprintf(tw, "%s\t%s\n", c, s.ByCategory[c])
	}
	return tw.Flush()
}

// parseDraftFlags reads the shared add/update flag set into a draft.
func parseDraftFlags(name string, args []string, stderr io.Writer, wantID bool) (core.Draft, string, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	var id *string
	if wantID {
		id = fs.String("id", "", "Expense id")
	}
	title := fs.String("title", "", "Expense title")
	category := fs.String("category", "", "Category ("+categoryList()+")")
	amount := fs.String("amount", "", "Amount, e.g. 12.34")
	date := fs.String("date", "", "Date YYYY-MM-DD (optional, server assigns if omitted)")
	if err := fs.Parse(args); err != nil {
		return core.Draft{}, "", err
	}
	if wantID && *id == "" {
		return core.Draft{}, "", errors.New("missing required flags: id")
	}
	if *title == "" || *category == "" || *amount == "" {
		return core.Draft{}, "", errors.New("missing required flags: title, category, amount")
	}

	cat, err := core.ParseCategory(*category)
	if err != nil {
		return core.Draft{}, "", fmt.Errorf("%w: %q (known: %s)", err, *category, categoryList())
	}
	cents, err := core.ParseDecimalToCents(*amount)
	if err != nil {
		return core.Draft{}, "", fmt.Errorf("parse amount %q: %w", *amount, err)
	}

	draft := core.Draft{
		Title:    *title,
		Category: cat,
		Amount:   core.Money{Cents: cents},
	}
	if *date != "" {
		t, err := time.Parse("2006-01-02", *date)
		if err != nil {
			return core.Draft{}, "", fmt.Errorf("parse date %q: %w", *date, err)
		}
		draft.Date = core.Date{Time: t}
	}

	var idValue string
	if wantID {
		idValue = *id
	}
	return draft, idValue, nil
}

func categoryList() string {
	names := make([]string, 0, len(core.Categories()))
	for _, c := range core.Categories() {
		names = append(names, string(c))
	}
	return strings.Join(names, ", ")
}

// obtainPassword returns the flag value or prompts without echo.
func (a *app) obtainPassword(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	fmt.Fprint(a.stdout, "Password: ")
	password, err := readPassword(a.stdin)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	fmt.Fprintln(a.stdout)
	if strings.TrimSpace(password) == "" {
		return "", errors.New("password cannot be empty")
	}
	return password, nil
}

func readPassword(stdin io.Reader) (string, error) {
	// No-echo prompt when stdin is a terminal
	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		bytePassword, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", err
		}
		return string(bytePassword), nil
	}

	// Fallback for non-terminal input (tests, pipes)
	scanner := bufio.NewScanner(stdin)
	if scanner.Scan() {
		return scanner.Text(), nil
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}
