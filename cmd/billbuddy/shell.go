package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mattn/go-shellwords"
	"github.com/spf13/cobra"

	"github.com/jgoulah/billbuddy/internal/api"
	"github.com/jgoulah/billbuddy/internal/catalog"
	"github.com/jgoulah/billbuddy/internal/clock"
	"github.com/jgoulah/billbuddy/internal/controller"
	"github.com/jgoulah/billbuddy/internal/logger"
	"github.com/jgoulah/billbuddy/internal/metrics"
	"github.com/jgoulah/billbuddy/internal/notify"
	"github.com/jgoulah/billbuddy/internal/render"
	"github.com/jgoulah/billbuddy/internal/report"
	"github.com/jgoulah/billbuddy/internal/session"
	"github.com/jgoulah/billbuddy/internal/state"
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Start the interactive dashboard",
	Long: `Starts an interactive session against the BillBuddy backend. Log in with
"login <username>", then navigate with "view dashboard|customers|reports|tips".
Type "help" inside the shell for every command. The session ends after
inactivity (session.timeout, 10 minutes by default).`,
	RunE: runShell,
}

func init() {
	rootCmd.AddCommand(shellCmd)
}

// lineReader hands out input lines to the prompt loop and to confirmations
type lineReader struct {
	scanner *bufio.Scanner
	out     io.Writer
}

func newLineReader(s *bufio.Scanner) *lineReader {
	return &lineReader{scanner: s, out: os.Stdout}
}

// ReadLine prints prompt and returns the next line without its newline
func (r *lineReader) ReadLine(prompt string) (string, bool) {
	fmt.Fprint(r.out, prompt)
	if !r.scanner.Scan() {
		return "", false
	}
	return strings.TrimRight(r.scanner.Text(), "\r"), true
}

// Confirm asks a yes/no question, defaulting to no
func (r *lineReader) Confirm(prompt string) bool {
	answer, ok := r.ReadLine(prompt + " [y/N]: ")
	if !ok {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	return false
}

// errExit ends the prompt loop
var errExit = errors.New("exit")

func runShell(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return err
	}
	defer log.Sync()

	db, err := openDB()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	observer := metrics.NewObserver()
	if addr := cfg.Metrics.Addr; addr != "" {
		srv := metrics.NewServer(addr, observer)
		if err := srv.Start(); err != nil {
			return fmt.Errorf("starting metrics server on %s: %w", addr, err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		fmt.Printf("✓ Metrics on http://%s/metrics\n", addr)
	}

	lines := newLineReader(bufio.NewScanner(os.Stdin))
	screen := render.NewTerminal(os.Stdout, cfg.GetCurrencySymbol())
	notes := &countingNotifier{next: notify.NewStack(clock.Real{}, cfg.GetNoticeHold(), screen)}
	client := api.New(cfg.GetBaseURL(),
		api.WithNotifier(notes),
		api.WithObserver(observer),
		api.WithLogger(log))

	exporter := report.NewExporter(report.ExporterDeps{
		Client:   client,
		Notifier: notes,
		Renderers: map[report.Format]report.Renderer{
			report.PDF:  &report.PDFRenderer{ChromePath: cfg.Export.ChromePath},
			report.XLSX: report.XLSXRenderer{},
		},
		Recorder: db,
		Dir:      cfg.GetExportDir(),
		Currency: cfg.GetCurrencySymbol(),
		Log:      log,
	})

	ctrl := controller.New(controller.Deps{
		Client:   client,
		Catalog:  catalog.New(),
		View:     screen,
		Charts:   render.NewCharts(screen, cfg.GetCurrencySymbol()),
		Notifier: notes,
		Confirm:  lines,
		Bus:      session.NewBus(),
		Timeout:  cfg.GetSessionTimeout(),
		Exporter: exporter,
		Log:      log,
	})
	ctrl.Start()

	sh := &shell{cfg: cfg, ctrl: ctrl, db: db, lines: lines, notes: notes}

	// The prompt blocks on stdin, so an interrupt ends the process from here
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-done:
			return
		case <-ctx.Done():
		}
		fmt.Println()
		if ctrl.Session().LoggedIn {
			ctrl.Logout(context.Background())
		}
		_ = log.Sync()
		db.Close()
		os.Exit(130)
	}()

loop:
	for {
		line, ok := lines.ReadLine(sh.prompt())
		if !ok || ctx.Err() != nil {
			break loop
		}
		ctrl.Bus().Emit(session.KeyPress)

		shown := notes.Count()
		err := sh.exec(ctx, line)
		switch {
		case err == nil:
		case errors.Is(err, errExit):
			break loop
		case errors.Is(err, render.ErrDeclined):
			fmt.Println("Cancelled.")
		case notes.Count() > shown:
			// Already on screen as a banner
		default:
			fmt.Printf("⚠ %v\n", err)
		}
	}

	if ctrl.Session().LoggedIn {
		ctrl.Logout(context.Background())
	}
	return nil
}

func (sh *shell) prompt() string {
	s := sh.ctrl.Session()
	if !s.LoggedIn {
		return "billbuddy> "
	}
	return fmt.Sprintf("billbuddy %s%s> ", s.UserName, sh.ctrl.Location())
}

// exec runs one input line through a fresh command tree so flag values never
// leak between lines
func (sh *shell) exec(ctx context.Context, line string) error {
	args, err := shellwords.Parse(line)
	if err != nil {
		return fmt.Errorf("parsing input: %w", err)
	}
	if len(args) == 0 {
		return nil
	}

	root := sh.commands()
	root.SetArgs(args)
	root.SetOut(os.Stdout)
	root.SetErr(os.Stdout)
	return root.ExecuteContext(ctx)
}

// describe summarises a session for whoami
func describe(s state.Session) string {
	if !s.LoggedIn {
		return "not logged in"
	}
	desc := fmt.Sprintf("%s (%s)", s.UserName, s.Role.DisplayName())
	if id, ok := s.Selected(); ok {
		desc += fmt.Sprintf(", viewing customer %d", id)
	}
	return desc
}
