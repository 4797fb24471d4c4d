package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/jgoulah/billbuddy/internal/api"
	"github.com/jgoulah/billbuddy/internal/config"
	"github.com/jgoulah/billbuddy/internal/database"
	"github.com/jgoulah/billbuddy/internal/logger"
	"github.com/jgoulah/billbuddy/internal/notify"
	"github.com/jgoulah/billbuddy/pkg/models"
)

// passwordEnv supplies the password of one-shot commands
const passwordEnv = "BILLBUDDY_PASSWORD"

var (
	cfgFile  string
	dbPath   string
	userFlag string
)

var rootCmd = &cobra.Command{
	Use:   "billbuddy",
	Short: "Terminal dashboard for the BillBuddy electricity billing service",
	Long: `BillBuddy tracks per-application electricity usage and what it costs.
Run "billbuddy shell" for the interactive dashboard, or use the one-shot
commands to export reports and publish cost totals.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "export history database (default is ./billbuddy.db)")
	rootCmd.PersistentFlags().StringVarP(&userFlag, "user", "u", "", "username for one-shot commands (default is credentials.username)")
}

// getConfigPath returns the config file path
func getConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return config.DefaultConfigPath()
}

// getDBPath returns the database file path (local directory)
func getDBPath() string {
	if dbPath != "" {
		return dbPath
	}
	return "billbuddy.db"
}

// loadConfig loads the configuration file
func loadConfig() (*config.Config, error) {
	return config.Load(getConfigPath())
}

// saveConfig saves the configuration file
func saveConfig(cfg *config.Config) error {
	return config.Save(getConfigPath(), cfg)
}

// openDB opens the database connection
func openDB() (*database.DB, error) {
	path := getDBPath()

	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	return database.New(path)
}

// printNotifier reports notifications of one-shot commands on stdout
type printNotifier struct{}

func (printNotifier) Notify(kind notify.Kind, message string) string {
	switch kind {
	case notify.Success:
		fmt.Printf("✓ %s\n", message)
	case notify.Error:
		fmt.Printf("⚠ %s\n", message)
	default:
		fmt.Println(message)
	}
	return ""
}

// oneShot is a logged-in backend session for commands that run and exit
type oneShot struct {
	cfg    *config.Config
	log    *zap.SugaredLogger
	client *api.Client
	user   models.User
}

// close logs out. The backend keeps no state worth waiting for.
func (s *oneShot) close(ctx context.Context) {
	s.client.Logout(ctx)
	_ = s.log.Sync()
}

// loginOneShot loads config, builds a client and logs in with the configured credentials
func loginOneShot(ctx context.Context) (*oneShot, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, err
	}

	username := userFlag
	if username == "" {
		username = cfg.Credentials.Username
	}
	if username == "" {
		return nil, fmt.Errorf("no username: pass --user or set credentials.username in %s", getConfigPath())
	}

	password, err := resolvePassword(cfg, username, nil)
	if err != nil {
		return nil, err
	}

	client := api.New(cfg.GetBaseURL(), api.WithNotifier(printNotifier{}), api.WithLogger(log))
	user, err := client.Login(ctx, username, password)
	if err != nil {
		if !api.IsTransport(err) {
			fmt.Printf("⚠ %s\n", api.MessageOr(err, "Login failed. Check Admin/Customer credentials."))
		}
		return nil, fmt.Errorf("logging in as %s: %w", username, err)
	}

	log.Infow("one-shot login", "user_id", user.ID, "role", user.Role)
	return &oneShot{cfg: cfg, log: log, client: client, user: user}, nil
}

// customerFor picks the customer a one-shot command works on: a customer
// always works on their own data, an administrator must name one.
func (s *oneShot) customerFor(id int) (int, error) {
	if s.user.Role != models.RoleAdmin {
		if id != 0 && id != s.user.ID {
			return 0, fmt.Errorf("customers can only access their own data")
		}
		return s.user.ID, nil
	}
	if id == 0 {
		return 0, fmt.Errorf("--customer is required for administrators")
	}
	return id, nil
}

// resolvePassword returns the password from the environment, the config or the
// terminal, in that order. lines is used instead of the terminal when stdin is
// not one.
func resolvePassword(cfg *config.Config, username string, lines *lineReader) (string, error) {
	if pw := os.Getenv(passwordEnv); pw != "" {
		return pw, nil
	}
	if cfg.Credentials.Password != "" && strings.EqualFold(cfg.Credentials.Username, username) {
		return cfg.Credentials.Password, nil
	}

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Printf("Password for %s: ", username)
		pw, err := term.ReadPassword(fd)
		fmt.Println()
		if err != nil {
			return "", fmt.Errorf("reading password: %w", err)
		}
		return string(pw), nil
	}

	if lines == nil {
		lines = newLineReader(bufio.NewScanner(os.Stdin))
	}
	pw, ok := lines.ReadLine(fmt.Sprintf("Password for %s: ", username))
	if !ok {
		return "", fmt.Errorf("reading password: no input")
	}
	return pw, nil
}
