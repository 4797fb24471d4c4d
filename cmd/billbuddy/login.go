package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jgoulah/billbuddy/internal/api"
)

var loginSavePassword bool

var loginCmd = &cobra.Command{
	Use:   "login [username]",
	Short: "Check credentials and save them for one-shot commands",
	Long: `Logs in to the backend once to verify the credentials, logs out again and
saves the username to the config file. With --save-password the password is
stored too (the file is written with mode 0600); otherwise one-shot commands
read it from BILLBUDDY_PASSWORD or prompt for it.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogin,
}

func init() {
	loginCmd.Flags().BoolVar(&loginSavePassword, "save-password", false, "Also store the password in the config file")
	rootCmd.AddCommand(loginCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	username := userFlag
	if username == "" {
		username = cfg.Credentials.Username
	}
	if len(args) == 1 {
		username = args[0]
	}
	if username == "" {
		return fmt.Errorf("no username given")
	}

	password, err := resolvePassword(cfg, username, nil)
	if err != nil {
		return err
	}

	fmt.Printf("Logging in to %s as %s...\n", cfg.GetBaseURL(), username)
	client := api.New(cfg.GetBaseURL(), api.WithNotifier(printNotifier{}))
	user, err := client.Login(ctx, username, password)
	if err != nil {
		if !api.IsTransport(err) {
			fmt.Printf("⚠ %s\n", api.MessageOr(err, "Login failed. Check Admin/Customer credentials."))
		}
		return fmt.Errorf("logging in: %w", err)
	}
	client.Logout(ctx)

	cfg.Credentials.Username = username
	if loginSavePassword {
		cfg.Credentials.Password = password
	}
	if err := saveConfig(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("✓ Logged in as %s (%s), credentials saved to %s\n", user.Name, user.Role.DisplayName(), getConfigPath())
	if !loginSavePassword {
		fmt.Println("  Password not saved - set BILLBUDDY_PASSWORD or pass --save-password")
	}
	return nil
}
