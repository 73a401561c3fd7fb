// Package main provides the CLI entrypoint for psytui.
package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/psybot/psytui/internal/adminui"
	"github.com/psybot/psytui/internal/api"
	"github.com/psybot/psytui/internal/config"
	"github.com/psybot/psytui/internal/historyui"
	"github.com/psybot/psytui/internal/homeui"
	"github.com/psybot/psytui/internal/report"
	"github.com/psybot/psytui/internal/session"
	"github.com/psybot/psytui/internal/store"
)

const (
	defaultAPIURL         = "http://localhost:8000"
	defaultTimeoutSeconds = 15
)

var (
	apiURL         string
	timeoutSeconds int
	loginEmail     string

	historyPlain bool
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "psytui",
		Short:         "TUI client for the daily exercise coach",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runHomeCmd,
	}

	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", defaultAPIURL, "API base URL")
	rootCmd.PersistentFlags().IntVar(&timeoutSeconds, "timeout", defaultTimeoutSeconds, "request timeout in seconds")
	rootCmd.Flags().StringVar(&loginEmail, "email", "", "prefill the login form email")

	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newAdminCmd())
	rootCmd.AddCommand(newProgressCmd())
	rootCmd.AddCommand(newLogoutCmd())
	rootCmd.AddCommand(newConfigCmd())

	return rootCmd
}

// clientEnv is the wiring every command shares: config-resolved API
// client plus the session backed by the credential store.
type clientEnv struct {
	client  *api.Client
	session *session.Session
	email   string
	close   func()
}

func buildEnv(cmd *cobra.Command) (clientEnv, error) {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return clientEnv{}, fmt.Errorf("failed to load config: %w", err)
	}
	applyStringConfig(cmd, "api-url", &apiURL, fileCfg.API.URL)
	applyIntConfig(cmd, "timeout", &timeoutSeconds, fileCfg.API.TimeoutSeconds)
	applyStringConfig(cmd, "email", &loginEmail, fileCfg.API.Email)

	if timeoutSeconds <= 0 {
		return clientEnv{}, fmt.Errorf("--timeout must be > 0")
	}

	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return clientEnv{}, fmt.Errorf("failed to open db: %w", err)
	}
	sess := session.New(st)
	client, err := api.New(apiURL, sess, time.Duration(timeoutSeconds)*time.Second)
	if err != nil {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
		return clientEnv{}, err
	}
	return clientEnv{
		client:  client,
		session: sess,
		email:   loginEmail,
		close: func() {
			if cerr := st.Close(); cerr != nil {
				logErrf("failed to close db: %v\n", cerr)
			}
		},
	}, nil
}

func runHomeCmd(cmd *cobra.Command, _ []string) error {
	env, err := buildEnv(cmd)
	if err != nil {
		return err
	}
	defer env.close()

	model := homeui.NewModel(env.client, env.session, env.email)
	program := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show task history",
		Args:  cobra.NoArgs,
		RunE:  runHistoryCmd,
	}
	cmd.Flags().BoolVar(&historyPlain, "plain", false, "print history to stdout instead of the TUI")
	return cmd
}

func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	env, err := buildEnv(cmd)
	if err != nil {
		return err
	}
	defer env.close()

	if historyPlain {
		ctx := context.Background()
		if err := env.session.Load(ctx); err != nil {
			return err
		}
		if !env.session.Authenticated() {
			return fmt.Errorf("not logged in; run psytui and log in first")
		}
		tasks, err := env.client.Tasks(ctx)
		if err != nil {
			return fmt.Errorf("failed to load history: %w", err)
		}
		return report.RenderHistory(cmd.OutOrStdout(), tasks, report.DetectWidth(os.Stdout))
	}

	model := historyui.NewModel(env.client, env.session)
	program := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

func newAdminCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "admin",
		Short: "Open the admin panel",
		Args:  cobra.NoArgs,
		RunE:  runAdminCmd,
	}
}

func runAdminCmd(cmd *cobra.Command, _ []string) error {
	env, err := buildEnv(cmd)
	if err != nil {
		return err
	}
	defer env.close()

	model := adminui.NewModel(env.client, env.session)
	program := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

func newProgressCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "progress",
		Short: "Print the progress snapshot",
		Args:  cobra.NoArgs,
		RunE:  runProgressCmd,
	}
}

func runProgressCmd(cmd *cobra.Command, _ []string) error {
	env, err := buildEnv(cmd)
	if err != nil {
		return err
	}
	defer env.close()

	ctx := context.Background()
	if err := env.session.Load(ctx); err != nil {
		return err
	}
	if !env.session.Authenticated() {
		return fmt.Errorf("not logged in; run psytui and log in first")
	}
	progress, err := env.client.Progress(ctx)
	if err != nil {
		return fmt.Errorf("failed to load progress: %w", err)
	}
	return report.RenderProgress(cmd.OutOrStdout(), progress)
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear the stored session token",
		Args:  cobra.NoArgs,
		RunE:  runLogoutCmd,
	}
}

func runLogoutCmd(cmd *cobra.Command, _ []string) error {
	env, err := buildEnv(cmd)
	if err != nil {
		return err
	}
	defer env.close()

	ctx := context.Background()
	if err := env.session.Load(ctx); err != nil {
		return err
	}
	if !env.session.Authenticated() {
		if _, err := fmt.Fprintln(cmd.OutOrStdout(), "Not logged in."); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}
	if err := env.session.Clear(ctx); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(cmd.OutOrStdout(), "Logged out."); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# psytui configuration
# Uncomment a value to enable it. CLI flags override config values.

[api]
# url = %q                # API base URL (default %q)
# email = "you@example.com"  # Prefill the login form email
# timeout-seconds = %d       # Request timeout
`,
		defaultAPIURL,
		defaultAPIURL,
		defaultTimeoutSeconds,
	)
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
