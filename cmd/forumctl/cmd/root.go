package cmd

import (
	"fmt"
	"os"

	"forum/backend/internal/client"
	"forum/backend/internal/logging"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var (
	serverURL   string
	sessionFile string
	verbose     bool
)

var rootCmd = &cobra.Command{
	Use:   "forumctl",
	Short: "Forum API command-line client",
	Long: `forumctl signs in to a forum server and keeps the session token in a
local file so later commands are authenticated.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", envOr("FORUM_SERVER", "http://localhost:8080"), "forum API server URL (env: FORUM_SERVER)")
	rootCmd.PersistentFlags().StringVar(&sessionFile, "session-file", "", "session file path (default: user config dir)")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "log requests to stderr")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(verifyCmd)
}

func newGateway() (*client.Gateway, error) {
	path := sessionFile
	if path == "" {
		var err error
		if path, err = client.DefaultSessionPath(); err != nil {
			return nil, err
		}
	}

	level := "warn"
	if verbose {
		level = "debug"
	}
	logger := logging.New(logging.Options{Level: level, Format: "text", Output: os.Stderr})

	return client.New(serverURL, client.NewFileStore(path),
		client.WithLogger(logger),
		client.WithAuthFailureHandler(func() {
			pterm.Warning.Println("Session rejected by the server. Run 'forumctl login' again.")
		}, 0),
	), nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
