// kitchenctl is the operator CLI for the kitchen API.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mediacloud/sous-chef-kitchen/internal/client"
	"github.com/mediacloud/sous-chef-kitchen/internal/platform/env"
)

var version = "0.1.0-dev"

var (
	flagBaseURL string
	flagEmail   string
	flagAPIKey  string
	flagTimeout time.Duration
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "kitchenctl",
		Short: "Submit and manage kitchen recipe runs",
		Long: `kitchenctl talks to a running kitchen API: list recipes, start runs,
inspect run state and artifacts, and pause, resume, or cancel runs.

Credentials come from --email/--api-key or the SC_KITCHEN_EMAIL and
SC_KITCHEN_API_KEY environment variables.`,
		Version:      version,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&flagBaseURL, "kitchen-url",
		env.String("SC_KITCHEN_URL", "http://localhost:8080"), "kitchen API base URL")
	rootCmd.PersistentFlags().StringVar(&flagEmail, "email",
		env.String("SC_KITCHEN_EMAIL", ""), "Media Cloud account email")
	rootCmd.PersistentFlags().StringVar(&flagAPIKey, "api-key",
		env.String("SC_KITCHEN_API_KEY", ""), "Media Cloud API key")
	rootCmd.PersistentFlags().DurationVar(&flagTimeout, "timeout", 30*time.Second, "request timeout")

	registerRecipeCommands(rootCmd)
	registerRunCommands(rootCmd)
	registerAuthCommands(rootCmd)
	registerStatusCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newClient() (*client.Client, error) {
	return client.New(client.Config{
		BaseURL: flagBaseURL,
		Email:   flagEmail,
		APIKey:  flagAPIKey,
		Timeout: flagTimeout,
	})
}
