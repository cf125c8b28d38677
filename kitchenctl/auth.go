package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func registerAuthCommands(root *cobra.Command) {
	authCmd := &cobra.Command{
		Use:   "auth",
		Short: "Check your kitchen authorization",
	}
	authCmd.AddCommand(newAuthValidateCmd())
	root.AddCommand(authCmd)
}

func newAuthValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configured credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			kitchen, err := newClient()
			if err != nil {
				return err
			}
			status, err := kitchen.ValidateAuth(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Printf("Media Cloud account:  %s\n", yesNo(status.MediaCloudAuthorized))
			fmt.Printf("Kitchen access:       %s\n", yesNo(status.SousChefAuthorized))
			fmt.Printf("Staff:                %s\n", yesNo(status.MediaCloudStaff))
			fmt.Printf("Full-text grant:      %s\n", yesNo(status.MediaCloudFullTextAuthorized))
			if status.TagSlug != "" {
				fmt.Printf("Run tag:              %s\n", status.TagSlug)
			}
			if !status.Authorized() {
				return fmt.Errorf("credentials not authorized")
			}
			return nil
		},
	}
}

func registerStatusCommand(root *cobra.Command) {
	root.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show kitchen system readiness",
		RunE: func(cmd *cobra.Command, args []string) error {
			kitchen, err := newClient()
			if err != nil {
				return err
			}
			status, err := kitchen.SystemStatus(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Printf("API:        %s\n", upDown(status.KitchenAPIReady))
			fmt.Printf("Engine:     %s\n", upDown(status.EngineReady))
			fmt.Printf("Work pool:  %s\n", upDown(status.WorkPoolReady))
			fmt.Printf("Workers:    %s\n", upDown(status.WorkersReady))
			if !status.Ready() {
				return fmt.Errorf("kitchen is not ready")
			}
			return nil
		},
	})
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func upDown(v bool) string {
	if v {
		return "up"
	}
	return "down"
}
