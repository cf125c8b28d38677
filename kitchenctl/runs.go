package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/mediacloud/sous-chef-kitchen/internal/domain"
)

func registerRunCommands(root *cobra.Command) {
	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect and control recipe runs",
	}

	runsCmd.AddCommand(newRunListCmd())
	runsCmd.AddCommand(newRunGetCmd())
	runsCmd.AddCommand(newRunArtifactsCmd())
	runsCmd.AddCommand(newRunLifecycleCmd("cancel", "Request cancellation of a run",
		func(ctx context.Context, runID string) error {
			kitchen, err := newClient()
			if err != nil {
				return err
			}
			return kitchen.Cancel(ctx, runID)
		}))
	runsCmd.AddCommand(newRunLifecycleCmd("pause", "Pause an active run",
		func(ctx context.Context, runID string) error {
			kitchen, err := newClient()
			if err != nil {
				return err
			}
			return kitchen.Pause(ctx, runID)
		}))
	runsCmd.AddCommand(newRunLifecycleCmd("resume", "Resume a paused run",
		func(ctx context.Context, runID string) error {
			kitchen, err := newClient()
			if err != nil {
				return err
			}
			return kitchen.Resume(ctx, runID)
		}))

	root.AddCommand(runsCmd)
}

func newRunListCmd() *cobra.Command {
	var (
		onlyActive bool
		onlyPaused bool
		all        bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List your recipe runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			kitchen, err := newClient()
			if err != nil {
				return err
			}

			var runs []domain.Run
			switch {
			case onlyActive:
				runs, err = kitchen.ActiveRuns(cmd.Context())
			case onlyPaused:
				runs, err = kitchen.PausedRuns(cmd.Context())
			default:
				runs, err = kitchen.AllRuns(cmd.Context(), !all)
			}
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Println("No runs found.")
				return nil
			}
			return printRunTable(os.Stdout, runs)
		},
	}
	cmd.Flags().BoolVar(&onlyActive, "active", false, "only runs counting against the quota")
	cmd.Flags().BoolVar(&onlyPaused, "paused", false, "only paused runs")
	cmd.Flags().BoolVar(&all, "all", false, "include child runs, not just parents")
	return cmd
}

func newRunGetCmd() *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "get <run-id>",
		Short: "Show one run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kitchen, err := newClient()
			if err != nil {
				return err
			}
			for {
				run, err := kitchen.Run(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				printRun(run)
				if !watch || run.State.Terminal() {
					return nil
				}
				select {
				case <-cmd.Context().Done():
					return cmd.Context().Err()
				case <-time.After(5 * time.Second):
				}
			}
		},
	}
	cmd.Flags().BoolVar(&watch, "watch", false, "poll until the run reaches a terminal state")
	return cmd
}

func newRunArtifactsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "artifacts <run-id>",
		Short: "List a run's artifacts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kitchen, err := newClient()
			if err != nil {
				return err
			}
			artifacts, err := kitchen.RunArtifacts(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if len(artifacts) == 0 {
				fmt.Println("No artifacts yet.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "KEY\tROWS\tDESCRIPTION")
			for _, artifact := range artifacts {
				fmt.Fprintf(w, "%s\t%d\t%s\n",
					artifact.Key,
					len(artifact.Table),
					artifact.Description,
				)
			}
			return w.Flush()
		},
	}
}

func newRunLifecycleCmd(verb, short string, op func(context.Context, string) error) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " <run-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := op(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Printf("Run %s: %s requested\n", args[0], verb)
			return nil
		},
	}
}

func printRunTable(out io.Writer, runs []domain.Run) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tSTATE\tCREATED")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			run.ID,
			run.Name,
			run.State,
			run.Created.Format(time.RFC3339),
		)
	}
	return w.Flush()
}

func printRun(run domain.Run) {
	fmt.Printf("Run %s\n", run.Name)
	fmt.Printf("  ID:      %s\n", run.ID)
	fmt.Printf("  State:   %s (%s)\n", run.State, run.StateName)
	fmt.Printf("  Created: %s\n", run.Created.Format(time.RFC3339))
	if len(run.Tags) > 0 {
		fmt.Printf("  Tags:    %v\n", run.Tags)
	}
	if run.ParentRef != nil {
		fmt.Printf("  Parent:  %s\n", *run.ParentRef)
	}
}
