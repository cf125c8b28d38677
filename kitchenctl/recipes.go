package main

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mediacloud/sous-chef-kitchen/internal/domain"
)

func registerRecipeCommands(root *cobra.Command) {
	recipesCmd := &cobra.Command{
		Use:   "recipes",
		Short: "Browse and start recipes",
	}

	recipesCmd.AddCommand(newRecipeListCmd())
	recipesCmd.AddCommand(newRecipeSchemaCmd())
	recipesCmd.AddCommand(newRecipeStartCmd())

	root.AddCommand(recipesCmd)
}

func newRecipeListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List recipes available to your account",
		RunE: func(cmd *cobra.Command, args []string) error {
			kitchen, err := newClient()
			if err != nil {
				return err
			}
			recipes, err := kitchen.Recipes(cmd.Context())
			if err != nil {
				return err
			}
			if len(recipes) == 0 {
				fmt.Println("No recipes available.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tPARAMS\tDESCRIPTION")
			for _, recipe := range recipes {
				fmt.Fprintf(w, "%s\t%s\t%s\n",
					recipe.Name,
					strings.Join(recipe.Params, ","),
					recipe.Description,
				)
			}
			return w.Flush()
		},
	}
}

func newRecipeSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema <recipe>",
		Short: "Show a recipe's parameter schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kitchen, err := newClient()
			if err != nil {
				return err
			}
			schema, err := kitchen.RecipeSchema(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			fields := make([]string, 0, len(schema))
			for field := range schema {
				fields = append(fields, field)
			}
			sort.Strings(fields)

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "FIELD\tSPEC")
			for _, field := range fields {
				fmt.Fprintf(w, "%s\t%s\n", field, schema[field])
			}
			return w.Flush()
		},
	}
}

func newRecipeStartCmd() *cobra.Command {
	var (
		params []string
		tags   []string
	)
	cmd := &cobra.Command{
		Use:   "start <recipe>",
		Short: "Start a recipe run",
		Long: `Start a recipe run. Parameters are passed as repeated --param key=value
flags and sent as strings; the kitchen coerces them against the recipe schema.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kitchen, err := newClient()
			if err != nil {
				return err
			}

			parameters := domain.Params{}
			for _, pair := range params {
				key, value, found := strings.Cut(pair, "=")
				if !found || key == "" {
					return fmt.Errorf("invalid --param %q, expected key=value", pair)
				}
				parameters[key] = value
			}

			run, err := kitchen.StartRecipe(cmd.Context(), args[0], parameters, tags)
			if err != nil {
				return err
			}

			fmt.Printf("Run started: %s\n", run.Name)
			fmt.Printf("  ID:    %s\n", run.ID)
			fmt.Printf("  State: %s\n", run.State)
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&params, "param", nil, "recipe parameter as key=value (repeatable)")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "extra tag for the run (repeatable)")
	return cmd
}
