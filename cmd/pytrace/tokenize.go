package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"pytrace/internal/diagfmt"
	"pytrace/internal/driver"
)

func newTokenizeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tokenize [flags] file.py",
		Short: "Print the token stream of a Python file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := cmd.Flags().GetString("format")
			if err != nil {
				return fmt.Errorf("failed to get format flag: %w", err)
			}
			if format != "pretty" && format != "json" {
				return fmt.Errorf("unknown format: %s", format)
			}
			maxDiagnostics, _ := cmd.Root().PersistentFlags().GetInt("max-diagnostics")

			result, err := driver.Tokenize(args[0], maxDiagnostics)
			if err != nil {
				return err
			}
			if result.Bag.Len() > 0 {
				result.Bag.Sort()
				diagfmt.Pretty(cmd.ErrOrStderr(), result.Bag, result.FileSet, diagfmt.PrettyOpts{
					Color:   !color.NoColor,
					Context: 1,
				})
			}
			a.log.Debug("tokenized", "path", result.File.Path, "tokens", len(result.Tokens))

			if format == "json" {
				return diagfmt.FormatTokensJSON(cmd.OutOrStdout(), result.Tokens, result.FileSet)
			}
			return diagfmt.FormatTokensPretty(cmd.OutOrStdout(), result.Tokens, result.FileSet)
		},
	}
	cmd.Flags().String("format", "pretty", "output format (pretty|json)")
	return cmd
}

func newCheckCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [flags] file.py",
		Short: "Report syntax errors without running the script",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")
			if format != "pretty" && format != "json" {
				return fmt.Errorf("unknown format: %s", format)
			}
			maxDiagnostics, _ := cmd.Root().PersistentFlags().GetInt("max-diagnostics")

			result, err := driver.Check(args[0], maxDiagnostics)
			if err != nil {
				return err
			}
			a.log.Debug("checked", "path", result.File.Path, "diagnostics", result.Bag.Len())
			out := cmd.OutOrStdout()
			if format == "json" {
				if err := diagfmt.JSON(out, result.Bag, result.FileSet, diagfmt.JSONOpts{IncludePositions: true, IncludeNotes: true}); err != nil {
					return err
				}
			} else {
				diagfmt.Pretty(out, result.Bag, result.FileSet, diagfmt.PrettyOpts{
					Color:     !color.NoColor,
					Context:   1,
					ShowNotes: true,
				})
			}
			if result.Bag.HasErrors() {
				return fmt.Errorf("%s: %d diagnostic(s)", result.File.Path, result.Bag.Len())
			}
			if format == "pretty" {
				fmt.Fprintf(out, "%s: ok\n", result.File.Path)
			}
			return nil
		},
	}
	cmd.Flags().String("format", "pretty", "output format (pretty|json)")
	return cmd
}
