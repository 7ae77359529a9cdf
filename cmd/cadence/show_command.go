package main

import (
	"github.com/spf13/cobra"
)

func newShowCommand(ctx *commandContext) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "show ID",
		Short: "Show a stored analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := resolveFormat(format, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			a, err := ctx.ensureApp()
			if err != nil {
				return err
			}
			result, err := a.Orchestrator.Result(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeResult(cmd.OutOrStdout(), out, result)
		},
	}
	cmd.Flags().StringVar(&format, "format", "", "Output format (json or table; default depends on terminal)")
	return cmd
}

func newRecentCommand(ctx *commandContext) *cobra.Command {
	var (
		limit  int
		format string
	)

	cmd := &cobra.Command{
		Use:   "recent",
		Short: "List recently stored analyses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := resolveFormat(format, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			a, err := ctx.ensureApp()
			if err != nil {
				return err
			}
			results, err := a.Orchestrator.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return writeResultList(cmd.OutOrStdout(), out, results)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of analyses to list")
	cmd.Flags().StringVar(&format, "format", "", "Output format (json or table; default depends on terminal)")
	return cmd
}
