package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ewilliams-labs/cadence/internal/core/domain"
	"github.com/ewilliams-labs/cadence/internal/core/services"
)

func newAnalyzeCommand(ctx *commandContext) *cobra.Command {
	var (
		preset      string
		instruments bool
		segments    bool
		format      string
	)

	cmd := &cobra.Command{
		Use:   "analyze FILE",
		Short: "Analyze an audio file in-process",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := domain.ParsePreset(preset)
			if err != nil {
				return err
			}
			out, err := resolveFormat(format, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			path := args[0]
			if _, err := os.Stat(path); err != nil {
				return fmt.Errorf("input: %w", err)
			}

			a, err := ctx.ensureApp()
			if err != nil {
				return err
			}
			result, err := a.Orchestrator.Analyze(cmd.Context(), services.AnalyzeRequest{
				InputPath:          path,
				Filename:           filepath.Base(path),
				Preset:             p,
				IncludeInstruments: instruments,
				IncludeSegments:    segments,
			})
			if err != nil {
				return err
			}
			return writeResult(cmd.OutOrStdout(), out, result)
		},
	}

	cmd.Flags().StringVar(&preset, "preset", string(domain.PresetFull), "Analysis preset (fast or full)")
	cmd.Flags().BoolVar(&instruments, "instruments", true, "Include the instruments block")
	cmd.Flags().BoolVar(&segments, "segments", false, "Include the segments block")
	cmd.Flags().StringVar(&format, "format", "", "Output format (json or table; default depends on terminal)")
	return cmd
}
