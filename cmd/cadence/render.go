package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/ewilliams-labs/cadence/internal/core/domain"
)

type outputFormat string

const (
	formatJSON  outputFormat = "json"
	formatTable outputFormat = "table"
)

// resolveFormat validates an explicit format or picks table for terminals
// and JSON otherwise.
func resolveFormat(flag string, w io.Writer) (outputFormat, error) {
	switch strings.ToLower(strings.TrimSpace(flag)) {
	case "":
		if isTerminal(w) {
			return formatTable, nil
		}
		return formatJSON, nil
	case string(formatJSON):
		return formatJSON, nil
	case string(formatTable):
		return formatTable, nil
	default:
		return "", fmt.Errorf("unknown format %q (want json or table)", flag)
	}
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeResult(w io.Writer, format outputFormat, r domain.AnalysisResult) error {
	if format == formatJSON {
		return writeJSON(w, r)
	}

	rows := [][]string{
		{"Job", r.Meta.JobID},
		{"Preset", string(r.Meta.Preset)},
		{"Duration", fmt.Sprintf("%.1f s @ %d Hz", r.Track.DurationSec, r.Track.SampleRate)},
		{"Tempo", formatTempo(r.Tempo)},
		{"Key", formatKey(r.Key)},
		{"Genre", fmt.Sprintf("%s (%.2f)", titleLabel(r.Genre.Top), r.Genre.Confidence)},
		{"Moods", strings.Join(titleLabels(r.Mood.Tags.TopLabels(3)), ", ")},
		{"Valence / Arousal", fmt.Sprintf("%.2f / %.2f", r.Mood.Valence, r.Mood.Arousal)},
		{"Energy", fmt.Sprintf("%.2f", r.AudioFeatures.Energy)},
		{"Danceability", formatOptional(r.AudioFeatures.Danceability, "%.2f")},
		{"Loudness", formatOptional(r.AudioFeatures.LoudnessLUFS, "%.1f LUFS")},
		{"Vibe", strings.Join(titleLabels(r.Summary.Vibe), ", ")},
		{"Summary", r.Summary.Text},
	}
	if r.Segments != nil && r.Segments.BeatsCount != nil {
		rows = append(rows, []string{"Beats", fmt.Sprintf("%d", *r.Segments.BeatsCount)})
	}
	if _, err := fmt.Fprintln(w, renderTable([]string{"Field", "Value"}, rows, nil)); err != nil {
		return err
	}

	if len(r.Meta.Warnings) > 0 {
		warn := make([][]string, 0, len(r.Meta.Warnings))
		for i, msg := range r.Meta.Warnings {
			warn = append(warn, []string{fmt.Sprintf("%d", i+1), msg})
		}
		if _, err := fmt.Fprintln(w, renderTable([]string{"#", "Warning"}, warn, []columnAlignment{alignRight, alignLeft})); err != nil {
			return err
		}
	}
	return nil
}

func writeResultList(w io.Writer, format outputFormat, results []domain.AnalysisResult) error {
	if format == formatJSON {
		return writeJSON(w, results)
	}
	if len(results) == 0 {
		_, err := fmt.Fprintln(w, "No analyses stored")
		return err
	}
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		rows = append(rows, []string{
			r.Meta.JobID,
			string(r.Meta.Preset),
			formatTempo(r.Tempo),
			formatKey(r.Key),
			titleLabel(r.Genre.Top),
			fmt.Sprintf("%d", len(r.Meta.Warnings)),
		})
	}
	headers := []string{"Job", "Preset", "Tempo", "Key", "Genre", "Warnings"}
	aligns := []columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft, alignRight}
	_, err := fmt.Fprintln(w, renderTable(headers, rows, aligns))
	return err
}

func formatTempo(t domain.TempoEstimate) string {
	if !t.Determined() {
		return "Unknown"
	}
	return fmt.Sprintf("%.1f BPM (%.2f)", t.BPM, t.Confidence)
}

func formatKey(k domain.KeyEstimate) string {
	if !k.Known() {
		return "Unknown"
	}
	return fmt.Sprintf("%s %s (%.2f)", k.Key, titleLabel(string(k.Scale)), k.Confidence)
}

func formatOptional(v *float64, layout string) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf(layout, *v)
}

func titleLabel(s string) string {
	return cases.Title(language.Und).String(strings.ReplaceAll(s, "_", " "))
}

func titleLabels(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = titleLabel(s)
	}
	return out
}
