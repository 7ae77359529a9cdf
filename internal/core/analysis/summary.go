package analysis

import (
	"fmt"
	"strings"

	"github.com/ewilliams-labs/cadence/internal/core/domain"
)

const (
	summaryTopK = 3
	vibeNeutral = "neutral"
	clubMinBPM  = 115.0
	danceMinBPM = 110.0
)

// SummaryInput gathers everything the summary is derived from.
type SummaryInput struct {
	Tempo     domain.TempoEstimate
	Key       domain.KeyEstimate
	GenreMood domain.GenreMoodResult
	Features  domain.FeatureSet
}

// BuildSummary derives a textual and numeric description of a track. It is
// pure: equal inputs always give equal summaries.
func BuildSummary(in SummaryInput) domain.Summary {
	energy := clamp01(in.Features.Energy)
	danceability := 0.0
	if in.Features.Danceability != nil {
		danceability = clamp01(*in.Features.Danceability)
	}
	acousticness := clamp01(in.Features.Acousticness)
	speechiness := clamp01(in.Features.Speechiness)
	valence := clamp01(in.GenreMood.Mood.Valence)
	arousal := clamp01(in.GenreMood.Mood.Arousal)
	bpm := in.Tempo.BPM
	bpmConf := clamp01(in.Tempo.Confidence)
	genreConf := clamp01(in.GenreMood.Genre.Confidence)

	genreTop := in.GenreMood.Genre.Top
	if genreTop == "" {
		genreTop = domain.UnknownLabel
	}
	topGenres := dedupe(append([]string{genreTop}, in.GenreMood.Genre.Distribution.TopLabels(summaryTopK)...))
	topMoods := in.GenreMood.Mood.Tags.TopLabels(summaryTopK)

	tempoLabel := TempoLabel(bpm)

	var vibe []string
	if energy >= 0.70 || arousal >= 0.70 {
		vibe = append(vibe, "energetic")
	}
	if valence >= 0.65 {
		vibe = append(vibe, "uplifting")
	}
	if valence <= 0.35 {
		vibe = append(vibe, "melancholic")
	}
	if acousticness >= 0.60 {
		vibe = append(vibe, "acoustic")
	}
	if danceability >= 0.70 && bpm >= danceMinBPM {
		vibe = append(vibe, "danceable")
	}
	if speechiness >= 0.55 {
		vibe = append(vibe, "talky_or_rap")
	}
	vibe = dedupe(append(vibe, topMoods...))
	if len(vibe) == 0 {
		vibe = []string{vibeNeutral}
	}

	club := 0.45*danceability + 0.35*energy
	if bpm >= clubMinBPM {
		club += 0.20
	}

	var named []string
	for _, g := range topGenres {
		if g != domain.UnknownLabel && len(named) < summaryTopK {
			named = append(named, g)
		}
	}
	genresText := strings.Join(named, ", ")
	if genresText == "" {
		genresText = domain.UnknownLabel
	}

	text := fmt.Sprintf("Style leans toward %s. Tempo is %s (%.1f BPM). Energy %.2f, danceability %.2f, valence %.2f, arousal %.2f.",
		genresText, tempoLabel, bpm, energy, danceability, valence, arousal)
	if in.Key.Known() {
		text += fmt.Sprintf(" Key: %s %s.", in.Key.Key, in.Key.Scale)
	}

	return domain.Summary{
		Text:       text,
		Vibe:       vibe,
		TempoLabel: tempoLabel,
		TopGenres:  topGenres,
		TopMoods:   topMoods,
		Scores: domain.FitScores{
			Club:  clamp01(club),
			Chill: clamp01(0.50*acousticness + 0.30*(1-arousal) + 0.20*(1-energy)),
			Focus: clamp01(0.45*(1-speechiness) + 0.35*acousticness + 0.20*(1-arousal)),
		},
		Confidence: domain.SummaryConfidence{
			Overall: clamp01(0.55*genreConf + 0.45*bpmConf),
			Genre:   genreConf,
			Tempo:   bpmConf,
		},
	}
}

// TempoLabel buckets a BPM value. Non-positive values are unknown.
func TempoLabel(bpm float64) string {
	switch {
	case bpm <= 0:
		return domain.UnknownLabel
	case bpm < 70:
		return domain.TempoVerySlow
	case bpm < 95:
		return domain.TempoSlow
	case bpm < 125:
		return domain.TempoMid
	case bpm < 155:
		return domain.TempoFast
	default:
		return domain.TempoVeryFast
	}
}

// dedupe drops empty and repeated labels, keeping first occurrences.
func dedupe(labels []string) []string {
	seen := make(map[string]bool, len(labels))
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		l = strings.TrimSpace(l)
		if l == "" || seen[l] {
			continue
		}
		seen[l] = true
		out = append(out, l)
	}
	return out
}
