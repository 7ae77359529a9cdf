package domain

// Tempo labels used by Summary.TempoLabel.
const (
	TempoVerySlow = "very_slow"
	TempoSlow     = "slow"
	TempoMid      = "mid"
	TempoFast     = "fast"
	TempoVeryFast = "very_fast"
)

// FitScores rate how well a track fits common listening contexts.
type FitScores struct {
	Club  float64 `json:"club"`
	Chill float64 `json:"chill"`
	Focus float64 `json:"focus"`
}

// SummaryConfidence summarizes how much the summary can be trusted.
type SummaryConfidence struct {
	Overall float64 `json:"overall"`
	Genre   float64 `json:"genre"`
	Tempo   float64 `json:"tempo"`
}

// Summary is the rule-based description of a track.
type Summary struct {
	Text       string            `json:"text"`
	Vibe       []string          `json:"vibe"`
	TempoLabel string            `json:"tempo_label"`
	// TopGenres is the top genre followed by the leading distribution
	// labels, with repeats dropped in first-seen order.
	TopGenres  []string          `json:"top_genres"`
	TopMoods   []string          `json:"top_moods"`
	Scores     FitScores         `json:"scores"`
	Confidence SummaryConfidence `json:"confidence"`
}

func (s Summary) validate() error {
	for name, v := range map[string]float64{
		"club score":         s.Scores.Club,
		"chill score":        s.Scores.Chill,
		"focus score":        s.Scores.Focus,
		"overall confidence": s.Confidence.Overall,
		"genre confidence":   s.Confidence.Genre,
		"tempo confidence":   s.Confidence.Tempo,
	} {
		if err := checkUnit(name, v); err != nil {
			return err
		}
	}
	return nil
}
