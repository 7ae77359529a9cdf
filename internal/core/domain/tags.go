package domain

import (
	"fmt"
	"sort"
)

// LabelScore is one entry of a tag distribution.
type LabelScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// TagDistribution is a sequence of label scores ordered by descending score.
type TagDistribution []LabelScore

// NewTagDistribution validates scores (finite, non-negative) and returns a
// copy sorted by descending score. Ties keep their input order.
func NewTagDistribution(entries []LabelScore) (TagDistribution, error) {
	out := make(TagDistribution, len(entries))
	for i, e := range entries {
		if e.Label == "" {
			return nil, fmt.Errorf("%w: empty label at index %d", ErrInvalid, i)
		}
		if !isFinite(e.Score) || e.Score < 0 {
			return nil, fmt.Errorf("%w: score %v for %q", ErrInvalid, e.Score, e.Label)
		}
		out[i] = e
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out, nil
}

// TopLabels returns up to k non-empty labels in distribution order.
func (d TagDistribution) TopLabels(k int) []string {
	labels := make([]string, 0, k)
	for _, e := range d {
		if len(labels) == k {
			break
		}
		if e.Label != "" {
			labels = append(labels, e.Label)
		}
	}
	return labels
}

// UnknownDistribution is the single-entry distribution used by fallbacks.
func UnknownDistribution() TagDistribution {
	return TagDistribution{{Label: UnknownLabel, Score: 1.0}}
}

// GenreResult is the genre section of the tagging model output.
type GenreResult struct {
	Top          string          `json:"top"`
	Confidence   float64         `json:"confidence"`
	Distribution TagDistribution `json:"distribution"`
}

// MoodResult is the mood section of the tagging model output.
type MoodResult struct {
	Valence float64         `json:"valence"`
	Arousal float64         `json:"arousal"`
	Tags    TagDistribution `json:"tags"`
}

// GenreMoodResult is what a GenreMoodModel produces for one track.
type GenreMoodResult struct {
	Genre GenreResult `json:"genre"`
	Mood  MoodResult  `json:"mood"`
}

// UnknownGenreMood is the neutral result used when no model output exists.
func UnknownGenreMood() GenreMoodResult {
	return GenreMoodResult{
		Genre: GenreResult{Top: UnknownLabel, Confidence: 0, Distribution: UnknownDistribution()},
		Mood:  MoodResult{Valence: 0.5, Arousal: 0.5, Tags: UnknownDistribution()},
	}
}

// Validate checks that confidences lie in [0,1] and scores are finite and
// non-negative.
func (g GenreMoodResult) Validate() error {
	if g.Genre.Top == "" {
		return fmt.Errorf("%w: empty top genre", ErrInvalid)
	}
	if err := checkUnit("genre confidence", g.Genre.Confidence); err != nil {
		return err
	}
	if err := checkUnit("valence", g.Mood.Valence); err != nil {
		return err
	}
	if err := checkUnit("arousal", g.Mood.Arousal); err != nil {
		return err
	}
	for _, d := range []TagDistribution{g.Genre.Distribution, g.Mood.Tags} {
		for _, e := range d {
			if !isFinite(e.Score) || e.Score < 0 {
				return fmt.Errorf("%w: score %v for %q", ErrInvalid, e.Score, e.Label)
			}
		}
	}
	return nil
}
