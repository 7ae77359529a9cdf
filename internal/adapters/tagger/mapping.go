package tagger

import (
	"math"
	"sort"

	"github.com/ewilliams-labs/cadence/internal/core/domain"
)

// Tag subsets of the MagnaTagATune/MSD vocabulary used for genre and mood.
var (
	GenreTags = []string{
		"rock", "pop", "alternative", "indie", "electronic", "hiphop", "rap", "jazz", "blues",
		"classical", "metal", "punk", "reggae", "latin", "country", "folk", "soul", "funk",
		"rnb", "dance",
	}
	MoodTags = []string{"happy", "sad", "relax", "aggressive", "party", "dark", "romantic", "epic"}
)

const (
	genreTopK = 10
	moodTopK  = 6
)

// MapTags turns raw tag scores into a genre distribution, a mood tag
// distribution and valence/arousal estimates.
func MapTags(scores map[string]float64) domain.GenreMoodResult {
	genreTop, genreConf, genreDist := topAndDistribution(GenreTags, scores, genreTopK)
	_, _, moodDist := topAndDistribution(MoodTags, scores, moodTopK)

	valence := 0.5 + 0.5*(scores["happy"]+scores["party"]+scores["romantic"]-scores["sad"]-scores["dark"])
	arousal := 0.5 + 0.5*(scores["aggressive"]+scores["party"]+scores["epic"]-scores["relax"])

	return domain.GenreMoodResult{
		Genre: domain.GenreResult{Top: genreTop, Confidence: genreConf, Distribution: genreDist},
		Mood:  domain.MoodResult{Valence: clamp01(valence), Arousal: clamp01(arousal), Tags: moodDist},
	}
}

// topAndDistribution normalizes the scores of tags (negative values count
// as zero) and returns the best tag, its share and the top k entries.
func topAndDistribution(tags []string, scores map[string]float64, k int) (string, float64, domain.TagDistribution) {
	vals := make([]float64, len(tags))
	var sum float64
	for i, t := range tags {
		v := scores[t]
		if math.IsNaN(v) || v < 0 {
			v = 0
		}
		vals[i] = v
		sum += v
	}
	for i := range vals {
		vals[i] /= sum + 1e-12
	}

	order := make([]int, len(tags))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return vals[order[a]] > vals[order[b]] })

	if k > len(order) {
		k = len(order)
	}
	dist := make(domain.TagDistribution, 0, k)
	for _, i := range order[:k] {
		dist = append(dist, domain.LabelScore{Label: tags[i], Score: vals[i]})
	}
	top := order[0]
	return tags[top], clamp01(vals[top]), dist
}

func clamp01(x float64) float64 {
	if math.IsNaN(x) {
		return 0
	}
	return math.Max(0, math.Min(1, x))
}
