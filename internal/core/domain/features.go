package domain

// FeatureSet holds heuristic timbral and energy descriptors. Energy,
// Danceability, Acousticness, Speechiness and LoudnessNorm lie in [0,1];
// the spectral fields are raw diagnostic means.
type FeatureSet struct {
	LoudnessProxyDB    float64  `json:"loudness_proxy_db"`
	LoudnessNorm       float64  `json:"loudness_norm"`
	Energy             float64  `json:"energy"`
	Danceability       *float64 `json:"danceability"`
	Acousticness       float64  `json:"acousticness"`
	Speechiness        float64  `json:"speechiness"`
	SpectralCentroidHz float64  `json:"spectral_centroid_hz"`
	SpectralRolloffHz  float64  `json:"spectral_rolloff_hz"`
	SpectralFlatness   float64  `json:"spectral_flatness"`
	ZCR                float64  `json:"zcr"`
}

func (f FeatureSet) validate() error {
	for name, v := range map[string]float64{
		"energy":        f.Energy,
		"acousticness":  f.Acousticness,
		"speechiness":   f.Speechiness,
		"loudness_norm": f.LoudnessNorm,
	} {
		if err := checkUnit(name, v); err != nil {
			return err
		}
	}
	if f.Danceability != nil {
		if err := checkUnit("danceability", *f.Danceability); err != nil {
			return err
		}
	}
	for name, v := range map[string]float64{
		"loudness_proxy_db":    f.LoudnessProxyDB,
		"spectral_centroid_hz": f.SpectralCentroidHz,
		"spectral_rolloff_hz":  f.SpectralRolloffHz,
		"spectral_flatness":    f.SpectralFlatness,
		"zcr":                  f.ZCR,
	} {
		if !isFinite(v) {
			return errNonFinite(name)
		}
	}
	return nil
}

// AudioFeatures is the serialized feature block: the locally extracted
// FeatureSet plus the integrated loudness reported by the external meter.
type AudioFeatures struct {
	LoudnessLUFS *float64 `json:"loudness_lufs"`
	FeatureSet
}
