package dataset

import (
	"sort"

	"voice-emotion-go/internal/logger"
	"voice-emotion-go/internal/sentiment"
)

type DatasetSummary struct {
	TotalSamples int                `json:"total_samples"`
	Skipped      int                `json:"skipped_rows"`
	ByLabel      map[string]int     `json:"by_label"`
	Labels       []string           `json:"labels"`
	FeatureMeans map[string]float64 `json:"feature_means"`
}

// LoadAndSummarize reads the dataset and reports its label distribution and
// per-feature means, so a workbook can be checked before training on it.
func LoadAndSummarize(path string) ([]sentiment.Sample, DatasetSummary, error) {
	samples, skipped, err := load(path)
	if err != nil {
		return nil, DatasetSummary{}, err
	}
	ds := Summarize(samples)
	ds.Skipped = skipped
	logger.New().WithField("component", "dataset.summary").WithFields(map[string]interface{}{
		"total_samples": ds.TotalSamples,
		"labels":        ds.Labels,
		"skipped":       skipped,
	}).Info("dataset summarization complete")
	return samples, ds, nil
}

func Summarize(samples []sentiment.Sample) DatasetSummary {
	ds := DatasetSummary{
		TotalSamples: len(samples),
		ByLabel:      map[string]int{},
		FeatureMeans: map[string]float64{},
	}
	for _, s := range samples {
		ds.ByLabel[s.Label]++
		for j, v := range s.Features {
			if j < len(sentiment.FeatureNames) {
				ds.FeatureMeans[sentiment.FeatureNames[j]] += v
			}
		}
	}
	for k := range ds.FeatureMeans {
		ds.FeatureMeans[k] /= float64(len(samples))
	}
	for l := range ds.ByLabel {
		ds.Labels = append(ds.Labels, l)
	}
	sort.Strings(ds.Labels)
	return ds
}
