package dataset

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"voice-emotion-go/internal/sentiment"
)

func vec(base float64) []float64 {
	x := make([]float64, len(sentiment.FeatureNames))
	for i := range x {
		x[i] = base + float64(i)*0.5
	}
	return x
}

func TestWriteThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "train.xlsx")
	in := []sentiment.Sample{
		{Label: "positive", Features: vec(1)},
		{Label: "negative", Features: vec(-1)},
		{Label: "positive", Features: vec(2)},
	}
	require.NoError(t, WriteSamples(path, in))

	samples, ds, err := LoadAndSummarize(path)
	require.NoError(t, err)
	require.Len(t, samples, 3)
	assert.Equal(t, "negative", samples[1].Label)
	assert.InDeltaSlice(t, vec(-1), samples[1].Features, 1e-9)

	assert.Equal(t, 3, ds.TotalSamples)
	assert.Equal(t, []string{"negative", "positive"}, ds.Labels)
	assert.Equal(t, 2, ds.ByLabel["positive"])
	assert.InDelta(t, 2.0/3, ds.FeatureMeans["duration_sec"], 1e-9)
}

func TestLoadSkipsBadRowsAndMatchesHeaders(t *testing.T) {
	path := filepath.Join(t.TempDir(), "messy.xlsx")
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)

	// shuffled, differently cased headers with an extra column
	header := []interface{}{"Notes", "Emotion"}
	for i := len(sentiment.FeatureNames) - 1; i >= 0; i-- {
		header = append(header, sentiment.FeatureNames[i])
	}
	require.NoError(t, f.SetSheetRow(sheet, "A1", &header))

	good := []interface{}{"ok", "Neutral"}
	bad := []interface{}{"no label", ""}
	nan := []interface{}{"bad number", "neutral"}
	for i := len(sentiment.FeatureNames) - 1; i >= 0; i-- {
		good = append(good, float64(i))
		bad = append(bad, float64(i))
		nan = append(nan, "n/a")
	}
	require.NoError(t, f.SetSheetRow(sheet, "A2", &good))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &bad))
	require.NoError(t, f.SetSheetRow(sheet, "A4", &nan))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	samples, ds, err := LoadAndSummarize(path)
	require.NoError(t, err)
	require.Len(t, samples, 1)
	assert.Equal(t, "neutral", samples[0].Label)
	assert.Equal(t, 2, ds.Skipped)
	for i := range sentiment.FeatureNames {
		assert.InDelta(t, float64(i), samples[0].Features[i], 1e-9)
	}
}

func TestLoadRejectsMissingColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "short.xlsx")
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"label", "rms_mean"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{"positive", 0.2}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	_, err := LoadSamples(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing feature columns")
}

func TestAppendSamples(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grow.xlsx")
	require.NoError(t, AppendSamples(path, []sentiment.Sample{{Label: "positive", Features: vec(0)}}))
	require.NoError(t, AppendSamples(path, []sentiment.Sample{{Label: "negative", Features: vec(3)}}))

	samples, err := LoadSamples(path)
	require.NoError(t, err)
	require.Len(t, samples, 2)
	assert.Equal(t, "positive", samples[0].Label)
	assert.Equal(t, "negative", samples[1].Label)
}

func TestTrainFromWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "train.xlsx")
	var in []sentiment.Sample
	for i := 0; i < 10; i++ {
		in = append(in,
			sentiment.Sample{Label: "positive", Features: vec(5 + float64(i)*0.1)},
			sentiment.Sample{Label: "negative", Features: vec(-5 - float64(i)*0.1)},
		)
	}
	require.NoError(t, WriteSamples(path, in))

	store := sentiment.NewStore(filepath.Join(t.TempDir(), "m.json"), sentiment.WithTrainingSource(func() ([]sentiment.Sample, error) {
		return LoadSamples(path)
	}))
	m, err := store.Model()
	require.NoError(t, err)
	p, err := m.Predict(vec(4))
	require.NoError(t, err)
	assert.Equal(t, "positive", p.Label)
}
