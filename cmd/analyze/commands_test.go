package main

import (
	"bytes"
	"encoding/json"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"voice-emotion-go/internal/audio"
	"voice-emotion-go/internal/dataset"
	"voice-emotion-go/internal/sentiment"
)

// isolate runs the command in an empty directory with a private model path.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("SENTIMENT_MODEL_PATH", filepath.Join(dir, "model.json"))
	t.Setenv("SENTIMENT_DATASET", "")
	t.Setenv("TRANSCRIBER", "mock")
	t.Setenv("NOTIFIER", "log")
	t.Setenv("AUDIO_NORMALIZER", "native")
	t.Setenv("SCRATCH_DIR", dir)
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func writeTone(t *testing.T, dir string) string {
	t.Helper()
	const rate = 16000
	s := make([]int16, rate)
	for i := range s {
		s[i] = int16(0.3 * math.MaxInt16 * math.Sin(2*math.Pi*180*float64(i)/rate))
	}
	path := filepath.Join(dir, "tone.wav")
	require.NoError(t, audio.WriteWAVFile(path, &audio.PCM{SampleRate: rate, Channels: 1, Samples: s}))
	return path
}

func TestSentimentPrintsLabelAndConfidence(t *testing.T) {
	dir := isolate(t)
	out, err := execute(t, "sentiment", writeTone(t, dir))
	require.NoError(t, err)
	assert.Regexp(t, `^(negative|neutral|positive)\t[01]\.\d{3}\n$`, out)

	out, err = execute(t, "--json", "sentiment", writeTone(t, dir))
	require.NoError(t, err)
	var res struct {
		Label      string  `json:"label"`
		Confidence float64 `json:"confidence"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Contains(t, sentiment.PlaceholderLabels, res.Label)
	assert.Greater(t, res.Confidence, 0.0)
}

func TestRunRequiresPhone(t *testing.T) {
	dir := isolate(t)
	_, err := execute(t, "run", writeTone(t, dir))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--phone")
}

func TestRunMockPipeline(t *testing.T) {
	dir := isolate(t)
	out, err := execute(t, "run", "--phone", "+15550100", writeTone(t, dir))
	require.NoError(t, err)
	assert.Contains(t, out, "notified: true")
	assert.Contains(t, out, "Do not mention my emotional state")
}

func writeWorkbook(t *testing.T, path string) {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	header := []interface{}{"Emotion"}
	for _, n := range sentiment.FeatureNames {
		header = append(header, n)
	}
	require.NoError(t, f.SetSheetRow(sheet, "A1", &header))

	rows := [][]interface{}{{"", 0.5, 0.5}} // unlabeled, skipped
	for i := 0; i < 6; i++ {
		calm, angry := []interface{}{"calm"}, []interface{}{"angry"}
		for j := range sentiment.FeatureNames {
			calm = append(calm, 0.1+float64(i+j)*0.01)
			angry = append(angry, 0.9+float64(i+j)*0.01)
		}
		rows = append(rows, calm, angry)
	}
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &r))
	}
	require.NoError(t, f.SaveAs(path))
}

func TestTrainThenSummarize(t *testing.T) {
	dir := isolate(t)
	book := filepath.Join(dir, "features.xlsx")
	model := filepath.Join(dir, "trained.json")
	writeWorkbook(t, book)

	out, err := execute(t, "train", "--dataset", book, "--out", model, "--iterations", "50")
	require.NoError(t, err)
	assert.Contains(t, out, "samples: 12")
	assert.Contains(t, out, "skipped: 1")

	m, err := sentiment.LoadModel(model)
	require.NoError(t, err)
	assert.Equal(t, []string{"angry", "calm"}, m.Classes)
	assert.False(t, m.Placeholder)

	out, err = execute(t, "summarize", book)
	require.NoError(t, err)
	assert.Contains(t, out, "samples: 12 (skipped 1)")
	assert.Regexp(t, `angry\s+6`, out)
	assert.Regexp(t, `calm\s+6`, out)
}

func TestTrainRequiresDataset(t *testing.T) {
	isolate(t)
	_, err := execute(t, "train")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SENTIMENT_DATASET")
}

func TestFeaturesAppendsLabeledRows(t *testing.T) {
	dir := isolate(t)
	book := filepath.Join(dir, "collected.xlsx")
	tone := writeTone(t, dir)

	_, err := execute(t, "features", "--out", book, tone)
	assert.Error(t, err, "--out without --label")

	_, err = execute(t, "features", "--label", "calm", "--out", book, tone)
	require.NoError(t, err)
	_, err = execute(t, "features", "--label", "calm", "--out", book, tone)
	require.NoError(t, err)

	samples, err := dataset.LoadSamples(book)
	require.NoError(t, err)
	require.Len(t, samples, 2)
	assert.Equal(t, "calm", samples[0].Label)
	_, err = os.Stat(book)
	assert.NoError(t, err)
}
