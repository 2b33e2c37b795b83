package dataset

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
	"voice-emotion-go/internal/logger"
	"voice-emotion-go/internal/sentiment"
)

// LoadSamples reads labeled acoustic feature rows from the first sheet of an
// xlsx workbook. The header row must contain a label column (label,
// sentiment or emotion) and one column per sentiment.FeatureNames entry.
// Rows with an empty label or a non-numeric feature are skipped.
func LoadSamples(path string) ([]sentiment.Sample, error) {
	samples, _, err := load(path)
	return samples, err
}

func load(path string) ([]sentiment.Sample, int, error) {
	log := logger.New().WithField("component", "dataset.loader").WithField("path", path)
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, 0, fmt.Errorf("no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, 0, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) <= 1 {
		return nil, 0, fmt.Errorf("no data rows")
	}

	labelIdx, featureIdx, err := detectColumns(rows[0])
	if err != nil {
		return nil, 0, err
	}
	log.WithField("label_idx", labelIdx).Debug("detected dataset columns")

	var out []sentiment.Sample
	skipped := 0
	for _, r := range rows[1:] {
		s, ok := parseRow(r, labelIdx, featureIdx)
		if !ok {
			skipped++
			continue
		}
		out = append(out, s)
	}
	if len(out) == 0 {
		return nil, skipped, fmt.Errorf("no usable rows (%d skipped)", skipped)
	}
	log.WithField("samples", len(out)).WithField("skipped", skipped).Info("training dataset loaded")
	return out, skipped, nil
}

func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(h)
}

func detectColumns(header []string) (int, []int, error) {
	labelIdx := -1
	pos := map[string]int{}
	for i, h := range header {
		n := normalizeHeader(h)
		switch {
		case n == "label" || strings.Contains(n, "sentiment") || strings.Contains(n, "emotion"):
			if labelIdx == -1 {
				labelIdx = i
			}
		default:
			pos[n] = i
		}
	}
	if labelIdx == -1 {
		return 0, nil, fmt.Errorf("no label column in header")
	}
	featureIdx := make([]int, len(sentiment.FeatureNames))
	var missing []string
	for j, name := range sentiment.FeatureNames {
		i, ok := pos[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		featureIdx[j] = i
	}
	if len(missing) > 0 {
		return 0, nil, fmt.Errorf("missing feature columns: %s", strings.Join(missing, ", "))
	}
	return labelIdx, featureIdx, nil
}

func parseRow(r []string, labelIdx int, featureIdx []int) (sentiment.Sample, bool) {
	if labelIdx >= len(r) {
		return sentiment.Sample{}, false
	}
	label := strings.ToLower(strings.TrimSpace(r[labelIdx]))
	if label == "" {
		return sentiment.Sample{}, false
	}
	x := make([]float64, len(featureIdx))
	for j, i := range featureIdx {
		if i >= len(r) {
			return sentiment.Sample{}, false
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(r[i]), 64)
		if err != nil {
			return sentiment.Sample{}, false
		}
		x[j] = v
	}
	return sentiment.Sample{Features: x, Label: label}, true
}

// WriteSamples writes samples to a new workbook in the layout LoadSamples
// reads. An existing file at path is replaced.
func WriteSamples(path string, samples []sentiment.Sample) error {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	header := []interface{}{"label"}
	for _, n := range sentiment.FeatureNames {
		header = append(header, n)
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	for i, s := range samples {
		row := []interface{}{s.Label}
		for _, v := range s.Features {
			row = append(row, v)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return f.SaveAs(path)
}

// AppendSamples adds samples to the workbook at path, creating it if needed.
// Rows LoadSamples would skip are not carried over.
func AppendSamples(path string, samples []sentiment.Sample) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return WriteSamples(path, samples)
	}
	existing, _, err := load(path)
	if err != nil {
		return err
	}
	return WriteSamples(path, append(existing, samples...))
}
