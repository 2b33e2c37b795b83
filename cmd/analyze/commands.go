package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"voice-emotion-go/internal/app"
	"voice-emotion-go/internal/audio"
	"voice-emotion-go/internal/config"
	"voice-emotion-go/internal/dataset"
	"voice-emotion-go/internal/sentiment"
	"voice-emotion-go/internal/transcription"
)

func newNormalizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "normalize <input> <output.wav>",
		Short: "Convert a recording to canonical mono 16-bit WAV",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			n, err := audio.New(cfg.Normalizer, cfg.FFmpegPath, cfg.CanonicalSampleRate)
			if err != nil {
				return err
			}
			if err := n.Normalize(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			p, err := audio.ReadWAVFile(args[1])
			if err != nil {
				return err
			}
			return printResult(cmd, map[string]interface{}{
				"path":        args[1],
				"sample_rate": p.SampleRate,
				"duration":    p.Duration(),
			})
		},
	}
}

func newTranscribeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "transcribe <file.wav>",
		Short: "Transcribe a canonical WAV with the configured backend",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			svc, err := transcription.New(cfg)
			if err != nil {
				return err
			}
			tr, err := svc.Transcribe(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printResult(cmd, tr)
		},
	}
}

// newSentimentCmd is the direct-call path: unlike the pipeline it reports
// the confidence alongside the label.
func newSentimentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sentiment <file.wav>",
		Short: "Classify the sentiment of a canonical WAV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			res, err := sentiment.NewAnalyzer(app.NewModelStore(cfg)).Analyze(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if asJSON(cmd) {
				return printJSON(cmd, res)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%.3f\n", res.Label, res.Confidence)
			return nil
		},
	}
}

func newRunCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "run <recording>",
		Short: "Normalize a recording and run the full pipeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			phone, _ := cmd.Flags().GetString("phone")
			if phone == "" {
				return fmt.Errorf("--phone is required")
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			a, err := app.New(cfg)
			if err != nil {
				return err
			}
			wav, err := os.CreateTemp(cfg.ScratchDir, "run-*.wav")
			if err != nil {
				return err
			}
			wav.Close()
			defer os.Remove(wav.Name())

			if err := a.Normalizer.Normalize(cmd.Context(), args[0], wav.Name()); err != nil {
				return err
			}
			res, err := a.Pipeline.Run(cmd.Context(), wav.Name(), phone)
			if perr := printResult(cmd, res); perr != nil {
				return perr
			}
			return err
		},
	}
	c.Flags().String("phone", "", "destination phone number (required)")
	return c
}

func newTrainCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "train",
		Short: "Train the sentiment classifier from an xlsx feature workbook",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			data, _ := cmd.Flags().GetString("dataset")
			if data == "" {
				data = cfg.SentimentDataset
			}
			if data == "" {
				return fmt.Errorf("--dataset or SENTIMENT_DATASET is required")
			}
			out, _ := cmd.Flags().GetString("out")
			if out == "" {
				out = cfg.SentimentModelPath
			}
			iters, _ := cmd.Flags().GetInt("iterations")

			samples, summary, err := dataset.LoadAndSummarize(data)
			if err != nil {
				return err
			}
			m, err := sentiment.Train(samples, sentiment.TrainOptions{MaxIter: iters, Standardize: true})
			if err != nil {
				return err
			}
			if err := sentiment.NewStore(out).Replace(m); err != nil {
				return err
			}
			return printResult(cmd, map[string]interface{}{
				"model":   out,
				"classes": m.Classes,
				"samples": summary.TotalSamples,
				"skipped": summary.Skipped,
			})
		},
	}
	c.Flags().String("dataset", "", "xlsx workbook with labeled feature rows")
	c.Flags().String("out", "", "model artifact path (default SENTIMENT_MODEL_PATH)")
	c.Flags().Int("iterations", 0, "gradient descent iterations (default 200)")
	return c
}

func newFeaturesCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "features <file.wav>...",
		Short: "Extract acoustic features, optionally appending labeled rows to a workbook",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			label, _ := cmd.Flags().GetString("label")
			out, _ := cmd.Flags().GetString("out")
			if out != "" && label == "" {
				return fmt.Errorf("--label is required with --out")
			}

			var samples []sentiment.Sample
			rows := map[string]map[string]float64{}
			for _, path := range args {
				x, err := sentiment.ExtractFile(path)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				samples = append(samples, sentiment.Sample{Features: x, Label: label})
				named := map[string]float64{}
				for i, n := range sentiment.FeatureNames {
					named[n] = x[i]
				}
				rows[filepath.Base(path)] = named
			}
			if out != "" {
				if err := dataset.AppendSamples(out, samples); err != nil {
					return err
				}
			}
			return printResult(cmd, rows)
		},
	}
	c.Flags().String("label", "", "sentiment label for the rows")
	c.Flags().String("out", "", "xlsx workbook to append to")
	return c
}

func newSummarizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summarize <dataset.xlsx>",
		Short: "Show the label distribution of a training workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, summary, err := dataset.LoadAndSummarize(args[0])
			if err != nil {
				return err
			}
			if asJSON(cmd) {
				return printJSON(cmd, summary)
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "samples: %d (skipped %d)\n", summary.TotalSamples, summary.Skipped)
			for _, l := range summary.Labels {
				fmt.Fprintf(w, "  %-12s %d\n", l, summary.ByLabel[l])
			}
			return nil
		},
	}
}

func asJSON(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("json")
	return v
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printResult prints JSON with --json and a flat key listing otherwise.
func printResult(cmd *cobra.Command, v interface{}) error {
	if asJSON(cmd) {
		return printJSON(cmd, v)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var flat map[string]interface{}
	if err := json.Unmarshal(b, &flat); err != nil {
		fmt.Fprintln(cmd.OutOrStdout(), string(b))
		return nil
	}
	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %v\n", k, flat[k])
	}
	return nil
}
