package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/zombar/arpolarity/internal/analyzer"
	"github.com/zombar/arpolarity/internal/corpus"
	"github.com/zombar/arpolarity/internal/report"
)

type batchFlags struct {
	sentences string
	resultDir string
	unlisted  bool
}

func newBatchCmd(a *app) *cobra.Command {
	var bf batchFlags

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Label a CSV of sentences and write a result CSV",
		Long: `Reads a sentence CSV, labels every sentence against the lexicon and writes
result-<unix-millis>.csv into the result directory. When the input carries a
Polarity column an agreement summary is printed.`,
		Args: cobra.NoArgs,
	}
	f := cmd.Flags()
	f.StringP("lexicon", "l", "", "lexicon CSV file")
	f.StringVarP(&bf.sentences, "sentences", "s", "", "sentence CSV file")
	f.StringVarP(&bf.resultDir, "result-dir", "r", "", "directory for the result CSV")
	f.String("stop-words", "", "stop word file, one word per line")
	f.Int("workers", 0, "analysis goroutines, 0 for GOMAXPROCS")
	f.BoolVar(&bf.unlisted, "unlisted", false, "also write the terms missing from the lexicon")
	cmd.MarkFlagRequired("sentences")
	cmd.MarkFlagRequired("result-dir")

	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		cfg, err := a.load(cmd, map[string]string{
			"lexicon.path":            "lexicon",
			"lexicon.stop_words":      "stop-words",
			"worker.analysis_workers": "workers",
		})
		if err != nil {
			return err
		}
		logger := a.logger

		if err := requireFile(cfg.Lexicon.Path); err != nil {
			return err
		}
		if err := requireFile(bf.sentences); err != nil {
			return err
		}
		if err := requireDir(bf.resultDir); err != nil {
			return err
		}

		log := analyzer.NewUnlistedLog()
		an, err := buildAnalyzer(cfg, logger, analyzer.WithUnlistedLog(log))
		if err != nil {
			return err
		}

		inputs, err := corpus.ReadSentencesFile(bf.sentences)
		if err != nil {
			return err
		}

		start := time.Now()
		sentences := make([]string, len(inputs))
		for i, in := range inputs {
			sentences[i] = in.Sentence
		}
		results, err := an.AnalyzeAll(cmd.Context(), sentences, cfg.Worker.AnalysisWorkers)
		if err != nil {
			return fmt.Errorf("failed to analyze sentences: %w", err)
		}
		records := analyzer.Records(inputs, results)

		now := time.Now()
		path, err := corpus.WriteResultsFile(bf.resultDir, records, now)
		if err != nil {
			return err
		}
		logger.Info("batch complete",
			"sentences", len(records),
			"result", path,
			"duration_ms", time.Since(start).Milliseconds(),
		)

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, path)

		if rep := report.FromResults(records); rep.Compared > 0 {
			if err := rep.WriteSummary(out); err != nil {
				return fmt.Errorf("failed to write summary: %w", err)
			}
		}

		if bf.unlisted {
			upath, err := writeUnlisted(bf.resultDir, log.Counts(), now)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, upath)
		}
		return nil
	}
	return cmd
}

// writeUnlisted writes one "term<TAB>count" line per term, most frequent first.
func writeUnlisted(dir string, counts []analyzer.TermCount, now time.Time) (string, error) {
	path := filepath.Join(dir, fmt.Sprintf("unlisted-%d.txt", now.UnixMilli()))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create unlisted file: %w", err)
	}

	w := bufio.NewWriter(f)
	for _, c := range counts {
		fmt.Fprintf(w, "%s\t%d\n", c.Term, c.Count)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return "", fmt.Errorf("failed to write unlisted file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close unlisted file: %w", err)
	}
	return path, nil
}

func requireFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s is not a regular file", path)
	}
	return nil
}

func requireDir(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", path)
	}
	return nil
}
