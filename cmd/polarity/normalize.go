package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zombar/arpolarity/internal/normalizer"
	"github.com/zombar/arpolarity/internal/tokenizer"
)

func newNormalizeCmd(a *app) *cobra.Command {
	var tokens bool

	cmd := &cobra.Command{
		Use:   "normalize",
		Short: "Normalize stdin line by line",
		Args:  cobra.NoArgs,
	}
	cmd.Flags().BoolVar(&tokens, "tokens", false, "print the space separated tokens instead")
	cmd.Flags().String("stop-words", "", "stop word file used with --tokens")

	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		cfg, err := a.load(cmd, map[string]string{"lexicon.stop_words": "stop-words"})
		if err != nil {
			return err
		}

		norm := normalizer.New()
		line := norm.Normalize
		if tokens {
			stop, err := loadStopWords(cfg, norm)
			if err != nil {
				return err
			}
			tok, err := tokenizer.New(stop, tokenizer.WithNormalizer(norm))
			if err != nil {
				return err
			}
			line = func(s string) string { return strings.Join(tok.Tokenize(s), " ") }
		}

		out := bufio.NewWriter(cmd.OutOrStdout())
		scanner := bufio.NewScanner(cmd.InOrStdin())
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			fmt.Fprintln(out, line(scanner.Text()))
		}
		if err := scanner.Err(); err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}
		return out.Flush()
	}
	return cmd
}
