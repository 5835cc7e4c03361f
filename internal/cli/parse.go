package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MimeLyc/subedit/internal/subtitle"
	"github.com/MimeLyc/subedit/pkg/log"
)

func newParseCmd() *cobra.Command {
	var (
		translatedPath string
		strict         bool
	)

	cmd := &cobra.Command{
		Use:   "parse [srt_file]",
		Short: "Parse an SRT file and print its records as JSON",
		Long: `Parse an SRT file and print the records as a JSON array.

Use "-" to read from stdin. With --translated, the blocks of a second SRT
fill the translated text of the records with the same index.

Examples:
  subedit parse movie.en.srt
  subedit parse movie.en.srt --translated movie.vi.srt
  cat movie.srt | subedit parse - --strict`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := loadRecords(cmd, args[0], translatedPath, strict)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(records)
		},
	}

	cmd.Flags().StringVarP(&translatedPath, "translated", "t", "", "SRT file with the translated track")
	cmd.Flags().BoolVar(&strict, "strict", false, "Drop blocks whose index is not a number")
	return cmd
}

func loadRecords(cmd *cobra.Command, path, translatedPath string, strict bool) ([]subtitle.Record, error) {
	content, err := readInput(cmd, path)
	if err != nil {
		return nil, err
	}
	opts := []subtitle.ParseOption{subtitle.WithStrict(strict)}
	records := subtitle.ParseSRT(content, opts...)

	if translatedPath != "" {
		translated, err := readInput(cmd, translatedPath)
		if err != nil {
			return nil, err
		}
		records = subtitle.MergeTranslated(records, subtitle.ParseSRT(translated, opts...))
	}

	log.Debug("Parsed %d records from %s", len(records), path)
	return records, nil
}

func readInput(cmd *cobra.Command, path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if strings.TrimSpace(path) == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}
