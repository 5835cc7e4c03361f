package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/MimeLyc/subedit/internal/subtitle"
	"github.com/MimeLyc/subedit/pkg/file"
)

func newExportCmd() *cobra.Command {
	var (
		translatedPath string
		trackName      string
		outputPath     string
		save           bool
		strict         bool
	)

	cmd := &cobra.Command{
		Use:   "export [srt_file]",
		Short: "Rewrite an SRT file using one of its tracks",
		Long: `Parse an SRT file (optionally paired with a translated one) and write it
back out as normalized SRT.

Tracks: original, translated, merged (translated text, falling back to the
original when empty).

Examples:
  subedit export movie.en.srt --translated movie.vi.srt --track merged -o movie.srt
  subedit export movie.srt --track original
  subedit export movie.en.srt --translated movie.vi.srt --save   # writes movie.en.merged.srt`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			track, ok := subtitle.ParseTrack(trackName)
			if !ok {
				return fmt.Errorf("invalid track %q: supported tracks are original, translated, merged", trackName)
			}
			records, err := loadRecords(cmd, args[0], translatedPath, strict)
			if err != nil {
				return err
			}
			if save && outputPath == "" {
				if args[0] == "-" {
					return fmt.Errorf("--save needs an input file, not stdin")
				}
				outputPath = file.TrackPath(args[0], string(track), ".srt")
			}
			return writeOutput(cmd, outputPath, func(w io.Writer) error {
				return subtitle.WriteSRT(w, records, track)
			})
		},
	}

	cmd.Flags().StringVarP(&translatedPath, "translated", "t", "", "SRT file with the translated track")
	cmd.Flags().StringVar(&trackName, "track", string(subtitle.TrackPreferTranslated), "Track to write: original, translated, merged")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file (default: stdout)")
	cmd.Flags().BoolVar(&save, "save", false, "Write next to the input file, named after the track")
	cmd.Flags().BoolVar(&strict, "strict", false, "Drop blocks whose index is not a number")
	return cmd
}

func writeOutput(cmd *cobra.Command, path string, write func(w io.Writer) error) error {
	if path == "" || path == "-" {
		return write(cmd.OutOrStdout())
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s\n", path)
	return nil
}
