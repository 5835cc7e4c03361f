package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MimeLyc/subedit/internal/backend"
	"github.com/MimeLyc/subedit/internal/config"
	"github.com/MimeLyc/subedit/internal/subtitle"
)

func newFetchCmd() *cobra.Command {
	var (
		backendURL string
		trackName  string
		format     string
		outputPath string
		strict     bool
	)

	cmd := &cobra.Command{
		Use:   "fetch [video_id]",
		Short: "Download the subtitles of a video from the backend",
		Long: `Download the original and translated SRT tracks of a video from the video
backend and write them as one SRT or as JSON records.

The backend address and token come from $BACKEND_URL and $BACKEND_TOKEN.

Examples:
  subedit fetch 42 -o video42.srt
  subedit fetch 42 --format json --backend-url http://backend:8000`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			track, ok := subtitle.ParseTrack(trackName)
			if !ok {
				return fmt.Errorf("invalid track %q: supported tracks are original, translated, merged", trackName)
			}
			format = strings.ToLower(strings.TrimSpace(format))
			if format != "srt" && format != "json" {
				return fmt.Errorf("invalid format %q: supported formats are srt, json", format)
			}

			cfg, err := config.NewFromEnv(config.WithRuntimeSettings(config.RuntimeSettings{BackendURL: backendURL}))
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}

			client := backend.NewClient(cfg.Backend.URL, cfg.Backend.Token, cfg.Backend.Timeout)
			records, err := client.FetchSubtitles(cmd.Context(), args[0], subtitle.WithStrict(strict))
			if err != nil {
				return err
			}

			return writeOutput(cmd, outputPath, func(w io.Writer) error {
				if format == "json" {
					enc := json.NewEncoder(w)
					enc.SetIndent("", "  ")
					return enc.Encode(records)
				}
				return subtitle.WriteSRT(w, records, track)
			})
		},
	}

	cmd.Flags().StringVar(&backendURL, "backend-url", "", "Video backend URL (default: $BACKEND_URL)")
	cmd.Flags().StringVar(&trackName, "track", string(subtitle.TrackPreferTranslated), "Track to write: original, translated, merged")
	cmd.Flags().StringVarP(&format, "format", "f", "srt", "Output format: srt or json")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file (default: stdout)")
	cmd.Flags().BoolVar(&strict, "strict", false, "Drop blocks whose index is not a number")
	return cmd
}
