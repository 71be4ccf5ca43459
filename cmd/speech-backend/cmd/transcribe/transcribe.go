package transcribe

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"
	"speech-backend/internal/app"
	"speech-backend/internal/app/converter"
	"speech-backend/internal/config"
)

var (
	outputDir string
	parallel  int
	progress  bool
)

// NewCmd returns the transcribe command. configPath is bound to the root flag.
func NewCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transcribe FILE...",
		Short: "Transcribe local audio files through the server pipeline",
		Long: `Transcribe local audio files through the server pipeline

- Each file is transcoded with ffmpeg and recognized by the configured engine
- Transcripts are printed, or written to <output>/<name>.txt with --output
- Progress bars are drawn when stderr is a terminal`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}

			conv, cleanup, err := app.InitializeConverter(cmd.Context(), cfg, converter.ProgressConfig{
				Enabled: converter.ShouldShowProgress(progress),
				Writer:  cmd.ErrOrStderr(),
			})
			if err != nil {
				return fmt.Errorf("failed to initialize: %w", err)
			}
			defer cleanup()
			defer conv.Close()

			results, err := conv.ConvertFiles(cmd.Context(), args, outputDir, parallel)
			if err != nil {
				return err
			}
			return report(cmd.OutOrStdout(), cmd.ErrOrStderr(), results)
		},
	}
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "directory for .txt transcripts")
	cmd.Flags().IntVarP(&parallel, "parallel", "j", 1, "files transcribed at the same time")
	cmd.Flags().BoolVar(&progress, "progress", false, "force progress bars")
	return cmd
}

func report(w, errW io.Writer, results []converter.FileResult) error {
	for _, r := range results {
		name := filepath.Base(r.Path)
		switch {
		case r.Err != nil:
			fmt.Fprintf(errW, "%s: %v\n", name, r.Err)
		case r.OutputPath != "":
			fmt.Fprintf(w, "%s -> %s\n", name, r.OutputPath)
		default:
			fmt.Fprintf(w, "%s: %s\n", name, r.Transcript)
		}
	}
	if failed := converter.Failed(results); len(failed) > 0 {
		return fmt.Errorf("%d of %d files failed", len(failed), len(results))
	}
	return nil
}
