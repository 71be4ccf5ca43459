package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"speech-backend/cmd/speech-backend/cmd/serve"
	"speech-backend/cmd/speech-backend/cmd/transcribe"
	"speech-backend/cmd/speech-backend/cmd/version"
)

var configPath string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "speech-backend",
	Short: "Speech-to-text backend for browser audio recordings",
	Long: `Speech-to-text backend for browser audio recordings.
- serve: accept uploads on POST /stt and /api/v1/transcriptions
- transcribe: run local files through the same pipeline
- Audio is normalized to 16 kHz mono with ffmpeg before recognition.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"config file (default $SPEECH_BACKEND_CONFIG or config/speech-backend.yaml)")

	rootCmd.AddCommand(serve.NewCmd(&configPath))
	rootCmd.AddCommand(transcribe.NewCmd(&configPath))
	rootCmd.AddCommand(version.Cmd)
}
