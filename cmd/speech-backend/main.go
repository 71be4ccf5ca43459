// @title Speech Backend API
// @version 1.0
// @description Speech-to-text for browser audio recordings.
// @BasePath /
package main

import (
	"fmt"
	"os"

	"speech-backend/cmd/speech-backend/cmd"
	"speech-backend/internal/config"
)

func main() {
	if _, err := config.LoadEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration warning: %v\n", err)
	}

	cmd.Execute()
}
