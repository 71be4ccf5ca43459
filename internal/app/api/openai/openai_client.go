package openai

import (
	"fmt"
	"os"

	"github.com/sashabaranov/go-openai"
)

// NewClient creates an OpenAI client. An empty apiKey falls back to the
// OPENAI_API_KEY environment variable. baseURL points the client at an
// OpenAI compatible endpoint.
func NewClient(apiKey, baseURL, organization string) (*openai.Client, error) {
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is not set")
	}

	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	if organization != "" {
		config.OrgID = organization
	}
	return openai.NewClientWithConfig(config), nil
}
