package docs

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swaggo/swag"
)

func TestSwaggerDocRenders(t *testing.T) {
	doc, err := swag.ReadDoc(SwaggerInfo.InstanceName())
	require.NoError(t, err)
	require.True(t, json.Valid([]byte(doc)))

	var parsed struct {
		Paths       map[string]map[string]json.RawMessage `json:"paths"`
		Definitions map[string]json.RawMessage            `json:"definitions"`
	}
	require.NoError(t, json.Unmarshal([]byte(doc), &parsed))

	for path, method := range map[string]string{
		"/":                      "get",
		"/health":                "get",
		"/api/health":            "get",
		"/stt":                   "post",
		"/api/v1/transcriptions": "post",
	} {
		assert.Contains(t, parsed.Paths[path], method, path)
	}
	for _, def := range []string{"dto.TranscriptionResponse", "dto.TranscriptResponse", "dto.LegacyErrorResponse", "errors.APIError"} {
		assert.Contains(t, parsed.Definitions, def)
	}
}
