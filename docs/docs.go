// Package docs registers the OpenAPI document served under /swagger.
// Keep it in step with the swag annotations on the handlers.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/": {
            "get": {
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Service banner",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.RootResponse"}}
                }
            }
        },
        "/api/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Liveness probe",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.RootResponse"}}
                }
            }
        },
        "/health": {
            "get": {
                "description": "Reports engine, ffmpeg and scratch directory health",
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Dependency health",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.HealthResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/dto.HealthResponse"}}
                }
            }
        },
        "/stt": {
            "post": {
                "description": "Browser-recorder endpoint. Returns only the transcript; an empty string means no speech was recognized",
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["legacy"],
                "summary": "Transcribe an audio upload (legacy)",
                "parameters": [
                    {"type": "file", "description": "Audio file", "name": "audio", "in": "formData", "required": true}
                ],
                "responses": {
                    "200": {"description": "Transcript", "schema": {"$ref": "#/definitions/dto.TranscriptResponse"}},
                    "400": {"description": "No audio file", "schema": {"$ref": "#/definitions/dto.LegacyErrorResponse"}},
                    "500": {"description": "Transcoding or decoding failed", "schema": {"$ref": "#/definitions/dto.LegacyErrorResponse"}}
                }
            }
        },
        "/api/v1/transcriptions": {
            "post": {
                "description": "Transcodes the uploaded audio to 16 kHz mono, runs speech recognition and returns the transcript with pipeline metadata",
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["transcriptions"],
                "summary": "Transcribe an audio upload",
                "parameters": [
                    {"type": "file", "description": "Audio file (webm, ogg, mp3, wav)", "name": "audio", "in": "formData", "required": true},
                    {"type": "string", "description": "Client language hint, logged only", "name": "language", "in": "formData"}
                ],
                "responses": {
                    "200": {"description": "Transcription result", "schema": {"$ref": "#/definitions/dto.TranscriptionResponse"}},
                    "400": {"description": "Bad request - missing or empty upload", "schema": {"$ref": "#/definitions/errors.APIError"}},
                    "413": {"description": "Upload too large", "schema": {"$ref": "#/definitions/errors.APIError"}},
                    "422": {"description": "Validation error", "schema": {"$ref": "#/definitions/errors.APIError"}},
                    "500": {"description": "Transcoding or decoding failed", "schema": {"$ref": "#/definitions/errors.APIError"}}
                }
            }
        }
    },
    "definitions": {
        "dto.HealthResponse": {
            "type": "object",
            "properties": {
                "checks": {"type": "object", "additionalProperties": {"type": "string"}},
                "engine": {"type": "string"},
                "ok": {"type": "boolean"},
                "status": {"type": "string", "example": "healthy"}
            }
        },
        "dto.LegacyErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string", "example": "transcoding failed: Invalid data found when processing input"}
            }
        },
        "dto.RootResponse": {
            "type": "object",
            "properties": {
                "msg": {"type": "string"},
                "ok": {"type": "boolean"}
            }
        },
        "dto.TranscriptResponse": {
            "type": "object",
            "properties": {
                "transcript": {"type": "string", "example": "And so my fellow Americans"}
            }
        },
        "dto.TranscriptionResponse": {
            "type": "object",
            "properties": {
                "attempts": {"type": "integer", "example": 1},
                "audio_duration_s": {"type": "number", "example": 2.5},
                "degraded": {"type": "boolean"},
                "duration_ms": {"type": "integer", "example": 840},
                "engine": {"type": "string", "example": "whisper_cpp"},
                "format": {"type": "string", "example": "webm"},
                "is_empty": {"type": "boolean"},
                "language": {"type": "string", "example": "en"},
                "request_id": {"type": "string"},
                "transcript": {"type": "string"}
            }
        },
        "errors.APIError": {
            "type": "object",
            "properties": {
                "details": {"type": "object", "additionalProperties": {"type": "string"}},
                "kind": {"type": "string"},
                "message": {"type": "string"},
                "request_id": {"type": "string"},
                "stage": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Speech Backend API",
	Description:      "Speech-to-text for browser audio recordings.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
