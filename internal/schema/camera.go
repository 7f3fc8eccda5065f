// Package schema validates outgoing camera payloads against a JSON schema
// before they reach the camera service.
package schema

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const cameraSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["name", "source_type", "is_active", "config"],
  "properties": {
    "camera_id":   {"type": "string", "minLength": 1, "maxLength": 128, "pattern": "^[A-Za-z0-9_.:-]+$"},
    "name":        {"type": "string", "minLength": 1, "maxLength": 256},
    "source_type": {"enum": ["stream", "video"]},
    "stream_url":  {"type": "string"},
    "video_path":  {"type": "string"},
    "location":    {"type": "string"},
    "description": {"type": "string"},
    "lat":         {"type": "number", "minimum": -90, "maximum": 90},
    "lon":         {"type": "number", "minimum": -180, "maximum": 180},
    "is_active":   {"type": "boolean"},
    "config":      {"type": "object"}
  },
  "oneOf": [
    {"properties": {"source_type": {"const": "stream"}}, "not": {"required": ["video_path"]}},
    {"properties": {"source_type": {"const": "video"}},  "not": {"required": ["stream_url"]}}
  ]
}`

// CameraValidator validates camera create/update payloads.
type CameraValidator struct {
	schema *gojsonschema.Schema
}

func NewCameraValidator() (*CameraValidator, error) {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(cameraSchema))
	if err != nil {
		return nil, fmt.Errorf("compile camera schema: %w", err)
	}
	return &CameraValidator{schema: s}, nil
}

// ValidateCamera checks payload; create additionally requires camera_id.
func (v *CameraValidator) ValidateCamera(payload map[string]any, create bool) error {
	if create {
		if id, _ := payload["camera_id"].(string); id == "" {
			return fmt.Errorf("camera_id is required")
		}
	}

	result, err := v.schema.Validate(gojsonschema.NewGoLoader(payload))
	if err != nil {
		return fmt.Errorf("validate camera payload: %w", err)
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("invalid camera payload: %s", strings.Join(msgs, "; "))
}
