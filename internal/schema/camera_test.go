package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validPayload() map[string]any {
	return map[string]any{
		"camera_id":   "cam_01",
		"name":        "Gate",
		"source_type": "stream",
		"stream_url":  "rtsp://10.0.0.2/live",
		"is_active":   true,
		"config":      map[string]any{"fps": 5},
	}
}

func TestValidateCamera(t *testing.T) {
	v, err := NewCameraValidator()
	require.NoError(t, err)

	tests := []struct {
		name    string
		mutate  func(p map[string]any)
		create  bool
		wantErr string
	}{
		{name: "valid create", create: true},
		{name: "valid update without id", mutate: func(p map[string]any) { delete(p, "camera_id") }},
		{name: "create needs id", create: true, mutate: func(p map[string]any) { delete(p, "camera_id") }, wantErr: "camera_id is required"},
		{name: "bad source type", mutate: func(p map[string]any) { p["source_type"] = "ftp" }, wantErr: "invalid camera payload"},
		{name: "both locators", mutate: func(p map[string]any) { p["video_path"] = "/data/a.mp4" }, wantErr: "invalid camera payload"},
		{name: "config must be object", mutate: func(p map[string]any) { p["config"] = []any{1} }, wantErr: "invalid camera payload"},
		{name: "latitude out of range", mutate: func(p map[string]any) { p["lat"] = 123.0 }, wantErr: "invalid camera payload"},
		{name: "id with spaces", create: true, mutate: func(p map[string]any) { p["camera_id"] = "cam 01" }, wantErr: "invalid camera payload"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validPayload()
			if tt.mutate != nil {
				tt.mutate(p)
			}
			err := v.ValidateCamera(p, tt.create)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
