package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func lookupFrom(env map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}
}

func TestFromLookup_Defaults(t *testing.T) {
	c, err := FromLookup(lookupFrom(nil))
	if err != nil {
		t.Fatalf("FromLookup() error = %v", err)
	}
	d := Default()
	if c != d {
		t.Errorf("expected defaults %+v, got %+v", d, c)
	}
	if c.HitRadiusFactor != 0.5 || c.CaptureRadius != 0.25 || c.Snap {
		t.Errorf("unexpected placement defaults %+v", c)
	}
	if !strings.HasSuffix(c.DBPath(), "arsticker.db") {
		t.Errorf("DBPath() = %s", c.DBPath())
	}
}

func TestFromLookup_Overrides(t *testing.T) {
	c, err := FromLookup(lookupFrom(map[string]string{
		"ARSTICKER_ADDR":            "127.0.0.1:9000",
		"ARSTICKER_CAMERA":          "clip.mp4",
		"ARSTICKER_FPS":             "24",
		"ARSTICKER_STREAM_FPS":      "7.5",
		"ARSTICKER_BACKEND":         "OpenCV",
		"ARSTICKER_PINCH_THRESHOLD": "0.05",
		"ARSTICKER_SNAP":            "true",
		"ARSTICKER_TRAY":            "0",
		"ARSTICKER_LOG_LEVEL":       "DEBUG",
		"ARSTICKER_MODEL_TIMEOUT":   "90s",
		"ARSTICKER_WEB_DIR":         "  ",
	}))
	if err != nil {
		t.Fatalf("FromLookup() error = %v", err)
	}

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"addr", c.Addr, "127.0.0.1:9000"},
		{"camera", c.Camera, "clip.mp4"},
		{"fps", c.FPS, 24},
		{"stream fps", c.StreamFPS, 7.5},
		{"backend", c.Backend, "opencv"},
		{"pinch", c.PinchThreshold, 0.05},
		{"snap", c.Snap, true},
		{"tray", c.Tray, false},
		{"log level", c.LogLevel, "debug"},
		{"model timeout", c.ModelTimeout, 90 * time.Second},
		{"blank value keeps default", c.WebDir, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}

func TestFromLookup_Errors(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantVar string
	}{
		{"bad integer", map[string]string{"ARSTICKER_FPS": "fast"}, "ARSTICKER_FPS"},
		{"bad bool", map[string]string{"ARSTICKER_SNAP": "maybe"}, "ARSTICKER_SNAP"},
		{"bad duration", map[string]string{"ARSTICKER_MODEL_TIMEOUT": "soon"}, "ARSTICKER_MODEL_TIMEOUT"},
		{"unknown backend", map[string]string{"ARSTICKER_BACKEND": "vulkan"}, "ARSTICKER_BACKEND"},
		{"pinch out of range", map[string]string{"ARSTICKER_PINCH_THRESHOLD": "1.5"}, "ARSTICKER_PINCH_THRESHOLD"},
		{"zero hit radius", map[string]string{"ARSTICKER_HIT_RADIUS": "0"}, "ARSTICKER_HIT_RADIUS"},
		{"jpeg quality", map[string]string{"ARSTICKER_JPEG_QUALITY": "101"}, "ARSTICKER_JPEG_QUALITY"},
		{"log level", map[string]string{"ARSTICKER_LOG_LEVEL": "chatty"}, "ARSTICKER_LOG_LEVEL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromLookup(lookupFrom(tt.env))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantVar) {
				t.Errorf("error %q should name %s", err, tt.wantVar)
			}
		})
	}
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "test.env")
	if err := os.WriteFile(file, []byte("ARSTICKER_CAMERA=from-file.mp4\nARSTICKER_STREAM_FPS=5\n"), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	t.Setenv("ARSTICKER_STREAM_FPS", "12")
	// godotenv sets variables directly; restore afterwards.
	t.Setenv("ARSTICKER_CAMERA", "")
	os.Unsetenv("ARSTICKER_CAMERA")

	c, err := Load(file)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if c.Camera != "from-file.mp4" {
		t.Errorf("camera = %q, want value from file", c.Camera)
	}
	if c.StreamFPS != 12 {
		t.Errorf("stream fps = %v, environment should win", c.StreamFPS)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Errorf("Load() error = %v, missing files are skipped", err)
	}
}
