// Package config loads runtime settings from the environment and an optional
// .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Prefix is prepended to every variable name.
const Prefix = "ARSTICKER_"

// Config is the process configuration.
type Config struct {
	Addr        string `validate:"required"`
	DataDir     string `validate:"required"`
	WebDir      string
	Camera      string  `validate:"required"`
	Width       int     `validate:"gt=0"`
	Height      int     `validate:"gt=0"`
	FPS         int     `validate:"gt=0,lte=120"`
	StreamFPS   float64 `validate:"gt=0,lte=60"`
	Backend     string  `validate:"oneof=raster opencv"`
	JPEGQuality int     `validate:"gte=1,lte=100"`

	PinchThreshold  float64 `validate:"gt=0,lt=1"`
	HitRadiusFactor float64 `validate:"gt=0"`
	CaptureRadius   float64 `validate:"gt=0,lte=1"`
	Smoothing       bool
	Snap            bool
	Skeleton        bool
	DebugMarks      bool
	MotionThreshold float64 `validate:"gt=0,lte=100"`

	Tray bool

	LogLevel string `validate:"oneof=trace debug info warn warning error"`
	LogFile  string

	HolisticScript string
	Python         string
	ModelTimeout   time.Duration `validate:"gt=0"`
}

// Default returns the built-in settings.
func Default() Config {
	dataDir := ".arsticker"
	if home, err := os.UserHomeDir(); err == nil {
		dataDir = filepath.Join(home, ".arsticker")
	}
	return Config{
		Addr:            ":8080",
		DataDir:         dataDir,
		Camera:          "0",
		Width:           1280,
		Height:          720,
		FPS:             30,
		StreamFPS:       15,
		Backend:         "raster",
		JPEGQuality:     80,
		PinchThreshold:  0.08,
		HitRadiusFactor: 0.5,
		CaptureRadius:   0.25,
		Skeleton:        true,
		MotionThreshold: 1.0,
		Tray:            true,
		LogLevel:        "info",
		ModelTimeout:    60 * time.Second,
	}
}

// DBPath is where the sticker catalog lives.
func (c Config) DBPath() string {
	return filepath.Join(c.DataDir, "arsticker.db")
}

// Load reads the given .env files, or ./.env when none are named, and then
// the environment. Missing files are skipped. Variables already set in the
// environment win over the files.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config from lookup, starting from Default.
func FromLookup(lookup func(string) (string, bool)) (Config, error) {
	c := Default()
	p := parser{lookup: lookup}

	p.str("ADDR", &c.Addr)
	p.str("DATA_DIR", &c.DataDir)
	p.str("WEB_DIR", &c.WebDir)
	p.str("CAMERA", &c.Camera)
	p.integer("WIDTH", &c.Width)
	p.integer("HEIGHT", &c.Height)
	p.integer("FPS", &c.FPS)
	p.float("STREAM_FPS", &c.StreamFPS)
	p.str("BACKEND", &c.Backend)
	p.integer("JPEG_QUALITY", &c.JPEGQuality)
	p.float("PINCH_THRESHOLD", &c.PinchThreshold)
	p.float("HIT_RADIUS", &c.HitRadiusFactor)
	p.float("CAPTURE_RADIUS", &c.CaptureRadius)
	p.boolean("SMOOTHING", &c.Smoothing)
	p.boolean("SNAP", &c.Snap)
	p.boolean("SKELETON", &c.Skeleton)
	p.boolean("DEBUG_MARKS", &c.DebugMarks)
	p.float("MOTION_THRESHOLD", &c.MotionThreshold)
	p.boolean("TRAY", &c.Tray)
	p.str("LOG_LEVEL", &c.LogLevel)
	p.str("LOG_FILE", &c.LogFile)
	p.str("HOLISTIC_SCRIPT", &c.HolisticScript)
	p.str("PYTHON", &c.Python)
	p.duration("MODEL_TIMEOUT", &c.ModelTimeout)

	if len(p.errs) > 0 {
		return Config{}, errors.Join(p.errs...)
	}

	c.LogLevel = strings.ToLower(c.LogLevel)
	c.Backend = strings.ToLower(c.Backend)
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

var validate = validator.New()

// Validate checks ranges. Errors name the environment variable.
func (c Config) Validate() error {
	err := validate.Struct(c)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	errs := make([]error, 0, len(verrs))
	for _, fe := range verrs {
		errs = append(errs, fmt.Errorf("%s%s: must satisfy %s %s, got %v",
			Prefix, envName(fe.Field()), fe.Tag(), fe.Param(), fe.Value()))
	}
	return errors.Join(errs...)
}

// envName maps a field name to its variable suffix.
func envName(field string) string {
	switch field {
	case "HitRadiusFactor":
		return "HIT_RADIUS"
	case "JPEGQuality":
		return "JPEG_QUALITY"
	case "StreamFPS":
		return "STREAM_FPS"
	case "FPS":
		return "FPS"
	}
	var b strings.Builder
	for i, r := range field {
		if i > 0 && r >= 'A' && r <= 'Z' {
			b.WriteByte('_')
		}
		b.WriteRune(r)
	}
	return strings.ToUpper(b.String())
}

type parser struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (p *parser) get(name string) (string, bool) {
	v, ok := p.lookup(Prefix + name)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func (p *parser) fail(name, v string, err error) {
	p.errs = append(p.errs, fmt.Errorf("%s%s=%q: %w", Prefix, name, v, err))
}

func (p *parser) str(name string, dst *string) {
	if v, ok := p.get(name); ok {
		*dst = v
	}
}

func (p *parser) integer(name string, dst *int) {
	if v, ok := p.get(name); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			p.fail(name, v, err)
			return
		}
		*dst = n
	}
}

func (p *parser) float(name string, dst *float64) {
	if v, ok := p.get(name); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			p.fail(name, v, err)
			return
		}
		*dst = f
	}
}

func (p *parser) boolean(name string, dst *bool) {
	if v, ok := p.get(name); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			p.fail(name, v, err)
			return
		}
		*dst = b
	}
}

func (p *parser) duration(name string, dst *time.Duration) {
	if v, ok := p.get(name); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			p.fail(name, v, err)
			return
		}
		*dst = d
	}
}
