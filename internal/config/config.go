// Package config holds runtime settings for the trainer, matcher, face
// detector and HTTP server.
//
// Values are layered: built-in defaults, then an optional YAML file, then
// CHARVISION_* environment variables (a .env file is loaded by the CLI before
// Load is called). Command-line flags are applied last by the cli package.
package config

import (
	"errors"
	"fmt"
	"image/color"
	"os"
	"strconv"

	"github.com/lucasb-eyer/go-colorful"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Glyph  GlyphConfig  `yaml:"glyph"`
	Train  TrainConfig  `yaml:"train"`
	RefSet RefSetConfig `yaml:"refset"`
	Match  MatchConfig  `yaml:"match"`
	Faces  FacesConfig  `yaml:"faces"`
	Server ServerConfig `yaml:"server"`
}

// GlyphConfig controls segmentation and feature extraction.
type GlyphConfig struct {
	MinContourArea float64 `yaml:"min_contour_area"`
	Width          int     `yaml:"width"`
	Height         int     `yaml:"height"`
	BlurSize       int     `yaml:"blur_size"`  // odd
	BlockSize      int     `yaml:"block_size"` // odd, adaptive threshold neighborhood
	C              float64 `yaml:"c"`          // subtracted from the weighted mean
}

type TrainConfig struct {
	Sheet   string `yaml:"sheet"`
	Charset string `yaml:"charset"`
	DumpDir string `yaml:"dump_dir"`
}

type RefSetConfig struct {
	Classifications string `yaml:"classifications"`
	Images          string `yaml:"images"`
}

type MatchConfig struct {
	Source     string `yaml:"source"` // camera index, video file or stream URL
	K          int    `yaml:"k"`
	Backend    string `yaml:"backend"` // brute or hnsw
	CaptureKey string `yaml:"capture_key"`
	OCR        bool   `yaml:"ocr"`
	BoxColor   string `yaml:"box_color"`
}

type FacesConfig struct {
	Source       string  `yaml:"source"`
	FaceCascade  string  `yaml:"face_cascade"`
	EyesCascade  string  `yaml:"eyes_cascade"`
	MouthCascade string  `yaml:"mouth_cascade"` // optional
	NoseCascade  string  `yaml:"nose_cascade"`  // optional
	ScaleFactor  float64 `yaml:"scale_factor"`
	MinNeighbors int     `yaml:"min_neighbors"`
	MinSize      int     `yaml:"min_size"`
	Thickness    int     `yaml:"thickness"`
	FaceColor    string  `yaml:"face_color"`
	EyeColor     string  `yaml:"eye_color"`
	MouthColor   string  `yaml:"mouth_color"`
	NoseColor    string  `yaml:"nose_color"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// ValidChars is the default training charset: digits and capital letters.
const ValidChars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Glyph: GlyphConfig{
			MinContourArea: 100,
			Width:          20,
			Height:         30,
			BlurSize:       5,
			BlockSize:      11,
			C:              2,
		},
		Train: TrainConfig{
			Sheet:   "training_chars.png",
			Charset: ValidChars,
		},
		RefSet: RefSetConfig{
			Classifications: "classifications.xml",
			Images:          "images.xml",
		},
		Match: MatchConfig{
			Source:     "0",
			K:          1,
			Backend:    "brute",
			CaptureKey: "c",
			BoxColor:   "#ff0000",
		},
		Faces: FacesConfig{
			Source:       "0",
			FaceCascade:  "haarcascade_frontalface_alt.xml",
			EyesCascade:  "haarcascade_eye_tree_eyeglasses.xml",
			ScaleFactor:  1.1,
			MinNeighbors: 2,
			MinSize:      30,
			Thickness:    4,
			FaceColor:    "#ff00ff",
			EyeColor:     "#0000ff",
			MouthColor:   "#00ff00",
			NoseColor:    "#ffff00",
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
	}
}

// Load returns the defaults overlaid with the YAML file at path (if path is
// non-empty) and the environment.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	envString("CHARVISION_SHEET", &c.Train.Sheet)
	envString("CHARVISION_CHARSET", &c.Train.Charset)
	envString("CHARVISION_CLASSIFICATIONS", &c.RefSet.Classifications)
	envString("CHARVISION_IMAGES", &c.RefSet.Images)
	envString("CHARVISION_MATCH_SOURCE", &c.Match.Source)
	envString("CHARVISION_BACKEND", &c.Match.Backend)
	envString("CHARVISION_FACES_SOURCE", &c.Faces.Source)
	envString("CHARVISION_FACE_CASCADE", &c.Faces.FaceCascade)
	envString("CHARVISION_EYES_CASCADE", &c.Faces.EyesCascade)
	envString("CHARVISION_MOUTH_CASCADE", &c.Faces.MouthCascade)
	envString("CHARVISION_NOSE_CASCADE", &c.Faces.NoseCascade)
	envString("CHARVISION_ADDR", &c.Server.Addr)
	c.Match.K = envInt("CHARVISION_K", c.Match.K)
	c.Glyph.MinContourArea = float64(envInt("CHARVISION_MIN_CONTOUR_AREA", int(c.Glyph.MinContourArea)))
}

// Validate checks invariants the vision calls depend on.
func (c *Config) Validate() error {
	var errs []error
	g := c.Glyph
	if g.Width <= 0 || g.Height <= 0 {
		errs = append(errs, fmt.Errorf("glyph size must be positive, got %dx%d", g.Width, g.Height))
	}
	if g.BlurSize <= 0 || g.BlurSize%2 == 0 {
		errs = append(errs, fmt.Errorf("blur_size must be odd and positive, got %d", g.BlurSize))
	}
	if g.BlockSize < 3 || g.BlockSize%2 == 0 {
		errs = append(errs, fmt.Errorf("block_size must be odd and >= 3, got %d", g.BlockSize))
	}
	if c.Match.K < 1 {
		errs = append(errs, fmt.Errorf("k must be >= 1, got %d", c.Match.K))
	}
	if c.Match.Backend != "brute" && c.Match.Backend != "hnsw" {
		errs = append(errs, fmt.Errorf("unknown knn backend %q", c.Match.Backend))
	}
	if len([]rune(c.Match.CaptureKey)) != 1 {
		errs = append(errs, fmt.Errorf("capture_key must be a single character, got %q", c.Match.CaptureKey))
	}
	if c.Faces.ScaleFactor <= 1 {
		errs = append(errs, fmt.Errorf("scale_factor must be > 1, got %g", c.Faces.ScaleFactor))
	}
	if c.Train.Charset == "" {
		errs = append(errs, errors.New("charset must not be empty"))
	}
	colors := []struct{ name, hex string }{
		{"match.box_color", c.Match.BoxColor},
		{"faces.face_color", c.Faces.FaceColor},
		{"faces.eye_color", c.Faces.EyeColor},
		{"faces.mouth_color", c.Faces.MouthColor},
		{"faces.nose_color", c.Faces.NoseColor},
	}
	for _, col := range colors {
		if _, err := ParseColor(col.hex); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", col.name, err))
		}
	}
	return errors.Join(errs...)
}

// CaptureRune returns the configured capture key.
func (m MatchConfig) CaptureRune() rune {
	for _, r := range m.CaptureKey {
		return r
	}
	return 'c'
}

// ParseColor parses a hex color such as "#ff00ff" into an opaque RGBA.
func ParseColor(hex string) (color.RGBA, error) {
	c, err := colorful.Hex(hex)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid color %q: %w", hex, err)
	}
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}, nil
}

// MustColor is ParseColor for values that already passed Validate. It falls
// back to white on error.
func MustColor(hex string) color.RGBA {
	c, err := ParseColor(hex)
	if err != nil {
		return color.RGBA{R: 255, G: 255, B: 255, A: 255}
	}
	return c
}

func envString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}
