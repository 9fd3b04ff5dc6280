package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ha1tch/archflow/pkg/flow"
	"github.com/ha1tch/archflow/pkg/render"
)

// Config holds persistent viewer settings
type Config struct {
	// Style for newly started animations
	Color         string
	Shape         flow.Shape
	Size          float64
	Speed         float64
	Frequency     float64
	Bidirectional bool
	Trail         bool

	FadeMillis int     // fade-out after arrival, 0 = none
	FrameRate  int     // ticks per second
	Evaluator  string  // "bezier" or "arc-length"
	CellWidth  float64 // surface pixels per cell
	CellHeight float64
	LastDir    string
}

// DefaultConfig returns default configuration
func DefaultConfig() Config {
	s := flow.DefaultStyle()
	cwd, _ := os.Getwd()
	return Config{
		Color:      s.Color,
		Shape:      s.Shape,
		Size:       s.Size,
		Speed:      s.Speed,
		Frequency:  s.Frequency,
		Trail:      s.Trail,
		FadeMillis: 150,
		FrameRate:  30,
		Evaluator:  "bezier",
		CellWidth:  render.DefaultCellWidth,
		CellHeight: render.DefaultCellHeight,
		LastDir:    cwd,
	}
}

// ConfigPath returns the path to the config file
func ConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".flowedit"
	}
	return filepath.Join(home, ".flowedit")
}

// LoadConfig loads configuration from the TOML file, falling back to
// defaults for anything missing or malformed.
func LoadConfig() Config {
	data, err := os.ReadFile(ConfigPath())
	if err != nil {
		return DefaultConfig()
	}
	return ParseConfig(string(data))
}

// ParseConfig reads key = value lines. Unknown keys and bad values are
// ignored.
func ParseConfig(text string) Config {
	cfg := DefaultConfig()
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		val := strings.Trim(strings.TrimSpace(parts[1]), "\"")

		switch key {
		case "color":
			if render.ValidColor(val) {
				cfg.Color = val
			}
		case "shape":
			if sh, err := flow.ParseShape(val); err == nil {
				cfg.Shape = sh
			}
		case "size":
			setPositive(&cfg.Size, val)
		case "speed":
			setPositive(&cfg.Speed, val)
		case "frequency":
			setPositive(&cfg.Frequency, val)
		case "bidirectional":
			if b, err := strconv.ParseBool(val); err == nil {
				cfg.Bidirectional = b
			}
		case "trail":
			if b, err := strconv.ParseBool(val); err == nil {
				cfg.Trail = b
			}
		case "fade_ms":
			if n, err := strconv.Atoi(val); err == nil && n >= 0 {
				cfg.FadeMillis = n
			}
		case "frame_rate":
			if n, err := strconv.Atoi(val); err == nil && n > 0 && n <= 120 {
				cfg.FrameRate = n
			}
		case "evaluator":
			if _, ok := flow.ParseEvaluator(val); ok {
				cfg.Evaluator = val
			}
		case "cell_width":
			setPositive(&cfg.CellWidth, val)
		case "cell_height":
			setPositive(&cfg.CellHeight, val)
		case "last_dir":
			if val != "" {
				cfg.LastDir = val
			}
		}
	}
	return cfg
}

func setPositive(dst *float64, val string) {
	if f, err := strconv.ParseFloat(val, 64); err == nil && f > 0 {
		*dst = f
	}
}

// FormatConfig renders cfg in the config file format
func FormatConfig(cfg Config) string {
	var b strings.Builder
	b.WriteString("# flowedit configuration\n")
	fmt.Fprintf(&b, "color = \"%s\"\n", cfg.Color)
	fmt.Fprintf(&b, "shape = \"%s\"\n", cfg.Shape)
	fmt.Fprintf(&b, "size = %s\n", strconv.FormatFloat(cfg.Size, 'g', -1, 64))
	fmt.Fprintf(&b, "speed = %s\n", strconv.FormatFloat(cfg.Speed, 'g', -1, 64))
	fmt.Fprintf(&b, "frequency = %s\n", strconv.FormatFloat(cfg.Frequency, 'g', -1, 64))
	fmt.Fprintf(&b, "bidirectional = %t\n", cfg.Bidirectional)
	fmt.Fprintf(&b, "trail = %t\n", cfg.Trail)
	fmt.Fprintf(&b, "fade_ms = %d\n", cfg.FadeMillis)
	fmt.Fprintf(&b, "frame_rate = %d\n", cfg.FrameRate)
	fmt.Fprintf(&b, "evaluator = \"%s\"\n", cfg.Evaluator)
	fmt.Fprintf(&b, "cell_width = %s\n", strconv.FormatFloat(cfg.CellWidth, 'g', -1, 64))
	fmt.Fprintf(&b, "cell_height = %s\n", strconv.FormatFloat(cfg.CellHeight, 'g', -1, 64))
	fmt.Fprintf(&b, "last_dir = \"%s\"\n", cfg.LastDir)
	return b.String()
}

// SaveConfig saves configuration to the TOML file
func SaveConfig(cfg Config) error {
	return os.WriteFile(ConfigPath(), []byte(FormatConfig(cfg)), 0644)
}

// Style is the packet style new animations start with.
func (c Config) Style() flow.PacketStyle {
	return flow.PacketStyle{
		Size:          c.Size,
		Color:         c.Color,
		Shape:         c.Shape,
		Speed:         c.Speed,
		Frequency:     c.Frequency,
		Bidirectional: c.Bidirectional,
		Trail:         c.Trail,
	}
}

// Fade is the fade-out duration.
func (c Config) Fade() time.Duration {
	return time.Duration(c.FadeMillis) * time.Millisecond
}

// FrameInterval is the time between ticks.
func (c Config) FrameInterval() time.Duration {
	return time.Second / time.Duration(c.FrameRate)
}
