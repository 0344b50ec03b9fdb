// Package config loads BotLang settings from TOML files.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/inconshreveable/log15"
	"github.com/naoina/toml"

	"github.com/thomasrohde/botlang/pkg/evaluator"
	"github.com/thomasrohde/botlang/pkg/robot"
)

// File names searched during discovery.
const (
	ProjectFile = ".botlang.toml"
	UserDir     = ".botlang"
	UserFile    = "config.toml"
)

// Source names reported by Load.
const (
	SourceExplicit = "explicit"
	SourceProject  = "project"
	SourceUser     = "user"
	SourceDefault  = "default"
)

// keys are the Go field names; unknown keys are rejected.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string {
		return key
	},
	FieldToKey: func(rt reflect.Type, field string) string {
		return field
	},
	MissingField: func(rt reflect.Type, field string) error {
		return fmt.Errorf("field '%s' is not defined in %s", field, rt.String())
	},
}

// Config is the full set of tunables.
type Config struct {
	Interpreter InterpreterConfig
	Robot       RobotConfig
	Math        MathConfig
	Log         LogConfig
	Cache       CacheConfig
	Server      ServerConfig
}

type InterpreterConfig struct {
	MaxLoopIterations int
	// MaxCallDepth bounds recursion.
	MaxCallDepth int
	// AllowInheritance enables the `class A < B` syntax.
	AllowInheritance bool
	DumpEnvOnError   bool
	Verbose          bool
}

type RobotConfig struct {
	CanvasWidth   float64
	CanvasHeight  float64
	Speed         float64
	LineThickness float64
	Animate       bool
	FrameRate     int
	// TimeScale multiplies animation time; 0 finishes glides immediately.
	TimeScale float64
}

type MathConfig struct {
	// Seed for Math.random; 0 seeds from the clock.
	Seed int64
}

type LogConfig struct {
	Level  string
	Format string // terminal, logfmt or json
}

type CacheConfig struct {
	// Programs is the number of compiled programs kept; 0 disables caching.
	Programs int
}

type ServerConfig struct {
	Addr           string
	AllowedOrigins []string
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Interpreter: InterpreterConfig{
			MaxLoopIterations: evaluator.DefaultMaxLoopIterations,
			MaxCallDepth:      evaluator.DefaultMaxCallDepth,
		},
		Robot: RobotConfig{
			CanvasWidth:   robot.DefaultWidth,
			CanvasHeight:  robot.DefaultHeight,
			Speed:         robot.DefaultSpeed,
			LineThickness: robot.DefaultThickness,
			Animate:       true,
			FrameRate:     robot.DefaultFrameRate,
			TimeScale:     1,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "terminal",
		},
		Cache: CacheConfig{
			Programs: 64,
		},
		Server: ServerConfig{
			Addr:           "127.0.0.1:8642",
			AllowedOrigins: []string{"*"},
		},
	}
}

// Turtle converts the robot section into turtle settings.
func (r RobotConfig) Turtle() robot.Config {
	return robot.Config{
		Width:     r.CanvasWidth,
		Height:    r.CanvasHeight,
		Speed:     r.Speed,
		Thickness: r.LineThickness,
		Animate:   r.Animate,
	}
}

// Validate reports settings that cannot be used.
func (c *Config) Validate() error {
	if c.Interpreter.MaxLoopIterations <= 0 {
		return fmt.Errorf("Interpreter.MaxLoopIterations must be positive, got %d", c.Interpreter.MaxLoopIterations)
	}
	if c.Interpreter.MaxCallDepth <= 0 {
		return fmt.Errorf("Interpreter.MaxCallDepth must be positive, got %d", c.Interpreter.MaxCallDepth)
	}
	if c.Robot.CanvasWidth <= 0 || c.Robot.CanvasHeight <= 0 {
		return fmt.Errorf("Robot canvas must be positive, got %vx%v", c.Robot.CanvasWidth, c.Robot.CanvasHeight)
	}
	if c.Robot.FrameRate <= 0 {
		return fmt.Errorf("Robot.FrameRate must be positive, got %d", c.Robot.FrameRate)
	}
	if c.Robot.TimeScale < 0 {
		return fmt.Errorf("Robot.TimeScale must not be negative, got %v", c.Robot.TimeScale)
	}
	if _, err := log15.LvlFromString(c.Log.Level); err != nil {
		return fmt.Errorf("Log.Level: %w", err)
	}
	switch c.Log.Format {
	case "terminal", "logfmt", "json":
	default:
		return fmt.Errorf("Log.Format must be terminal, logfmt or json, got %q", c.Log.Format)
	}
	if c.Cache.Programs < 0 {
		return fmt.Errorf("Cache.Programs must not be negative, got %d", c.Cache.Programs)
	}
	return nil
}

// Load finds and reads the configuration.
// Precedence: explicit path → project (.botlang.toml) → user
// (~/.botlang/config.toml) → built-in defaults. It returns the source used.
func Load(explicit, projectDir string) (*Config, string, error) {
	if explicit != "" {
		cfg, err := loadFile(explicit)
		if err != nil {
			return nil, "", err
		}
		return cfg, SourceExplicit, nil
	}

	// Try project config
	projectPath := filepath.Join(projectDir, ProjectFile)
	if cfg, err := loadFile(projectPath); err == nil {
		return cfg, SourceProject, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, "", err
	}

	// Try user config
	homeDir, err := os.UserHomeDir()
	if err == nil {
		userPath := filepath.Join(homeDir, UserDir, UserFile)
		if cfg, err := loadFile(userPath); err == nil {
			return cfg, SourceUser, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, "", err
		}
	}

	return Default(), SourceDefault, nil
}

// loadFile decodes path over the defaults.
func loadFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	cfg, err := Decode(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("%s, %w", path, err)
	}
	return cfg, nil
}

// Decode reads TOML from r over the defaults and validates the result.
func Decode(r io.Reader) (*Config, error) {
	cfg := Default()
	if err := tomlSettings.NewDecoder(r).Decode(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Dump writes c as TOML, headed by a comment naming its source.
func (c *Config) Dump(w io.Writer, source string) error {
	out, err := tomlSettings.Marshal(c)
	if err != nil {
		return err
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "# BotLang configuration (source: %s)\n\n", source)
	sb.Write(out)
	_, err = io.WriteString(w, sb.String())
	return err
}
