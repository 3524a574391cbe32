package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

const envPrefix = "CLIPFORGE_"

// Duration is a time.Duration written as a Go duration string ("15m").
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

type Config struct {
	Host             string `toml:"host"`
	Port             int    `toml:"port"`
	BehindProxy      bool   `toml:"behind_proxy"`
	DataDir          string `toml:"data_dir"`
	ToolsDir         string `toml:"tools_dir"`
	FetchTool        string `toml:"fetch_tool"`
	FetchInterpreter string `toml:"fetch_interpreter"`
	FFmpeg           string `toml:"ffmpeg"`
	FFprobe          string `toml:"ffprobe"`
	HandBrake        string `toml:"handbrake"`

	MaxDurationSeconds int      `toml:"max_duration_seconds"`
	SweepMaxAge        Duration `toml:"sweep_max_age"`
	SweepInterval      Duration `toml:"sweep_interval"`
	StageTimeout       Duration `toml:"stage_timeout"`
	JobTimeout         Duration `toml:"job_timeout"`

	ArchiveEnabled bool   `toml:"archive_enabled"`
	LogLevel       string `toml:"log_level"`
	StartRateLimit int    `toml:"start_rate_limit"`
}

func Default() Config {
	return Config{
		Host:               "127.0.0.1",
		Port:               5000,
		DataDir:            "data",
		ToolsDir:           "tools",
		FetchTool:          "yt-dlp",
		FFmpeg:             "ffmpeg",
		FFprobe:            "ffprobe",
		HandBrake:          "HandBrakeCLI",
		MaxDurationSeconds: 600,
		SweepMaxAge:        Duration(time.Hour),
		SweepInterval:      Duration(15 * time.Minute),
		StageTimeout:       Duration(time.Hour),
		JobTimeout:         Duration(3 * time.Hour),
		ArchiveEnabled:     true,
		LogLevel:           "info",
	}
}

// Load applies, in order, the defaults, the TOML file at path (skipped when
// path is empty) and CLIPFORGE_* environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open config: %w", err)
		}
		defer file.Close() //nolint:errcheck

		decoder := toml.NewDecoder(file).DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() error {
	c.Host = getEnv("HOST", c.Host)
	c.DataDir = getEnv("DATA_DIR", c.DataDir)
	c.ToolsDir = getEnv("TOOLS_DIR", c.ToolsDir)
	c.FetchTool = getEnv("FETCH_TOOL", c.FetchTool)
	c.FetchInterpreter = getEnv("FETCH_INTERPRETER", c.FetchInterpreter)
	c.FFmpeg = getEnv("FFMPEG", c.FFmpeg)
	c.FFprobe = getEnv("FFPROBE", c.FFprobe)
	c.HandBrake = getEnv("HANDBRAKE", c.HandBrake)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)

	var err error
	if c.Port, err = envInt("PORT", c.Port); err != nil {
		return err
	}
	if c.MaxDurationSeconds, err = envInt("MAX_DURATION_SECONDS", c.MaxDurationSeconds); err != nil {
		return err
	}
	if c.StartRateLimit, err = envInt("START_RATE_LIMIT", c.StartRateLimit); err != nil {
		return err
	}
	if c.BehindProxy, err = envBool("BEHIND_PROXY", c.BehindProxy); err != nil {
		return err
	}
	if c.ArchiveEnabled, err = envBool("ARCHIVE_ENABLED", c.ArchiveEnabled); err != nil {
		return err
	}

	for key, d := range map[string]*Duration{
		"SWEEP_MAX_AGE":  &c.SweepMaxAge,
		"SWEEP_INTERVAL": &c.SweepInterval,
		"STAGE_TIMEOUT":  &c.StageTimeout,
		"JOB_TIMEOUT":    &c.JobTimeout,
	} {
		if v := getEnv(key, ""); v != "" {
			if err := d.UnmarshalText([]byte(v)); err != nil {
				return fmt.Errorf("invalid %s%s: %w", envPrefix, key, err)
			}
		}
	}
	return nil
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port must be between 1 and 65535, got %d", c.Port))
	}
	if strings.TrimSpace(c.DataDir) == "" {
		errs = append(errs, errors.New("data_dir is required"))
	}
	if c.MaxDurationSeconds <= 0 {
		errs = append(errs, fmt.Errorf("max_duration_seconds must be positive, got %d", c.MaxDurationSeconds))
	}
	if c.StartRateLimit < 0 {
		errs = append(errs, fmt.Errorf("start_rate_limit must not be negative, got %d", c.StartRateLimit))
	}
	for name, d := range map[string]Duration{
		"sweep_max_age":  c.SweepMaxAge,
		"sweep_interval": c.SweepInterval,
		"stage_timeout":  c.StageTimeout,
		"job_timeout":    c.JobTimeout,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", name, time.Duration(d)))
		}
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log_level must be one of debug, info, warn, error, got %q", c.LogLevel))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Addr is the listen address of the HTTP server.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(envPrefix + key); value != "" {
		return value
	}
	return defaultValue
}

func envInt(key string, defaultValue int) (int, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s%s: %w", envPrefix, key, err)
	}
	return v, nil
}

func envBool(key string, defaultValue bool) (bool, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s%s: %w", envPrefix, key, err)
	}
	return v, nil
}
