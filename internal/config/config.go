package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/LdDl/spheroid-mot/mot"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is used when no path is given and SPHEROID_CONFIG is unset
const DefaultConfigPath = "spheroid.yaml"

// Calibration modes accepted in the config file
const (
	CalibrationOff     = "off"
	CalibrationWiden   = "widen"
	CalibrationReplace = "replace"
)

// Config is the tracking pipeline configuration
type Config struct {
	// Raster side for morphology and IoU
	CanvasSize int `yaml:"canvas_size"`
	// Size filter bounds as fraction of image area
	MinSize float64 `yaml:"min_size"`
	MaxSize float64 `yaml:"max_size"`
	// off|widen|replace
	Calibration string `yaml:"calibration"`
	// Max goroutines for IoU rows. 0 means GOMAXPROCS
	IoUWorkers int `yaml:"iou_workers"`

	// Duration string like "15s"
	FrameInterval    string  `yaml:"frame_interval"`
	MinTrackFrames   int     `yaml:"min_track_frames"`
	InterpolateGaps  bool    `yaml:"interpolate_gaps"`
	Smoothing        bool    `yaml:"smoothing"`
	SmoothingStdDevA float64 `yaml:"smoothing_std_dev_a"`
	SmoothingStdDevM float64 `yaml:"smoothing_std_dev_m"`

	OutputDir string `yaml:"output_dir"`
	// Empty disables persistence
	DBPath string `yaml:"db_path"`
	// Write growth charts into OutputDir
	Charts bool `yaml:"charts"`
}

// Default returns configuration matching library defaults
func Default() *Config {
	smoothing := mot.DefaultSmoothingConfig()
	bounds := mot.DefaultSizeBounds()
	return &Config{
		CanvasSize:       mot.DefaultCanvasSize,
		MinSize:          bounds.MinSize,
		MaxSize:          bounds.MaxSize,
		Calibration:      CalibrationOff,
		FrameInterval:    mot.DefaultFrameInterval.String(),
		SmoothingStdDevA: smoothing.StdDevA,
		SmoothingStdDevM: smoothing.StdDevM,
		OutputDir:        "./output",
	}
}

// Load reads YAML file over defaults, applies SPHEROID_* environment overrides and validates the result.
// Missing file is not an error when path is the default one.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultConfigPath
		if envPath := os.Getenv("SPHEROID_CONFIG"); envPath != "" {
			path = envPath
			explicit = true
		}
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrapf(err, "can't parse %s", path)
		}
	case os.IsNotExist(err) && !explicit:
	default:
		return nil, errors.Wrapf(err, "can't read %s", path)
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	envOverride(&cfg.Calibration, "SPHEROID_CALIBRATION")
	envOverride(&cfg.FrameInterval, "SPHEROID_FRAME_INTERVAL")
	envOverride(&cfg.OutputDir, "SPHEROID_OUTPUT_DIR")
	envOverride(&cfg.DBPath, "SPHEROID_DB_PATH")
	for _, override := range []error{
		envOverrideInt(&cfg.CanvasSize, "SPHEROID_CANVAS_SIZE"),
		envOverrideInt(&cfg.IoUWorkers, "SPHEROID_IOU_WORKERS"),
		envOverrideInt(&cfg.MinTrackFrames, "SPHEROID_MIN_TRACK_FRAMES"),
		envOverrideFloat(&cfg.MinSize, "SPHEROID_MIN_SIZE"),
		envOverrideFloat(&cfg.MaxSize, "SPHEROID_MAX_SIZE"),
		envOverrideBool(&cfg.InterpolateGaps, "SPHEROID_INTERPOLATE_GAPS"),
		envOverrideBool(&cfg.Smoothing, "SPHEROID_SMOOTHING"),
		envOverrideBool(&cfg.Charts, "SPHEROID_CHARTS"),
	} {
		if override != nil {
			return override
		}
	}
	return nil
}

func envOverride(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}

func envOverrideInt(field *int, envKey string) error {
	val := os.Getenv(envKey)
	if val == "" {
		return nil
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return errors.Wrapf(err, "invalid %s '%s'", envKey, val)
	}
	*field = parsed
	return nil
}

func envOverrideFloat(field *float64, envKey string) error {
	val := os.Getenv(envKey)
	if val == "" {
		return nil
	}
	parsed, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return errors.Wrapf(err, "invalid %s '%s'", envKey, val)
	}
	*field = parsed
	return nil
}

func envOverrideBool(field *bool, envKey string) error {
	val := os.Getenv(envKey)
	if val == "" {
		return nil
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return errors.Wrapf(err, "invalid %s '%s'", envKey, val)
	}
	*field = parsed
	return nil
}

// Validate checks ranges and enumerations
func (c *Config) Validate() error {
	if c.CanvasSize <= 0 || c.CanvasSize > mot.MaxCanvasSize {
		return errors.Wrapf(mot.ErrInvalidCanvas, "canvas_size must be in 1..%d, got %d", mot.MaxCanvasSize, c.CanvasSize)
	}
	if err := c.SizeBounds().Validate(); err != nil {
		return err
	}
	switch strings.ToLower(c.Calibration) {
	case "", CalibrationOff, CalibrationWiden, CalibrationReplace:
	default:
		return errors.Errorf("calibration must be '%s', '%s' or '%s', got '%s'", CalibrationOff, CalibrationWiden, CalibrationReplace, c.Calibration)
	}
	if c.IoUWorkers < 0 {
		return errors.Errorf("iou_workers must be non-negative, got %d", c.IoUWorkers)
	}
	interval, err := time.ParseDuration(c.FrameInterval)
	if err != nil {
		return errors.Wrapf(err, "invalid frame_interval '%s'", c.FrameInterval)
	}
	if interval <= 0 {
		return errors.Errorf("frame_interval must be positive, got %s", interval)
	}
	if c.MinTrackFrames < 0 {
		return errors.Errorf("min_track_frames must be non-negative, got %d", c.MinTrackFrames)
	}
	if c.SmoothingStdDevA <= 0 || c.SmoothingStdDevM <= 0 {
		return errors.Errorf("smoothing noise must be positive, got a=%f m=%f", c.SmoothingStdDevA, c.SmoothingStdDevM)
	}
	return nil
}

// SizeBounds returns configured size filter bounds
func (c *Config) SizeBounds() mot.SizeBounds {
	return mot.SizeBounds{MinSize: c.MinSize, MaxSize: c.MaxSize}
}

// CalibrationMode returns configured mode and false when calibration is off
func (c *Config) CalibrationMode() (mot.CalibrationMode, bool) {
	switch strings.ToLower(c.Calibration) {
	case CalibrationWiden:
		return mot.CalibrationWiden, true
	case CalibrationReplace:
		return mot.CalibrationReplace, true
	default:
		return mot.CalibrationWiden, false
	}
}

// GetFrameInterval parses FrameInterval, falling back to the library default
func (c *Config) GetFrameInterval() time.Duration {
	interval, err := time.ParseDuration(c.FrameInterval)
	if err != nil || interval <= 0 {
		return mot.DefaultFrameInterval
	}
	return interval
}

// SessionOptions converts config into session options. Registry is shared so callers can observe bound changes.
func (c *Config) SessionOptions(registry *mot.BoundsRegistry) []mot.SessionOption {
	opts := []mot.SessionOption{
		mot.WithCanvasSize(c.CanvasSize),
		mot.WithIoUWorkers(c.IoUWorkers),
		mot.WithBoundsRegistry(registry),
	}
	if mode, ok := c.CalibrationMode(); ok {
		opts = append(opts, mot.WithAutoCalibration(mode))
	}
	return opts
}

// AggregateOptions converts config into time-series options
func (c *Config) AggregateOptions() []mot.AggregateOption {
	opts := []mot.AggregateOption{
		mot.WithFrameInterval(c.GetFrameInterval()),
		mot.WithMinFrames(c.MinTrackFrames),
	}
	if c.InterpolateGaps {
		opts = append(opts, mot.WithGapInterpolation())
	}
	return opts
}

// SmoothingConfig returns Kalman smoothing parameters
func (c *Config) SmoothingConfig() mot.SmoothingConfig {
	return mot.SmoothingConfig{
		StdDevA: c.SmoothingStdDevA,
		StdDevM: c.SmoothingStdDevM,
	}
}
