package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigPath = ".sitestamp/config.yaml"

	// ExifDateLayout is the layout used for EXIF date/time fields and for
	// the start/end columns of the folder metadata table.
	ExifDateLayout = "2006:01:02 15:04:05"
)

// Window is the global date/time window the randomize mode draws each
// output folder's base timestamp from.
type Window struct {
	StartDate string `yaml:"startDate"` // 2006-01-02
	EndDate   string `yaml:"endDate"`
	StartTime string `yaml:"startTime"` // 15:04
	EndTime   string `yaml:"endTime"`
}

// Jitter controls the small random GPS offset applied to some images.
type Jitter struct {
	Probability float64 `yaml:"probability"`
	Magnitude   float64 `yaml:"magnitude"`
}

// Static holds the fixed stamp used by the static mode.
type Static struct {
	DateTime     string `yaml:"dateTime"` // EXIF layout
	Coords       string `yaml:"coords"`   // "lat° lon°"
	Address      string `yaml:"address"`
	Label        string `yaml:"label"`
	RenamePrefix string `yaml:"renamePrefix"`
}

// Geocode configures the optional reverse-geocoding lookup.
type Geocode struct {
	Enabled   bool          `yaml:"enabled"`
	Endpoint  string        `yaml:"endpoint"`
	Timeout   time.Duration `yaml:"timeout"`
	UserAgent string        `yaml:"userAgent"`
	CachePath string        `yaml:"cachePath"`
}

// Config represents the YAML (or JSON) config structure.
type Config struct {
	InputRoot         string `yaml:"inputRoot"`
	NetworkRoot       string `yaml:"networkRoot"`
	OrderedRoot       string `yaml:"orderedRoot"`
	OrderedRandomRoot string `yaml:"orderedRandomRoot"`
	OutputRoot        string `yaml:"outputRoot"`
	MetadataPath      string `yaml:"metadataPath"`

	FontPath      string  `yaml:"fontPath"`
	FontScale     float64 `yaml:"fontScale"`
	FontFloor     int     `yaml:"fontFloor"`
	Margin        int     `yaml:"margin"`
	BottomPadding int     `yaml:"bottomPadding"`
	LineGap       int     `yaml:"lineGap"`
	JPEGQuality   int     `yaml:"jpegQuality"`

	Window            Window   `yaml:"window"`
	FolderSpanMinutes int      `yaml:"folderSpanMinutes"`
	Rotate            bool     `yaml:"rotate"`
	RotationExempt    []string `yaml:"rotationExempt"`
	NetworkSuffixes   []string `yaml:"networkSuffixes"`

	Jitter         Jitter `yaml:"jitter"`
	GPSPolicy      string `yaml:"gpsPolicy"`      // "always" | "existing"
	LabelMode      string `yaml:"labelMode"`      // "split" | "increment"
	LabelDelimiter string `yaml:"labelDelimiter"` // used by "split"
	StampLabelMode string `yaml:"stampLabelMode"` // label mode of the stamp (bulk) mode

	Static  Static  `yaml:"static"`
	Geocode Geocode `yaml:"geocode"`

	ExifBackend string `yaml:"exifBackend"` // "native" | "exiftool"
	Seed        int64  `yaml:"seed"`
	LogMode     string `yaml:"logMode"`
}

// Default returns the stock configuration used when no file overrides it.
func Default() Config {
	return Config{
		InputRoot:         "images",
		NetworkRoot:       "images_with_network",
		OrderedRoot:       "images_ordered",
		OrderedRandomRoot: "images_ordered_random",
		OutputRoot:        "output_images",
		MetadataPath:      "folder_metadata.csv",
		FontPath:          "/System/Library/Fonts/Supplemental/Arial.ttf",
		FontScale:         0.03,
		FontFloor:         16,
		Margin:            20,
		BottomPadding:     64,
		LineGap:           10,
		JPEGQuality:       95,
		Window: Window{
			StartDate: "2025-04-23",
			EndDate:   "2025-04-23",
			StartTime: "16:48",
			EndTime:   "17:30",
		},
		FolderSpanMinutes: 3,
		Rotate:            true,
		RotationExempt: []string{
			"Photo roll meter awal",
			"Photo roll meter akhir",
			"Photo situasi site sisi kanan",
			"Photo situasi site sisi kiri",
			"Photo situasi site sisi depan",
		},
		NetworkSuffixes: []string{"Network 2", "Network 4"},
		Jitter:          Jitter{Probability: 0.5, Magnitude: 0.00001},
		GPSPolicy:       "existing",
		LabelMode:       "split",
		LabelDelimiter:  " - ",
		StampLabelMode:  "increment",
		Static: Static{
			DateTime:     "2025:04:23 12:03:24",
			Coords:       "-6.323015° 107.055986°",
			Address:      "Jln raya Setu",
			Label:        "CGK05-0010",
			RenamePrefix: "Photo situasi site sisi depan",
		},
		Geocode: Geocode{
			Endpoint:  "https://nominatim.openstreetmap.org/reverse",
			Timeout:   3 * time.Second,
			UserAgent: "sitestamp/1.0",
		},
		ExifBackend: "native",
		LogMode:     "dev",
	}
}

// DefaultPath returns ~/.sitestamp/config.yaml.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, DefaultConfigPath), nil
}

// Read retrieves and parses the config at path. An empty path means the
// default location, which may be absent; an explicit path must exist.
func Read(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return Config{}, err
		}
		path = p
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist) && !explicit:
		// Defaults only
	case err != nil:
		return Config{}, fmt.Errorf("failed to read config file at %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	ApplyEnv(&cfg)
	cfg.fillDefaults()
	return cfg, nil
}

// ApplyEnv loads an optional .env file from the working directory and then
// applies SITESTAMP_* overrides.
func ApplyEnv(cfg *Config) {
	_ = godotenv.Load()

	cfg.FontPath = getEnv("SITESTAMP_FONT", cfg.FontPath)
	cfg.OutputRoot = getEnv("SITESTAMP_OUTPUT", cfg.OutputRoot)
	cfg.MetadataPath = getEnv("SITESTAMP_METADATA", cfg.MetadataPath)
	cfg.LogMode = getEnv("SITESTAMP_LOG_MODE", cfg.LogMode)
	cfg.Seed = getEnvAsInt64("SITESTAMP_SEED", cfg.Seed)
}

// fillDefaults replaces zero or invalid values the file may have left behind.
func (c *Config) fillDefaults() {
	d := Default()
	if c.FontScale <= 0 {
		c.FontScale = d.FontScale
	}
	if c.FontFloor <= 0 {
		c.FontFloor = d.FontFloor
	}
	if c.JPEGQuality <= 0 || c.JPEGQuality > 100 {
		c.JPEGQuality = d.JPEGQuality
	}
	if len(c.NetworkSuffixes) != 2 {
		c.NetworkSuffixes = d.NetworkSuffixes
	}
	if c.GPSPolicy == "" {
		c.GPSPolicy = d.GPSPolicy
	}
	if c.LabelMode == "" {
		c.LabelMode = d.LabelMode
	}
	if c.StampLabelMode == "" {
		c.StampLabelMode = d.StampLabelMode
	}
	if c.LabelDelimiter == "" {
		c.LabelDelimiter = d.LabelDelimiter
	}
	if c.Geocode.Timeout <= 0 {
		c.Geocode.Timeout = d.Geocode.Timeout
	}
	if c.Geocode.Endpoint == "" {
		c.Geocode.Endpoint = d.Geocode.Endpoint
	}
	if c.Geocode.UserAgent == "" {
		c.Geocode.UserAgent = d.Geocode.UserAgent
	}
	if c.ExifBackend == "" {
		c.ExifBackend = d.ExifBackend
	}
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	if strings.TrimSpace(c.OutputRoot) == "" {
		return errors.New("outputRoot must be set")
	}
	if c.FolderSpanMinutes < 0 {
		return fmt.Errorf("folderSpanMinutes must not be negative, got %d", c.FolderSpanMinutes)
	}
	if c.Jitter.Probability < 0 || c.Jitter.Probability > 1 {
		return fmt.Errorf("jitter.probability must be within [0,1], got %v", c.Jitter.Probability)
	}
	if c.Jitter.Magnitude < 0 {
		return fmt.Errorf("jitter.magnitude must not be negative, got %v", c.Jitter.Magnitude)
	}
	switch c.GPSPolicy {
	case "always", "existing":
	default:
		return fmt.Errorf("unknown gpsPolicy %q", c.GPSPolicy)
	}
	for _, mode := range []string{c.LabelMode, c.StampLabelMode} {
		switch mode {
		case "split", "increment":
		default:
			return fmt.Errorf("unknown label mode %q", mode)
		}
	}
	switch c.ExifBackend {
	case "native", "exiftool":
	default:
		return fmt.Errorf("unknown exifBackend %q", c.ExifBackend)
	}
	if c.NetworkSuffixes[0] == c.NetworkSuffixes[1] {
		return fmt.Errorf("networkSuffixes must differ, both are %q", c.NetworkSuffixes[0])
	}
	if _, err := c.Window.Bounds(); err != nil {
		return err
	}
	return nil
}

// Bounds is the parsed form of a Window.
type Bounds struct {
	StartDate time.Time
	Days      int // whole days between start and end date
	StartSec  int // seconds after midnight
	EndSec    int
}

// Bounds parses the window strings.
func (w Window) Bounds() (Bounds, error) {
	start, err := time.Parse("2006-01-02", w.StartDate)
	if err != nil {
		return Bounds{}, fmt.Errorf("window.startDate: %w", err)
	}
	end, err := time.Parse("2006-01-02", w.EndDate)
	if err != nil {
		return Bounds{}, fmt.Errorf("window.endDate: %w", err)
	}
	if end.Before(start) {
		return Bounds{}, fmt.Errorf("window.endDate %s is before startDate %s", w.EndDate, w.StartDate)
	}
	st, err := time.Parse("15:04", w.StartTime)
	if err != nil {
		return Bounds{}, fmt.Errorf("window.startTime: %w", err)
	}
	et, err := time.Parse("15:04", w.EndTime)
	if err != nil {
		return Bounds{}, fmt.Errorf("window.endTime: %w", err)
	}
	b := Bounds{
		StartDate: start,
		Days:      int(end.Sub(start).Hours() / 24),
		StartSec:  st.Hour()*3600 + st.Minute()*60,
		EndSec:    et.Hour()*3600 + et.Minute()*60,
	}
	if b.EndSec < b.StartSec {
		return Bounds{}, fmt.Errorf("window.endTime %s is before startTime %s", w.EndTime, w.StartTime)
	}
	return b, nil
}

// Exempt reports whether images of category must not be rotated.
func (c Config) Exempt(category string) bool {
	for _, name := range c.RotationExempt {
		if name == category {
			return true
		}
	}
	return false
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}
