package model

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// DatabaseConfig locates the SQLite database file.
type DatabaseConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// ScheduleConfig tunes how the current task is computed.
type ScheduleConfig struct {
	// FirstDayOfWeek names the weekday that starts a week ("sunday",
	// "monday", ...). It drives the week-of-month field.
	FirstDayOfWeek string `mapstructure:"first_day_of_week" yaml:"first_day_of_week"`

	// DayStartHour shifts the boundary between "yesterday" and "today"
	// for completion and skip horizons.
	DayStartHour int `mapstructure:"day_start_hour" yaml:"day_start_hour"`

	// ScheduledLeadMinutes surfaces scheduled tasks this many minutes early.
	ScheduledLeadMinutes int `mapstructure:"scheduled_lead_minutes" yaml:"scheduled_lead_minutes"`

	// DefaultScheduledTime is used when a task is scheduled on a date
	// without a time, formatted as "15:04".
	DefaultScheduledTime string `mapstructure:"default_scheduled_time" yaml:"default_scheduled_time"`

	// RefreshCron is the cron spec for periodic recomputation.
	RefreshCron string `mapstructure:"refresh_cron" yaml:"refresh_cron"`
}

// DisplayConfig holds UI/rendering preferences.
type DisplayConfig struct {
	Theme string `mapstructure:"theme" yaml:"theme"`
}

// LogConfig controls the file logger.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	Dir   string `mapstructure:"dir" yaml:"dir"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
	Schedule ScheduleConfig `mapstructure:"schedule" yaml:"schedule"`
	Display  DisplayConfig  `mapstructure:"display" yaml:"display"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
}

// FirstWeekday parses FirstDayOfWeek, falling back to Sunday.
func (c ScheduleConfig) FirstWeekday() time.Weekday {
	name := strings.ToLower(strings.TrimSpace(c.FirstDayOfWeek))
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.ToLower(d.String()) == name {
			return d
		}
	}
	return time.Sunday
}

// ScheduledLead returns ScheduledLeadMinutes as a duration.
func (c ScheduleConfig) ScheduledLead() time.Duration {
	return time.Duration(c.ScheduledLeadMinutes) * time.Minute
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/nowtask/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "nowtask", "config.yaml")
}

func dataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".local", "share", "nowtask")
}

// DefaultAppConfig returns the configuration used when no file exists.
func DefaultAppConfig() *AppConfig {
	return &AppConfig{
		Database: DatabaseConfig{
			Path: filepath.Join(dataDir(), "nowtask.db"),
		},
		Schedule: ScheduleConfig{
			FirstDayOfWeek:       "sunday",
			DayStartHour:         0,
			ScheduledLeadMinutes: 0,
			DefaultScheduledTime: "09:00",
			RefreshCron:          "* * * * *",
		},
		Display: DisplayConfig{
			Theme: "default",
		},
		Log: LogConfig{
			Level: "info",
			Dir:   filepath.Join(dataDir(), "logs"),
		},
	}
}

func setDefaults(v *viper.Viper) {
	d := DefaultAppConfig()
	v.SetDefault("database.path", d.Database.Path)
	v.SetDefault("schedule.first_day_of_week", d.Schedule.FirstDayOfWeek)
	v.SetDefault("schedule.day_start_hour", d.Schedule.DayStartHour)
	v.SetDefault("schedule.scheduled_lead_minutes", d.Schedule.ScheduledLeadMinutes)
	v.SetDefault("schedule.default_scheduled_time", d.Schedule.DefaultScheduledTime)
	v.SetDefault("schedule.refresh_cron", d.Schedule.RefreshCron)
	v.SetDefault("display.theme", d.Display.Theme)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.dir", d.Log.Dir)
}

func newViper(path string) *viper.Viper {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("NOWTASK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

func decode(v *viper.Viper, path string) (*AppConfig, error) {
	cfg := DefaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// If the file does not exist, it returns the default configuration.
func LoadConfig(path string) (*AppConfig, error) {
	v := newViper(path)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); ok {
			return decode(v, path)
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return decode(v, path)
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	return decode(v, path)
}

// Validate rejects settings the scheduler cannot work with.
func (c *AppConfig) Validate() error {
	if c.Schedule.DayStartHour < 0 || c.Schedule.DayStartHour > 23 {
		return &ValidationError{Field: "schedule.day_start_hour", Message: "must be between 0 and 23"}
	}
	if c.Schedule.ScheduledLeadMinutes < 0 {
		return &ValidationError{Field: "schedule.scheduled_lead_minutes", Message: "must not be negative"}
	}
	if _, err := time.Parse("15:04", c.Schedule.DefaultScheduledTime); err != nil {
		return &ValidationError{Field: "schedule.default_scheduled_time", Message: "must be formatted as HH:MM"}
	}
	return nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("database", cfg.Database)
	v.Set("schedule", cfg.Schedule)
	v.Set("display", cfg.Display)
	v.Set("log", cfg.Log)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}

// WatchConfig re-reads the file at path whenever it changes on disk and
// hands the decoded configuration to onChange. Files that fail to parse
// are reported through onError and the previous configuration stays in
// effect. The file must exist when WatchConfig is called.
func WatchConfig(path string, onChange func(*AppConfig), onError func(error)) error {
	v := newViper(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("reading config %s: %w", path, err)
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := decode(v, path)
		if err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		onChange(cfg)
	})
	v.WatchConfig()
	return nil
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
