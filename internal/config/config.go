package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"codeberg.org/mutker/bard/internal/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultEnvPrefix           = "BARD"
	DefaultLogLevel            = LogLevelInfo
	DefaultPollInterval        = 1500 * time.Millisecond
	DefaultRetryAmount         = 5
	DefaultRetryTimeout        = 2000 * time.Millisecond
	DefaultBufferSize          = 1024
	DefaultWriteTimeout        = 250 * time.Millisecond
	DefaultNotificationID      = 2593
	DefaultNotificationTimeout = 1500 * time.Millisecond
	DefaultIconSuffix          = "-symbolic"
	DefaultMonitorDevice       = "nvidia_wmi_ec_backlight"
	DefaultKeyboardDevice      = "asus::kbd_backlight"

	minBufferSize   = 64
	minPollInterval = 100 * time.Millisecond
	minWriteTimeout = 10 * time.Millisecond
	configName      = "bard"
)

// Config is built once at start-up and shared read-only by every task.
type Config struct {
	Socket              string        `mapstructure:"socket"`
	PollInterval        time.Duration `mapstructure:"poll_interval"`
	RetryAmount         int           `mapstructure:"retry_amount"`
	RetryTimeout        time.Duration `mapstructure:"retry_timeout"`
	BufferSize          int           `mapstructure:"buffer_size"`
	WriteTimeout        time.Duration `mapstructure:"write_timeout"`
	NotificationID      int           `mapstructure:"notification_id"`
	NotificationTimeout time.Duration `mapstructure:"notification_timeout"`
	IconSuffix          string        `mapstructure:"icon_suffix"`
	MonitorDevice       string        `mapstructure:"monitor_device"`
	KeyboardDevice      string        `mapstructure:"keyboard_device"`
	LogLevel            string        `mapstructure:"log_level"`
	MetricsAddr         string        `mapstructure:"metrics_addr"`
	PIDFile             string        `mapstructure:"pid_file"`
}

// Flags registers the command-line flags understood by Load.
func Flags(fs *pflag.FlagSet) {
	fs.String("config", "", "Path to configuration file")
	fs.String("socket", "", "Path of the daemon socket")
	fs.String("log-level", "", "Log level (debug, info, warning, error)")
	fs.Bool("debug", false, "Enable debugging mode")
	fs.Bool("verbose", false, "Enable verbose logging")
}

// DefaultSocketPath returns the socket path used when none is configured.
func DefaultSocketPath() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "bard.sock")
	}

	return filepath.Join(os.TempDir(), "bard.sock")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("socket", DefaultSocketPath())
	v.SetDefault("poll_interval", DefaultPollInterval)
	v.SetDefault("retry_amount", DefaultRetryAmount)
	v.SetDefault("retry_timeout", DefaultRetryTimeout)
	v.SetDefault("buffer_size", DefaultBufferSize)
	v.SetDefault("write_timeout", DefaultWriteTimeout)
	v.SetDefault("notification_id", DefaultNotificationID)
	v.SetDefault("notification_timeout", DefaultNotificationTimeout)
	v.SetDefault("icon_suffix", DefaultIconSuffix)
	v.SetDefault("monitor_device", DefaultMonitorDevice)
	v.SetDefault("keyboard_device", DefaultKeyboardDevice)
	v.SetDefault("log_level", string(DefaultLogLevel))
	v.SetDefault("metrics_addr", "")
	v.SetDefault("pid_file", filepath.Join(os.TempDir(), "bard.pid"))
}

// Load resolves the configuration from defaults, the config file, the
// environment and flags, in increasing order of precedence. flags may be nil.
func Load(flags *pflag.FlagSet, opts ...Option) (*Config, error) {
	errFactory := errors.New()

	o := &options{envPrefix: DefaultEnvPrefix}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
		}
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(o.envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		if f := flags.Lookup("config"); f != nil && f.Changed {
			o.configPath = f.Value.String()
		}
	}
	if o.configPath == "" {
		o.configPath = os.Getenv(o.envPrefix + "_CONFIG")
	}

	if err := readConfigFile(v, o.configPath); err != nil {
		return nil, err
	}

	if flags != nil {
		if err := bindFlags(v, flags); err != nil {
			return nil, err
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errFactory.Wrap(errors.ErrReadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func readConfigFile(v *viper.Viper, path string) error {
	errFactory := errors.New()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return errFactory.Wrap(errors.ErrReadConfig, err)
		}

		return nil
	}

	v.SetConfigName(configName)
	v.SetConfigType("toml")
	if dir, err := os.UserConfigDir(); err == nil {
		v.AddConfigPath(filepath.Join(dir, configName))
	}
	v.AddConfigPath("/etc")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return errFactory.Wrap(errors.ErrReadConfig, err)
		}
	}

	return nil
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	errFactory := errors.New()

	for key, name := range map[string]string{
		"socket":    "socket",
		"log_level": "log-level",
	} {
		f := flags.Lookup(name)
		if f == nil || !f.Changed {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return errFactory.Wrap(errors.ErrBindFlags, err)
		}
	}

	// --debug wins over --verbose, both win over the configured level
	if debug, err := flags.GetBool("debug"); err == nil && debug {
		v.Set("log_level", string(LogLevelDebug))
	} else if verbose, err := flags.GetBool("verbose"); err == nil && verbose {
		v.Set("log_level", string(LogLevelInfo))
	}

	return nil
}

// Validate checks the loaded values
func (c *Config) Validate() error {
	errFactory := errors.New()

	if c.Socket == "" {
		return errFactory.WithData(errors.ErrInvalidConfig, "socket path is empty")
	}
	// bare integers in the config file decode as nanoseconds
	if c.PollInterval < minPollInterval {
		return errFactory.WithData(errors.ErrInvalidInterval,
			"poll_interval must be at least "+minPollInterval.String()+", got "+c.PollInterval.String())
	}
	if c.RetryAmount < 0 {
		return errFactory.WithData(errors.ErrInvalidConfig, "retry_amount must not be negative")
	}
	if c.RetryTimeout < 0 {
		return errFactory.WithData(errors.ErrInvalidConfig, "retry_timeout must not be negative")
	}
	if c.BufferSize < minBufferSize {
		return errFactory.WithData(errors.ErrInvalidConfig, "buffer_size must be at least 64")
	}
	if c.WriteTimeout < minWriteTimeout {
		return errFactory.WithData(errors.ErrInvalidConfig,
			"write_timeout must be at least "+minWriteTimeout.String()+", got "+c.WriteTimeout.String())
	}
	if !LogLevel(c.LogLevel).IsValid() {
		return errFactory.WithData(errors.ErrInvalidLogLevel, c.LogLevel)
	}

	return nil
}
