package util

import (
	"crypto/rand"
	"errors"
	"io/fs"
	"reflect"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const ENV_PREFIX = "HOUSE_HUB"

var Config = viper.New()

var config_listeners []func()

func RegisterNewConfigListener(new_listener func()) {
	for _, listener := range config_listeners {
		if reflect.ValueOf(new_listener).Pointer() == reflect.ValueOf(listener).Pointer() {
			Logger.Warn().Msg("config listener already registered")
			return
		}
	}
	config_listeners = append(config_listeners, new_listener)
}

func OnNewConfig() {
	for _, listener := range config_listeners {
		listener()
	}
}

func GetRandString(n int) string {
	const letterBytes = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	b := make([]byte, n)
	for i := range b {
		randBytes := make([]byte, 1)
		if _, err := rand.Read(randBytes); err != nil {
			b[i] = letterBytes[i%len(letterBytes)]
		} else {
			b[i] = letterBytes[int(randBytes[0])%len(letterBytes)]
		}
	}
	return string(b)
}

// NewFlagSet declares the command line flags. Parsed flags are bound into
// Config by SetupConfig.
func NewFlagSet(name string) *pflag.FlagSet {
	flags := pflag.NewFlagSet(name, pflag.ContinueOnError)
	flags.String("config", "", "path to the house_hub config file")
	flags.String("log_level", "", "log level (trace, debug, info, warn, error)")
	flags.Bool("list", false, "print the configured house and exit")
	return flags
}

func setDefaults() {
	Config.SetDefault("broker_uri", "tcp://mqtt")
	Config.SetDefault("cleansess", false)
	Config.SetDefault("id_base", "house_hub")
	Config.SetDefault("username", "")
	Config.SetDefault("password", "")
	Config.SetDefault("details_port", 8080)
	Config.SetDefault("log_level", "info")
	Config.SetDefault("insecure_tls", false)
	Config.SetDefault("topic_base", "house")
	Config.SetDefault("availability_topic", "house/online")
	Config.SetDefault("brew.step", 5)
	Config.SetDefault("brew.interval_ms", 200)
	Config.SetDefault("brew.hold_ms", 2000)
	Config.SetDefault("gateway.enabled", false)
	Config.SetDefault("gateway.workers", 2)
	Config.SetDefault("gateway.timeout_seconds", 5)
}

// SetupConfig loads defaults, the optional .env file, the config file,
// environment overrides and flags, then starts watching the config file.
// flags may be nil.
func SetupConfig(flags *pflag.FlagSet) {
	setDefaults()

	// .env is optional
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		Logger.Warn().Msgf("unable to read .env file: %v", err)
	}

	// environment variables
	Config.SetEnvPrefix(ENV_PREFIX)
	Config.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	Config.AutomaticEnv()

	// flags
	if flags != nil {
		if err := Config.BindPFlags(flags); err != nil {
			Logger.Error().Msgf("unable to bind flags: %v", err)
		}
	}

	// config file
	if file := Config.GetString("config"); file != "" {
		Config.SetConfigFile(file)
	} else {
		Config.SetConfigName("house_hub")
		Config.AddConfigPath("./")
		Config.AddConfigPath("./config")
		Config.AddConfigPath("/etc/house_hub")
		Config.AddConfigPath("/house_hub/config")
	}

	if err := Config.ReadInConfig(); err != nil {
		Logger.Error().Msgf("unable to read config file: %v", err)
		return
	}

	// watch for changes
	Config.OnConfigChange(func(e fsnotify.Event) {
		Logger.Info().Msgf("Config file changed: %v", e.Name)
		Logger.Debug().Msgf("Config Additional Info: %v", e.String())
		OnNewConfig()
	})
	Config.WatchConfig()
}
