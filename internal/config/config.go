package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Logical resource names. Each maps to an ISAPI path under the "endpoints" config key.
const (
	ResourceDeviceInfo        = "device_info"
	ResourceAccessControl     = "access_control"
	ResourceCardInfo          = "card_info"
	ResourceUserInfo          = "user_info"
	ResourceDoorStatus        = "door_status"
	ResourceDoorControl       = "door_control"
	ResourceEventNotification = "event_notification"
	ResourceTimeConfig        = "time_config"
	ResourceNetworkConfig     = "network_config"
	ResourceCapabilities      = "capabilities"
	ResourceChannels          = "channels"
	ResourceStreaming         = "streaming"
	ResourcePTZ               = "ptz"
)

// DotEnvFile is loaded into the environment, when present, before the config file is read.
const DotEnvFile = "config/settings.env"

var defaultEndpoints = map[string]string{
	ResourceDeviceInfo:        "ISAPI/System/deviceInfo",
	ResourceAccessControl:     "ISAPI/AccessControl/AcsEvent",
	ResourceCardInfo:          "ISAPI/AccessControl/CardInfo",
	ResourceUserInfo:          "ISAPI/AccessControl/UserInfo",
	ResourceDoorStatus:        "ISAPI/AccessControl/Door",
	ResourceDoorControl:       "ISAPI/AccessControl/RemoteControl/door",
	ResourceEventNotification: "ISAPI/Event/notification/alertStream",
	ResourceTimeConfig:        "ISAPI/System/time",
	ResourceNetworkConfig:     "ISAPI/System/Network/interfaces",
	ResourceCapabilities:      "ISAPI/System/capabilities",
	ResourceChannels:          "ISAPI/System/Video/inputs",
	ResourceStreaming:         "ISAPI/Streaming/channels",
	ResourcePTZ:               "ISAPI/PTZCtrl/channels",
}

// Config is the device connection settings. It is not modified after Load.
type Config struct {
	Host       string
	Port       int
	Protocol   string
	Username   string
	Password   string
	Timeout    time.Duration
	RetryCount int
	Debug      bool
	OutputDir  string
	LogFile    string
	LogFormat  string

	endpoints map[string]string
}

// Configure registers defaults and environment bindings on v. Environment variable names
// are the ones used by the settings.env files shipped with existing deployments.
func Configure(v *viper.Viper) {
	v.SetDefault("host", "172.18.18.60")
	v.SetDefault("port", 80)
	v.SetDefault("protocol", "http")
	v.SetDefault("username", "admin")
	v.SetDefault("password", "")
	v.SetDefault("timeout", 30)
	v.SetDefault("retry_count", 3)
	v.SetDefault("debug", false)
	v.SetDefault("output_dir", "output")
	v.SetDefault("log_file", "")
	v.SetDefault("log_format", "text")

	_ = v.BindEnv("host", "HIKVISION_HOST")
	_ = v.BindEnv("port", "HIKVISION_PORT")
	_ = v.BindEnv("protocol", "HIKVISION_PROTOCOL")
	_ = v.BindEnv("username", "HIKVISION_USERNAME")
	_ = v.BindEnv("password", "HIKVISION_PASSWORD")
	_ = v.BindEnv("timeout", "TIMEOUT")
	_ = v.BindEnv("retry_count", "RETRY_COUNT")
	_ = v.BindEnv("debug", "DEBUG")
	_ = v.BindEnv("output_dir", "OUTPUT_DIR")
	_ = v.BindEnv("log_file", "LOG_FILE")

	for name, path := range defaultEndpoints {
		key := "endpoints." + name
		v.SetDefault(key, path)
		_ = v.BindEnv(key, "API_"+strings.ToUpper(name))
	}
}

// InitConfig reads in config file and ENV variables if set.
func InitConfig(cfgFile string) {
	if err := godotenv.Load(DotEnvFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		logrus.WithError(err).Warnf("could not load %s", DotEnvFile)
	}

	Configure(viper.GetViper())

	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		// Search config in home directory with name ".hikvision-cli" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".hikvision-cli")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			logrus.WithError(err).Warn("could not read config file")
		}
	}
}

// Load builds a validated Config from v.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Host:       strings.TrimSpace(v.GetString("host")),
		Port:       v.GetInt("port"),
		Protocol:   strings.ToLower(strings.TrimSpace(v.GetString("protocol"))),
		Username:   v.GetString("username"),
		Password:   v.GetString("password"),
		Timeout:    time.Duration(v.GetInt("timeout")) * time.Second,
		RetryCount: v.GetInt("retry_count"),
		Debug:      v.GetBool("debug"),
		OutputDir:  v.GetString("output_dir"),
		LogFile:    v.GetString("log_file"),
		LogFormat:  v.GetString("log_format"),
		endpoints:  make(map[string]string, len(defaultEndpoints)),
	}
	for name := range defaultEndpoints {
		cfg.endpoints[name] = strings.Trim(v.GetString("endpoints."+name), "/")
	}

	switch {
	case cfg.Host == "":
		return nil, errors.New("host must not be empty")
	case cfg.Protocol != "http" && cfg.Protocol != "https":
		return nil, fmt.Errorf("unsupported protocol %q (want http or https)", cfg.Protocol)
	case cfg.Port < 1 || cfg.Port > 65535:
		return nil, fmt.Errorf("port %d out of range", cfg.Port)
	case cfg.Timeout <= 0:
		return nil, errors.New("timeout must be positive")
	case cfg.RetryCount < 0:
		return nil, errors.New("retry_count must not be negative")
	}
	return cfg, nil
}

// BaseURL returns protocol://host:port.
func (c *Config) BaseURL() string {
	return fmt.Sprintf("%s://%s:%d", c.Protocol, c.Host, c.Port)
}

// URL joins an API path onto the base URL.
func (c *Config) URL(path string) string {
	return c.BaseURL() + "/" + strings.TrimLeft(path, "/")
}

// Endpoint resolves a logical resource name to its configured path.
func (c *Config) Endpoint(name string) (string, bool) {
	p, ok := c.endpoints[name]
	return p, ok
}

// SaveConnection updates the config file with the device connection block.
func SaveConnection(host, username, password string, port int, protocol string) error {
	viper.Set("host", host)
	viper.Set("username", username)
	viper.Set("password", password)
	viper.Set("port", port)
	viper.Set("protocol", protocol)

	if err := viper.WriteConfig(); err != nil {
		// If file doesn't exist, create it
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return viper.SafeWriteConfig()
		}
		home, herr := os.UserHomeDir()
		if herr != nil {
			return err
		}
		return viper.WriteConfigAs(filepath.Join(home, ".hikvision-cli.yaml"))
	}
	return nil
}
