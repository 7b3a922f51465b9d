package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	Mode         string `mapstructure:"mode"`
	Port         int    `mapstructure:"port"`
	Secret       string `mapstructure:"secret"`
	JanusURL     string `mapstructure:"janus_url"`
	AllocatorURL string `mapstructure:"allocator_url"`

	Log       LogConfig       `mapstructure:"log"`
	CORS      CORSConfig      `mapstructure:"cors"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Relay     RelayConfig     `mapstructure:"relay"`
	Media     MediaConfig     `mapstructure:"media"`
	Playback  PlaybackConfig  `mapstructure:"playback"`

	// client flags
	Role  string `mapstructure:"role"`
	Room  int64  `mapstructure:"room"`
	Views int    `mapstructure:"views"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type RateLimitConfig struct {
	CreatePerMinute int `mapstructure:"create_per_minute"`
}

type RelayConfig struct {
	Plugin         string        `mapstructure:"plugin"`
	Keepalive      time.Duration `mapstructure:"keepalive"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	STUNServers    []string      `mapstructure:"stun_servers"`
}

type MediaConfig struct {
	CameraFile      string `mapstructure:"camera_file"`
	MicrophoneFile  string `mapstructure:"microphone_file"`
	AllowCamera     bool   `mapstructure:"allow_camera"`
	AllowMicrophone bool   `mapstructure:"allow_microphone"`
	OutputDir       string `mapstructure:"output_dir"`
}

type PlaybackConfig struct {
	RetryDelay time.Duration `mapstructure:"retry_delay"`
}

// Load reads config/config.<env>.yaml, where env comes from the
// --config-env flag or CONFIG_ENV (default "dev"). Every key can be
// overridden by a ROOMCAST_ environment variable, e.g.
// ROOMCAST_RELAY_KEEPALIVE. flags may be nil.
func Load(flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if flags != nil {
		if f := flags.Lookup("config-env"); f != nil && f.Changed {
			env = f.Value.String()
		}
	}
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	setDefaults(v)

	v.SetEnvPrefix("ROOMCAST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("failed to bind flags: %w", err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("⚠️ Config file not found (%s), using defaults\n", fileName)
	} else {
		fmt.Printf("✅ Loaded config: %s\n", fileName)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	fmt.Printf("🧩 Mode: %s | Port: %d | Janus: %s\n", cfg.Mode, cfg.Port, cfg.JanusURL)
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 5000)
	v.SetDefault("secret", "roomcast-dev-secret")
	v.SetDefault("janus_url", "ws://localhost:8188")
	v.SetDefault("allocator_url", "http://localhost:5000")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", true)

	v.SetDefault("cors.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("rate_limit.create_per_minute", 10)

	v.SetDefault("relay.plugin", "janus.plugin.videoroom")
	v.SetDefault("relay.keepalive", "25s")
	v.SetDefault("relay.request_timeout", "15s")
	v.SetDefault("relay.stun_servers", []string{"stun:stun.l.google.com:19302"})

	v.SetDefault("media.camera_file", "media/camera.ivf")
	v.SetDefault("media.microphone_file", "media/microphone.ogg")
	v.SetDefault("media.allow_camera", true)
	v.SetDefault("media.allow_microphone", true)
	v.SetDefault("media.output_dir", "recordings")

	v.SetDefault("playback.retry_delay", "1s")

	v.SetDefault("role", "viewer")
	v.SetDefault("room", 0)
	v.SetDefault("views", 1)
}
