package playback

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	MaxRetries      uint64        `mapstructure:"max_retries"`
	InitialBackoff  time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff      time.Duration `mapstructure:"max_backoff"`
	MinPollInterval time.Duration `mapstructure:"min_poll_interval"`

	// headless follower, disabled while FollowStream is empty
	FollowStream   string `mapstructure:"follow_stream"`
	BackendURL     string `mapstructure:"backend_url"`
	BufferSegments int    `mapstructure:"buffer_segments"`
}

func Setup(v *viper.Viper, prefix string) {
	p := func(key string) string { return prefix + "." + key }

	v.SetDefault(p("request_timeout"), "10s")
	v.SetDefault(p("max_retries"), 3)
	v.SetDefault(p("initial_backoff"), "200ms")
	v.SetDefault(p("max_backoff"), "2s")
	v.SetDefault(p("min_poll_interval"), "500ms")

	v.SetDefault(p("follow_stream"), "")
	// manifests go through this binary's own proxy so segment paths resolve
	v.SetDefault(p("backend_url"), "http://127.0.0.1:3000/backend")
	v.SetDefault(p("buffer_segments"), 8)
}

func DefaultConfig() *Config {
	return &Config{
		RequestTimeout:  10 * time.Second,
		MaxRetries:      3,
		InitialBackoff:  200 * time.Millisecond,
		MaxBackoff:      2 * time.Second,
		MinPollInterval: 500 * time.Millisecond,
		BufferSegments:  8,
	}
}
