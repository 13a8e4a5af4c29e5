package client

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Timeout        time.Duration `mapstructure:"timeout"`
	MaxRetries     uint64        `mapstructure:"max_retries"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff     time.Duration `mapstructure:"max_backoff"`
}

func Setup(v *viper.Viper, prefix string) {
	p := func(key string) string { return prefix + "." + key }

	v.SetDefault(p("timeout"), "10s")
	v.SetDefault(p("max_retries"), 3)
	v.SetDefault(p("initial_backoff"), "200ms")
	v.SetDefault(p("max_backoff"), "2s")
}
