package redis

import (
	"crypto/tls"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
)

type Config struct {
	Addr        string        `mapstructure:"addr"`
	Username    string        `mapstructure:"username"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	TLS         bool          `mapstructure:"tls"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
}

func NewClient(cfg *Config) *redis.Client {
	opt := &redis.Options{
		Addr:        cfg.Addr,
		Username:    cfg.Username,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: cfg.DialTimeout,
	}

	if cfg.TLS {
		opt.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
		}
	}
	return redis.NewClient(opt)
}

func Setup(v *viper.Viper, prefix string) {
	p := func(key string) string { return prefix + "." + key }

	v.SetDefault(p("addr"), "localhost:6379")
	v.SetDefault(p("username"), "")
	v.SetDefault(p("password"), "")
	v.SetDefault(p("db"), 0)
	v.SetDefault(p("tls"), false)
	v.SetDefault(p("dial_timeout"), "5s")
}
