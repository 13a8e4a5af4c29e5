package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DotEnvFile is loaded into the process environment before viper reads it.
// A missing file is not an error.
var DotEnvFile = ".env"

func NewViper() *viper.Viper {
	v := viper.New()

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("")
	v.AutomaticEnv()

	return v
}

func loadDotEnv() error {
	if DotEnvFile == "" {
		return nil
	}
	if _, err := os.Stat(DotEnvFile); os.IsNotExist(err) {
		return nil
	}
	// godotenv.Load never overrides variables that are already set
	return godotenv.Load(DotEnvFile)
}

func Load[T any](c *T, configure func(v *viper.Viper)) (*T, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	v := NewViper()

	configure(v)
	return c, v.Unmarshal(c)
}
