/**
 * @description
 * This file handles configuration management for the campaign service.
 * It uses the 'viper' library to load configuration from environment
 * variables or a local .env file. The resulting Config struct is built
 * once in main and passed by reference into every component constructor;
 * no component reads ambient process state on its own.
 */
package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	ServerPort           string `mapstructure:"SERVER_PORT"`
	BackendBaseURL       string `mapstructure:"BACKEND_BASE_URL"`
	AppBaseURL           string `mapstructure:"APP_BASE_URL"`
	StripeSecretKey      string `mapstructure:"STRIPE_SECRET_KEY"`
	StripePublishableKey string `mapstructure:"STRIPE_PUBLISHABLE_KEY"`
	StripeMode           string `mapstructure:"STRIPE_MODE"`
	RabbitMQURL          string `mapstructure:"RABBITMQ_URL"`
}

// DemoMode reports whether the service runs against a test-mode payment
// provider. Simulated success paths are only allowed in this mode.
func (c *Config) DemoMode() bool {
	return c.StripeMode == "test"
}

// LoadConfig reads configuration from a .env file in path (if present)
// and from environment variables.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("BACKEND_BASE_URL", "http://localhost:8001")
	viper.SetDefault("APP_BASE_URL", "http://localhost:3000")
	viper.SetDefault("STRIPE_MODE", "test")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("BACKEND_BASE_URL")
	_ = viper.BindEnv("APP_BASE_URL")
	_ = viper.BindEnv("STRIPE_SECRET_KEY")
	_ = viper.BindEnv("STRIPE_PUBLISHABLE_KEY")
	_ = viper.BindEnv("STRIPE_MODE")
	_ = viper.BindEnv("RABBITMQ_URL")

	if err = viper.ReadInConfig(); err != nil {
		// A missing config file is fine; environment variables cover it.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return
		}
		err = nil
	}

	err = viper.Unmarshal(&config)
	return
}
