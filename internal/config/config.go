package config

import (
	"log"
	"os"

	"github.com/spf13/viper"
)

type Config struct {
	ServerPort    string `mapstructure:"SERVER_PORT"`
	DatabaseURL   string `mapstructure:"DATABASE_URL"`
	JWTSecret     string `mapstructure:"JWT_SECRET"`
	ClientOrigin  string `mapstructure:"CLIENT_ORIGIN"`
	AWSRegion     string `mapstructure:"AWS_REGION"`
	ReceiptBucket string `mapstructure:"RECEIPT_BUCKET"`
	ProfileBucket string `mapstructure:"PROFILE_BUCKET"`
	SenderEmail   string `mapstructure:"SENDER_EMAIL"`
}

func LoadConfig(path string) (*Config, error) {
	viper.AddConfigPath(path)
	viper.SetConfigName(".env") // Name of config file (without extension)
	viper.SetConfigType("env")

	viper.AutomaticEnv() // Read in environment variables that match

	err := viper.ReadInConfig()
	if err != nil {
		// Allow a missing .env file; everything can come from the environment.
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("No .env file found.")
		} else {
			return nil, err
		}
	}

	var cfg Config
	err = viper.Unmarshal(&cfg)
	if err != nil {
		return nil, err
	}

	if cfg.ServerPort == "" {
		cfg.ServerPort = "8080"
	}
	if cfg.ReceiptBucket == "" {
		cfg.ReceiptBucket = "receipts"
	}
	if cfg.ProfileBucket == "" {
		cfg.ProfileBucket = "profile-pics"
	}
	if cfg.AWSRegion == "" {
		cfg.AWSRegion = os.Getenv("AWS_DEFAULT_REGION")
	}

	return &cfg, nil
}
