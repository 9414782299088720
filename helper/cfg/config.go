package cfg

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
)

// Config for storing all helper parameters
type Config struct {
	Region          string
	MetricsEndpoint string
	LogLevel        slog.Level
}

func GetConfig() (*Config, error) {
	config := &Config{}

	var errs []error

	region := os.Getenv("AWS_REGION")
	if region == "" {
		err := fmt.Errorf("failed to get AWS_REGION from environment")
		errs = append(errs, err)
	} else {
		config.Region = region
	}

	config.MetricsEndpoint = os.Getenv("METRICS_ENDPOINT")

	if s := os.Getenv("LOG_LEVEL"); s != "" {
		if err := config.LogLevel.UnmarshalText([]byte(s)); err != nil {
			errs = append(errs, fmt.Errorf("invalid LOG_LEVEL %q, err: %v", s, err))
		}
	}

	return config, errors.Join(errs...)
}
