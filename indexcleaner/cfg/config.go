package cfg

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
)

// Config for storing all index cleaner parameters
type Config struct {
	ESHost   string
	Region   string
	DryRun   bool
	LogLevel slog.Level
}

func GetConfig() (*Config, error) {
	config := &Config{}

	var errs []error

	host := os.Getenv("ES_HOST")
	if host == "" {
		err := fmt.Errorf("ES_HOST environment variable is required")
		errs = append(errs, err)
	} else {
		config.ESHost = host
	}

	region := os.Getenv("AWS_REGION")
	if region == "" {
		err := fmt.Errorf("failed to get AWS_REGION from environment")
		errs = append(errs, err)
	} else {
		config.Region = region
	}

	config.DryRun = os.Getenv("DRY_RUN") == "true"

	if s := os.Getenv("LOG_LEVEL"); s != "" {
		if err := config.LogLevel.UnmarshalText([]byte(s)); err != nil {
			errs = append(errs, fmt.Errorf("invalid LOG_LEVEL %q, err: %v", s, err))
		}
	}

	return config, errors.Join(errs...)
}
