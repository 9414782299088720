package cfg

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// Config for storing all transformer parameters
type Config struct {
	Region            string
	DeliveryStream    string
	SolutionID        string
	SolutionVersion   string
	DeploymentUUID    string
	MetricsEndpoint   string
	SendAnonymousData bool
	CustomUserAgent   string
	LogLevel          slog.Level
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

	stream := os.Getenv("DELIVERY_STREAM")
	if stream == "" {
		err := fmt.Errorf("DELIVERY_STREAM environment variable is required")
		errs = append(errs, err)
	} else {
		config.DeliveryStream = stream
	}

	config.SolutionID = os.Getenv("SOLUTION_ID")
	config.SolutionVersion = os.Getenv("SOLUTION_VERSION")
	config.DeploymentUUID = os.Getenv("UUID")
	config.MetricsEndpoint = os.Getenv("METRICS_ENDPOINT")
	config.CustomUserAgent = os.Getenv("CUSTOM_USER_AGENT")
	config.SendAnonymousData = os.Getenv("SEND_ANONYMOUS_DATA") == "true"
	config.LogLevel = ParseLogLevel(os.Getenv("LOG_LEVEL"))

	if config.SendAnonymousData && config.DeploymentUUID == "" {
		errs = append(errs, errors.New("UUID is required when SEND_ANONYMOUS_DATA is true"))
	}

	return config, errors.Join(errs...)
}

// ParseLogLevel maps LOG_LEVEL values onto slog levels, defaulting to info.
func ParseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
