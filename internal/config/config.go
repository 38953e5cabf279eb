package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config aggregates configuration for the whole service.
type Config struct {
	Server  ServerConfig
	Storage StorageConfig
	Gateway GatewayConfig
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	gateway, err := loadGatewayConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:  server,
		Storage: loadStorageConfig(),
		Gateway: gateway,
	}, nil
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr string
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// Allow passing ":8080" or "127.0.0.1:8080" directly.
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// StorageConfig locates the conversation store and the token record.
type StorageConfig struct {
	DataPath  string
	TokenPath string
}

func loadStorageConfig() StorageConfig {
	return StorageConfig{
		DataPath:  getEnvOrDefault("CHAT_DATA_PATH", "data/chat.db"),
		TokenPath: getEnvOrDefault("CHAT_TOKEN_PATH", "data/tokens.json"),
	}
}

// GatewayConfig carries outbound model-call settings.
type GatewayConfig struct {
	HostedAPIKey string
	Timeout      time.Duration
}

func loadGatewayConfig() (GatewayConfig, error) {
	timeoutSeconds, err := parseOptionalIntEnv("GATEWAY_TIMEOUT")
	if err != nil {
		return GatewayConfig{}, err
	}

	timeout := 60 * time.Second
	if timeoutSeconds != nil {
		if *timeoutSeconds < 1 {
			return GatewayConfig{}, fmt.Errorf("invalid GATEWAY_TIMEOUT value: %d", *timeoutSeconds)
		}
		timeout = time.Duration(*timeoutSeconds) * time.Second
	}

	return GatewayConfig{
		HostedAPIKey: strings.TrimSpace(os.Getenv("HF_API_KEY")),
		Timeout:      timeout,
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
