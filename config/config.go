package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"certregistry/registry"

	"github.com/joho/godotenv"
)

// Chaincode captures how the chaincode process starts and what it enforces.
type Chaincode struct {
	// ServerAddress, when set, runs the chaincode as an external service
	// listening on this address instead of dialing the peer.
	ServerAddress string
	ID            string
	TLS           TLS
	LogSpec       string
	Retention     registry.RetentionPolicy
}

// TLS holds PEM file paths for chaincode-as-a-service.
type TLS struct {
	Disabled     bool
	KeyFile      string
	CertFile     string
	ClientCAFile string
}

// Load reads an optional .env file, then the environment.
func Load() (Chaincode, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Chaincode{}, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds the chaincode configuration from environment variables.
func FromEnv() (Chaincode, error) {
	retention, err := RetentionFromEnv()
	if err != nil {
		return Chaincode{}, err
	}

	logSpec := os.Getenv("CORE_CHAINCODE_LOGGING_LEVEL")
	if logSpec == "" {
		logSpec = "info"
	}

	cfg := Chaincode{
		ServerAddress: os.Getenv("CHAINCODE_SERVER_ADDRESS"),
		ID:            os.Getenv("CHAINCODE_ID"),
		TLS: TLS{
			Disabled:     envBool("CHAINCODE_TLS_DISABLED", true),
			KeyFile:      os.Getenv("CHAINCODE_TLS_KEY"),
			CertFile:     os.Getenv("CHAINCODE_TLS_CERT"),
			ClientCAFile: os.Getenv("CHAINCODE_CLIENT_CA_CERT"),
		},
		LogSpec:   logSpec,
		Retention: retention,
	}
	if cfg.ServerAddress != "" && cfg.ID == "" {
		return Chaincode{}, errors.New("CHAINCODE_ID is required when CHAINCODE_SERVER_ADDRESS is set")
	}
	if cfg.ServerAddress != "" && !cfg.TLS.Disabled && (cfg.TLS.KeyFile == "" || cfg.TLS.CertFile == "") {
		return Chaincode{}, errors.New("CHAINCODE_TLS_KEY and CHAINCODE_TLS_CERT are required when TLS is enabled")
	}
	return cfg, nil
}

// RetentionFromEnv reads CERT_RETENTION_THRESHOLD and CERT_RETENTION_EXTEND_TO,
// defaulting each to registry's 5000.
func RetentionFromEnv() (registry.RetentionPolicy, error) {
	policy := registry.DefaultRetentionPolicy()

	var err error
	if policy.Threshold, err = envUint("CERT_RETENTION_THRESHOLD", policy.Threshold); err != nil {
		return registry.RetentionPolicy{}, err
	}
	if policy.ExtendTo, err = envUint("CERT_RETENTION_EXTEND_TO", policy.ExtendTo); err != nil {
		return registry.RetentionPolicy{}, err
	}
	if err := policy.Validate(); err != nil {
		return registry.RetentionPolicy{}, err
	}
	return policy, nil
}

func envUint(key string, def uint64) (uint64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return v, nil
}

func envBool(key string, def bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return def
	}
	return v
}
