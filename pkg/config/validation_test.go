package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validConfig returns a configuration that passes validation; tests mutate
// single fields to probe individual rules.
func validConfig() *Config {
	cfg := &Config{
		Storages: []StorageNodeConfig{
			{ID: "node-1", Type: "http", URL: "http://node-1:9000", Capacity: 1000},
		},
	}
	ApplyDefaults(cfg)
	return cfg
}

func TestValidConfigPasses(t *testing.T) {
	require.NoError(t, Validate(validConfig()))
}

func TestInvalidLogLevel(t *testing.T) {
	cfg := validConfig()
	cfg.Logging.Level = "VERBOSE"

	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "oneof")
}

func TestInvalidMetadataType(t *testing.T) {
	cfg := validConfig()
	cfg.Metadata.Type = "postgres"

	require.Error(t, Validate(cfg))
}

func TestStorageNodeRules(t *testing.T) {
	t.Run("DuplicateIDs", func(t *testing.T) {
		cfg := validConfig()
		cfg.Storages = append(cfg.Storages, cfg.Storages[0])

		err := Validate(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate")
	})

	t.Run("HTTPNodeNeedsURL", func(t *testing.T) {
		cfg := validConfig()
		cfg.Storages[0].URL = ""

		err := Validate(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "url")
	})

	t.Run("S3NodeNeedsSection", func(t *testing.T) {
		cfg := validConfig()
		cfg.Storages[0].Type = "s3"
		cfg.Storages[0].S3 = nil

		err := Validate(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "s3")
	})

	t.Run("CapacityRequired", func(t *testing.T) {
		cfg := validConfig()
		cfg.Storages[0].Capacity = 0

		require.Error(t, Validate(cfg))
	})

	t.Run("UnknownType", func(t *testing.T) {
		cfg := validConfig()
		cfg.Storages[0].Type = "ftp"

		require.Error(t, Validate(cfg))
	})
}

func TestNegativeChallengeTTL(t *testing.T) {
	cfg := validConfig()
	cfg.Auth.ChallengeTTL = -1

	require.Error(t, Validate(cfg))
}
