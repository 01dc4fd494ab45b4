package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, "data/sentiment_model.spm", cfg.Model.ArtifactPath)
	assert.Equal(t, 2000, cfg.Model.MaxFeatures)
	assert.Equal(t, 1.0, cfg.Model.C)
	assert.True(t, cfg.Model.TrainOnMissing)
	assert.Equal(t, 100, cfg.YouTube.MaxComments)
	assert.Equal(t, []string{"*"}, cfg.CORS.AllowOrigins)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Zero(t, cfg.Corpus.Holdout)
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
server:
  port: 9001
model:
  artifactPath: /tmp/model.spm
  maxFeatures: 500
youtube:
  maxComments: 50
  fetchTimeout: 3s
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9001, cfg.Server.Port)
	assert.Equal(t, "/tmp/model.spm", cfg.Model.ArtifactPath)
	assert.Equal(t, 500, cfg.Model.MaxFeatures)
	assert.Equal(t, 50, cfg.YouTube.MaxComments)
	assert.Equal(t, 3*time.Second, cfg.YouTube.FetchTimeout)
	// untouched sections keep their defaults
	assert.Equal(t, 1.0, cfg.Model.C)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("CS_SERVER_PORT", "9090")
	t.Setenv("YOUTUBE_API_KEY", "yt-key")
	t.Setenv("CS_MODEL_TRAIN_ON_MISSING", "false")
	t.Setenv("CS_KAFKA_BROKERS", "a:9092,b:9092")
	t.Setenv("CS_LOGGING_LEVEL", "debug")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "yt-key", cfg.YouTube.APIKey)
	assert.False(t, cfg.Model.TrainOnMissing)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"negative max features", "model:\n  maxFeatures: -1\n"},
		{"zero regularisation", "model:\n  c: 0\n"},
		{"holdout of one", "corpus:\n  holdout: 1\n"},
		{"zero comments", "youtube:\n  maxComments: 0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.yaml), 0o644))
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
