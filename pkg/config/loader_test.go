package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(context.Background(), dir)
	require.NoError(t, err)
	require.Equal(t, Defaults().Queue.WorkerCount, cfg.Queue.WorkerCount)
}

func TestLoad_OverridesMergeOverDefaults(t *testing.T) {
	dir := t.TempDir()
	content := `
queue:
  worker_count: 9
resource:
  healthy_ram_percent: 70
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, configFileName), []byte(content), 0o600))

	cfg, err := Load(context.Background(), dir)
	require.NoError(t, err)
	require.Equal(t, 9, cfg.Queue.WorkerCount)
	require.Equal(t, 70.0, cfg.Resource.HealthyRAMPercent)
	// Untouched fields still carry built-in defaults.
	require.Equal(t, Defaults().Compounds.RequestsPerSecond, cfg.Compounds.RequestsPerSecond)
}

func TestLoad_EnvExpansion(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Setenv("RSNR_TEST_PORT", "9999"))
	defer os.Unsetenv("RSNR_TEST_PORT")

	content := `
http:
  port: "${RSNR_TEST_PORT}"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, configFileName), []byte(content), 0o600))

	cfg, err := Load(context.Background(), dir)
	require.NoError(t, err)
	require.Equal(t, "9999", cfg.HTTP.Port)
}

func TestValidate_RejectsBadSwapOrdering(t *testing.T) {
	cfg := Defaults()
	cfg.Resource.CriticalSwapMB = cfg.Resource.ModerateSwapMB - 1
	require.Error(t, Validate(cfg))
}

func TestValidate_RejectsUnknownMutualExclusionIndex(t *testing.T) {
	cfg := Defaults()
	cfg.Retrieval.MutuallyExclusivePairs = append(cfg.Retrieval.MutuallyExclusivePairs, [2]string{"ghost", "science"})
	require.Error(t, Validate(cfg))
}
