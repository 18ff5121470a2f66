package ledgerconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFile_OverlaysFeeRate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fundledger.yaml")
	require.NoError(t, os.WriteFile(path, []byte("fee_rate: 0.25\nhurdle_rate: 0.08\n"), 0o644))

	cfg, err := LoadFile(Default(), path)
	require.NoError(t, err)
	assert.True(t, cfg.FeeRate.Equal(decimal.NewFromFloat(0.25)))
	assert.True(t, cfg.HurdleRate.Equal(decimal.NewFromFloat(0.08)))
}

func TestLoadFile_MissingFileIsNotAnError(t *testing.T) {
	cfg, err := LoadFile(Default(), filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadEnv_OverridesDataSource(t *testing.T) {
	t.Setenv("FUNDLEDGER_DATA_SOURCE", "mock")
	t.Setenv("FUNDLEDGER_AUTO_BACKUP", "true")

	cfg := LoadEnv(Default())
	assert.Equal(t, DataSourceMock, cfg.DataSource)
	assert.True(t, cfg.AutoBackupOnNewTransaction)
}
