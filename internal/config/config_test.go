package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return p
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, []string{"総合評価", "overall_grade"}, cfg.GradeColumns)
	assert.Equal(t, ":8000", cfg.ListenAddr)
	assert.Equal(t, 10, cfg.MaxUploadMB)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 1, cfg.TableOptions().SheetIndex)
}

func TestLoad_MissingExplicitFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ":8000", cfg.ListenAddr)
}

func TestLoad_FileAndEnv(t *testing.T) {
	p := writeConfig(t, `grade_columns: [Grade]
credit_columns: [Units]
category_columns: [Kind]
delimiter: tab
decimal_separator: comma
listen_addr: 127.0.0.1:9000
log_format: console
`)
	t.Setenv("GPACALC_MAX_UPLOAD_MB", "3")

	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", cfg.ListenAddr)
	assert.Equal(t, 3, cfg.MaxUploadMB)

	opt := cfg.CalcOptions()
	assert.Equal(t, '\t', opt.Table.Delimiter)
	assert.Equal(t, ',', opt.Table.DecimalSeparator)
	assert.Equal(t, []string{"Grade"}, opt.Columns.Grade)
	assert.Equal(t, []string{"Kind"}, opt.Columns.Category)
	assert.Len(t, opt.Points, 5)
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]string{
		"bad level":     "log_level: loud\n",
		"blank column":  "grade_columns: [\"\"]\n",
		"bad delimiter": "delimiter: '|'\n",
		"raw tab":       "delimiter: \"\\t\"\n",
		"zero upload":   "max_upload_mb: 0\n",
		"malformed":     "listen_addr: [\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, content))
			assert.Error(t, err)
		})
	}
}

func TestDefault_IgnoresInvalidEnv(t *testing.T) {
	t.Setenv("GPACALC_LOG_LEVEL", "loud")
	t.Setenv("GPACALC_MAX_UPLOAD_MB", "lots")

	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)

	c := Default()
	require.NoError(t, c.Validate())
	assert.Equal(t, "info", c.LogLevel)
	assert.Equal(t, 10, c.MaxUploadMB)
}

func TestDefault_AppliesValidEnv(t *testing.T) {
	t.Setenv("GPACALC_LOG_LEVEL", "warn")
	assert.Equal(t, "warn", Default().LogLevel)
}

func TestSaveRoundTrip(t *testing.T) {
	p := filepath.Join(t.TempDir(), "out.yaml")
	c := Default()
	c.ListenAddr = ":9999"
	c.Delimiter = ","
	require.NoError(t, Save(c, p))

	got, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, ":9999", got.ListenAddr)
	assert.Equal(t, ',', got.TableOptions().Delimiter)
}
