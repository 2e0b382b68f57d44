package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestParseJson_Overlays(t *testing.T) {
	path := writeConfigFile(t, `{
		"database_dsn": "postgres://u:p@db:5432/til",
		"secret_key": "prod-secret",
		"default_timezone": "Asia/Seoul",
		"quota_max": 7,
		"candidate_count": 5,
		"gen_model": "gpt-4o",
		"gen_api_key": "sk-test",
		"gen_temperature": 0.9,
		"gen_max_tokens": 1000,
		"gen_timeout": "45s",
		"hosting_backend": "s3",
		"s3_bucket": "my-til"
	}`)

	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()
	os.Args = []string{"test", "-c", path}

	c := &Config{}
	c.LoadDefaults()
	parseJson(c)

	assert.Equal(t, "postgres://u:p@db:5432/til", c.DatabaseDSN)
	assert.Equal(t, "prod-secret", c.SecretKey)
	assert.Equal(t, "Asia/Seoul", c.DefaultTimezone)
	assert.Equal(t, 7, c.QuotaMax)
	assert.Equal(t, 5, c.CandidateCount)
	assert.Equal(t, "gpt-4o", c.GenModel)
	assert.Equal(t, 45*time.Second, c.GenTimeout)
	assert.Equal(t, "s3", c.HostingBackend)
	assert.Equal(t, "my-til", c.S3Bucket)
}

func TestParseJson_NoFileFlagLeavesDefaults(t *testing.T) {
	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()
	os.Args = []string{"test"}

	c := &Config{}
	c.LoadDefaults()
	parseJson(c)

	assert.Equal(t, 5, c.QuotaMax)
	assert.Equal(t, "github", c.HostingBackend)
}

func TestParseJson_InvalidFilePanics(t *testing.T) {
	path := writeConfigFile(t, `{not json`)

	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()
	os.Args = []string{"test", "-config", path}

	c := &Config{}
	c.LoadDefaults()
	assert.Panics(t, func() { parseJson(c) })
}
