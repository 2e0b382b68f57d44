package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseFlags_Overrides(t *testing.T) {
	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()
	os.Args = []string{"test",
		"-d", "postgres://flag-dsn",
		"-q", "9",
		"-n", "4",
		"-t", "60",
		"-h", "s3",
	}

	c := &Config{}
	c.LoadDefaults()
	parseFlags(c)

	assert.Equal(t, "postgres://flag-dsn", c.DatabaseDSN)
	assert.Equal(t, 9, c.QuotaMax)
	assert.Equal(t, 4, c.CandidateCount)
	assert.Equal(t, 60*time.Second, c.GenTimeout)
	assert.Equal(t, "s3", c.HostingBackend)
}

func TestParseFlags_IgnoresForeignFlags(t *testing.T) {
	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()
	os.Args = []string{"test", "-x", "whatever", "-q", "2"}

	c := &Config{}
	c.LoadDefaults()
	parseFlags(c)

	assert.Equal(t, 2, c.QuotaMax)
}
