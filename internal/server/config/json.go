package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/tilgarden/tilgarden/internal/flagx"
	"github.com/tilgarden/tilgarden/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON
// unmarshalling. It uses timex.Duration for interval fields, which allows
// parsing both string values such as "30s" and integer nanoseconds.
//
// This struct is an intermediate DTO used only for reading JSON
// configuration files; its fields are copied into the runtime Config.
type JsonConfig struct {
	DatabaseDSN     string `json:"database_dsn"`
	SecretKey       string `json:"secret_key"`
	DefaultTimezone string `json:"default_timezone"`
	QuotaMax        int    `json:"quota_max"`

	CandidateCount int            `json:"candidate_count"`
	GenModel       string         `json:"gen_model"`
	GenAPIKey      string         `json:"gen_api_key"`
	GenBaseURL     string         `json:"gen_base_url"`
	GenTemperature float64        `json:"gen_temperature"`
	GenMaxTokens   int64          `json:"gen_max_tokens"`
	GenTimeout     timex.Duration `json:"gen_timeout"`

	HostingBackend      string `json:"hosting_backend"`
	GitHubAPIBaseURL    string `json:"github_api_base_url"`
	CommitMessagePrefix string `json:"commit_message_prefix"`
	S3RootUser          string `json:"s3_root_user"`
	S3RootPassword      string `json:"s3_root_password"`
	S3Bucket            string `json:"s3_bucket"`
	S3Region            string `json:"s3_region"`
	S3BaseEndpoint      string `json:"s3_base_endpoint"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance. The file path comes from the -c or -config flags; when
// neither is set, no JSON file is loaded. An unreadable or invalid file
// panics, matching flag-parse behavior.
func parseJson(config *Config) {

	// try flags
	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	config.DatabaseDSN = c.DatabaseDSN
	config.SecretKey = c.SecretKey
	config.DefaultTimezone = c.DefaultTimezone
	config.QuotaMax = c.QuotaMax
	config.CandidateCount = c.CandidateCount
	config.GenModel = c.GenModel
	config.GenAPIKey = c.GenAPIKey
	config.GenBaseURL = c.GenBaseURL
	config.GenTemperature = c.GenTemperature
	config.GenMaxTokens = c.GenMaxTokens
	config.GenTimeout = time.Duration(c.GenTimeout.Duration)
	config.HostingBackend = c.HostingBackend
	config.GitHubAPIBaseURL = c.GitHubAPIBaseURL
	config.CommitMessagePrefix = c.CommitMessagePrefix
	config.S3RootUser = c.S3RootUser
	config.S3RootPassword = c.S3RootPassword
	config.S3Bucket = c.S3Bucket
	config.S3Region = c.S3Region
	config.S3BaseEndpoint = c.S3BaseEndpoint
}
