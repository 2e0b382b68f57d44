package config

import (
	"flag"
	"os"
	"time"

	"github.com/tilgarden/tilgarden/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-d string   PostgreSQL DSN
//	-s string   secret key for credential encryption
//	-z string   default IANA time zone for new accounts
//	-q int      seed quota cap
//	-n int      candidates per generation batch
//	-m string   generation model name
//	-k string   generation provider API key
//	-u string   generation provider base URL
//	-t int      generation call timeout, seconds
//	-h string   hosting backend ("github" or "s3")
//	-g string   GitHub API base URL override
//	-b string   S3 bucket name
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, avoiding collisions with other components.
func parseFlags(config *Config) {
	// Filter args to include only the flags handled here.
	args := flagx.FilterArgs(os.Args[1:], []string{"-d", "-s", "-z", "-q", "-n", "-m", "-k", "-u", "-t", "-h", "-g", "-b", "-e"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.StringVar(&config.DefaultTimezone, "z", config.DefaultTimezone, "default time zone")
	fs.IntVar(&config.QuotaMax, "q", config.QuotaMax, "seed quota cap")
	fs.IntVar(&config.CandidateCount, "n", config.CandidateCount, "candidates per batch")
	fs.StringVar(&config.GenModel, "m", config.GenModel, "generation model")
	fs.StringVar(&config.GenAPIKey, "k", config.GenAPIKey, "generation API key")
	fs.StringVar(&config.GenBaseURL, "u", config.GenBaseURL, "generation base URL")

	genTimeoutSeconds := fs.Int("t", int(config.GenTimeout.Seconds()), "generation timeout (in seconds)")

	fs.StringVar(&config.HostingBackend, "h", config.HostingBackend, "hosting backend")
	fs.StringVar(&config.GitHubAPIBaseURL, "g", config.GitHubAPIBaseURL, "GitHub API base URL")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.GenTimeout = time.Duration(*genTimeoutSeconds) * time.Second
}
