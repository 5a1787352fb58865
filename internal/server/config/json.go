package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/medlogbook/internal/flagx"
	"github.com/dmitrijs2005/medlogbook/internal/timex"
)

// JsonConfig is the on-disk shape of the JSON config file. Durations accept
// both strings such as "15m" and integer nanoseconds. Absent fields leave the
// current value untouched.
type JsonConfig struct {
	EndpointAddrGRPC            string          `json:"endpoint_addr_grpc"`
	DatabaseDSN                 string          `json:"database_dsn"`
	SecretKey                   string          `json:"secret_key"`
	AccessTokenValidityDuration *timex.Duration `json:"access_token_validity_duration"`
	LogLevel                    string          `json:"log_level"`
	RunMigrations               *bool           `json:"run_migrations"`
	AllowDeleteNeedsRevision    *bool           `json:"allow_delete_needs_revision"`
	S3RootUser                  string          `json:"s3_root_user"`
	S3RootPassword              string          `json:"s3_root_password"`
	S3Bucket                    string          `json:"s3_bucket"`
	S3Region                    string          `json:"s3_region"`
	S3BaseEndpoint              string          `json:"s3_base_endpoint"`
	PresignExpiry               *timex.Duration `json:"presign_expiry"`
}

// parseJson overlays values from the JSON file named by -c or -config.
// Nothing is loaded when neither flag is present. An unreadable or invalid
// file panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.ConfigPath()
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	str := func(src string, dst *string) {
		if src != "" {
			*dst = src
		}
	}

	str(c.EndpointAddrGRPC, &config.EndpointAddrGRPC)
	str(c.DatabaseDSN, &config.DatabaseDSN)
	str(c.SecretKey, &config.SecretKey)
	if c.AccessTokenValidityDuration != nil {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	str(c.LogLevel, &config.LogLevel)
	if c.RunMigrations != nil {
		config.RunMigrations = *c.RunMigrations
	}
	if c.AllowDeleteNeedsRevision != nil {
		config.AllowDeleteNeedsRevision = *c.AllowDeleteNeedsRevision
	}
	str(c.S3RootUser, &config.S3RootUser)
	str(c.S3RootPassword, &config.S3RootPassword)
	str(c.S3Bucket, &config.S3Bucket)
	str(c.S3Region, &config.S3Region)
	str(c.S3BaseEndpoint, &config.S3BaseEndpoint)
	if c.PresignExpiry != nil {
		config.PresignExpiry = c.PresignExpiry.Duration
	}
}
