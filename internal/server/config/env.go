package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// EnvPrefix namespaces every environment variable the server reads.
const EnvPrefix = "LOGBOOK_"

// parseEnv loads the given .env files (".env" when none are given) into the
// process environment without overriding variables that are already set,
// then copies every LOGBOOK_* variable that is present into config.
// A missing .env file is ignored; a malformed one panics.
func parseEnv(config *Config, files ...string) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		panic(err)
	}

	str := func(name string, dst *string) {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok {
			*dst = v
		}
	}
	boolean := func(name string, dst *bool) {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				panic(err)
			}
			*dst = b
		}
	}
	duration := func(name string, dst *time.Duration) {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				panic(err)
			}
			*dst = d
		}
	}

	str("GRPC_ADDR", &config.EndpointAddrGRPC)
	str("DATABASE_DSN", &config.DatabaseDSN)
	str("SECRET_KEY", &config.SecretKey)
	duration("ACCESS_TOKEN_VALIDITY", &config.AccessTokenValidityDuration)
	str("LOG_LEVEL", &config.LogLevel)
	boolean("RUN_MIGRATIONS", &config.RunMigrations)
	boolean("ALLOW_DELETE_NEEDS_REVISION", &config.AllowDeleteNeedsRevision)
	str("S3_ROOT_USER", &config.S3RootUser)
	str("S3_ROOT_PASSWORD", &config.S3RootPassword)
	str("S3_BUCKET", &config.S3Bucket)
	str("S3_REGION", &config.S3Region)
	str("S3_BASE_ENDPOINT", &config.S3BaseEndpoint)
	duration("PRESIGN_EXPIRY", &config.PresignExpiry)
}
