package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/dukerupert/homebase/internal/objstore"
	"github.com/joho/godotenv"
)

type Config struct {
	Port      string
	DBPath    string
	LogLevel  string
	LogFormat string
	UploadDir string

	CORSAllowedOrigins []string

	// UploadRateLimit is uploads allowed per client per minute.
	UploadRateLimit int

	// UploadBackend is "disk" or "s3". UploadPublicURL is the base URL of
	// the bucket when it is "s3".
	UploadBackend   string
	UploadPublicURL string

	S3               objstore.Config
	BackupPassphrase string
}

var defaultOrigins = "http://localhost:5173,http://localhost:3000"

// Load reads configuration from the environment, after loading a .env file
// from the working directory when one exists.
func Load() (Config, error) {
	_ = godotenv.Load()
	return fromEnv()
}

func fromEnv() (Config, error) {
	cfg := Config{
		Port:      getenv("HOMEBASE_PORT", "8080"),
		DBPath:    getenv("HOMEBASE_DB_PATH", "homebase.db"),
		LogLevel:  getenv("HOMEBASE_LOG_LEVEL", "info"),
		LogFormat: getenv("HOMEBASE_LOG_FORMAT", "text"),
		UploadDir: getenv("UPLOAD_DIR", "uploads"),
	}

	for _, o := range strings.Split(getenv("CORS_ALLOWED_ORIGINS", defaultOrigins), ",") {
		o = strings.TrimSpace(o)
		if o != "" {
			cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, o)
		}
	}

	if _, err := strconv.Atoi(cfg.Port); err != nil {
		return Config{}, fmt.Errorf("HOMEBASE_PORT: %q is not a port number", cfg.Port)
	}

	limit, err := strconv.Atoi(getenv("UPLOAD_RATE_LIMIT", "30"))
	if err != nil || limit <= 0 {
		return Config{}, fmt.Errorf("UPLOAD_RATE_LIMIT: must be a positive integer")
	}
	cfg.UploadRateLimit = limit

	cfg.S3 = objstore.Config{
		Endpoint:  getenv("S3_ENDPOINT", ""),
		Bucket:    getenv("S3_BUCKET", ""),
		Region:    getenv("S3_REGION", "us-east-1"),
		AccessKey: getenv("S3_ACCESS_KEY", ""),
		SecretKey: getenv("S3_SECRET_KEY", ""),
	}
	cfg.BackupPassphrase = os.Getenv("HOMEBASE_BACKUP_PASSPHRASE")

	cfg.UploadBackend = strings.ToLower(getenv("UPLOAD_BACKEND", "disk"))
	cfg.UploadPublicURL = getenv("UPLOAD_PUBLIC_URL", "")
	switch cfg.UploadBackend {
	case "disk":
	case "s3":
		if !cfg.S3.Enabled() {
			return Config{}, fmt.Errorf("UPLOAD_BACKEND=s3 requires S3_BUCKET, S3_ACCESS_KEY and S3_SECRET_KEY")
		}
		if cfg.UploadPublicURL == "" {
			return Config{}, fmt.Errorf("UPLOAD_BACKEND=s3 requires UPLOAD_PUBLIC_URL")
		}
	default:
		return Config{}, fmt.Errorf("UPLOAD_BACKEND: %q is not disk or s3", cfg.UploadBackend)
	}

	return cfg, nil
}

// Addr is the listen address for Port.
func (c Config) Addr() string {
	return ":" + c.Port
}

func getenv(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}
