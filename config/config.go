package config

import (
	"log"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Port          string
	MongoURI      string
	DBName        string
	RedisAddr     string // optional; empty disables the category cache
	S3Bucket      string
	S3Region      string
	S3AccessKeyID string
	S3SecretKey   string
	JWTSecret     string
	MaxPDFBytes   int64 // hard ceiling on any single PDF fetch
	DownloadsDir  string
}

func Load() (*Config, error) {
	maxBytes := int64(50) * 1024 * 1024
	if v := getEnv("MAX_PDF_MB", "50"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			maxBytes = n * 1024 * 1024
		}
	}
	return &Config{
		Port:          getEnv("PORT", "8080"),
		MongoURI:      getEnv("MONGODB_URI", "mongodb://localhost:27017"),
		DBName:        getEnv("MONGODB_DB", "bookapp"),
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		S3Bucket:      getEnv("AWS_S3_BUCKET", ""),
		S3Region:      getEnv("AWS_REGION", "us-east-1"),
		S3AccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		S3SecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		JWTSecret:     getEnv("JWT_SECRET", "change-me-in-production"),
		MaxPDFBytes:   maxBytes,
		DownloadsDir:  getEnv("DOWNLOADS_DIR", "downloads"),
	}, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// RequiredEnvVars are checked at startup; app exits if any are unset.
var RequiredEnvVars = []string{
	"MONGODB_URI",
	"MONGODB_DB",
	"JWT_SECRET",
	"AWS_S3_BUCKET",
	"AWS_REGION",
	"AWS_ACCESS_KEY_ID",
	"AWS_SECRET_ACCESS_KEY",
}

// ValidateEnv checks that all required env vars are set. Calls log.Fatal if
// any required var is missing.
func ValidateEnv() {
	var missing []string
	for _, key := range RequiredEnvVars {
		if strings.TrimSpace(os.Getenv(key)) == "" {
			missing = append(missing, key)
		} else {
			log.Printf("env %s loaded", key)
		}
	}
	if len(missing) > 0 {
		log.Fatalf("missing required env: %s (set these in .env or environment)", strings.Join(missing, ", "))
	}
	if os.Getenv("JWT_SECRET") == "change-me-in-production" {
		log.Fatal("JWT_SECRET must be set to a strong secret (not the default change-me-in-production)")
	}
}
