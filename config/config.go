package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config carries everything the gateway needs from the environment.
type Config struct {
	Port string

	FirebaseProjectID       string
	FirebaseCredentialsPath string
	FirebaseAPIKey          string

	CloudinaryCloudName    string
	CloudinaryUploadPreset string

	// StorageBackend selects "firestore" or "memory".
	StorageBackend string

	// SessionCredentialsFile is where the signed-in credential is cached
	// between runs.
	SessionCredentialsFile string
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// Load reads .env (when present) and the environment, and builds the
// config with defaults.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logrus.WithError(err).Warn("could not load .env file")
	}

	cfg := &Config{
		Port: getEnv("PORT", "8080"),

		FirebaseProjectID:       getEnv("FIREBASE_PROJECT_ID", ""),
		FirebaseCredentialsPath: getEnv("FIREBASE_CREDENTIALS_PATH", ""),
		FirebaseAPIKey:          getEnv("FIREBASE_API_KEY", ""),

		CloudinaryCloudName:    getEnv("CLOUDINARY_CLOUD_NAME", ""),
		CloudinaryUploadPreset: getEnv("CLOUDINARY_UPLOAD_PRESET", ""),

		StorageBackend:         getEnv("STORAGE_BACKEND", "firestore"),
		SessionCredentialsFile: getEnv("SESSION_CREDENTIALS_FILE", defaultCredentialsFile()),
	}

	if cfg.StorageBackend == "firestore" && cfg.FirebaseProjectID == "" {
		logrus.Fatal("FIREBASE_PROJECT_ID must be set when STORAGE_BACKEND=firestore")
	}

	return cfg
}

func defaultCredentialsFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "framez", "credentials.json")
}
