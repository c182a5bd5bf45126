package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config holds every runtime setting of the service. Values come from the
// environment, optionally seeded from a .env file.
type Config struct {
	Port     string
	LogLevel string

	DB DBConfig

	JWTSecret     string
	AdminEmail    string
	AdminPassword string
	SeedBars      bool
	CORSOrigins   []string

	Map MapConfig

	OverpassURL  string
	OverpassArea string

	PlacesAPIKey    string
	PlacesURL       string
	PlacesRadius    int
	PlacesRateLimit time.Duration

	Minio MinioConfig

	KafkaBroker string
	KafkaTopic  string
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
	TimeZone string
}

// MapConfig is the initial view handed to the browser map.
type MapConfig struct {
	CenterLat       float64
	CenterLng       float64
	Zoom            int
	TileURL         string
	TileAttribution string
}

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
}

// Load reads .env (if present) and the process environment.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		logrus.Debug("No .env file found – relying on env vars")
	}
	return FromEnv()
}

// FromEnv builds a Config from the current environment only.
func FromEnv() Config {
	return Config{
		Port:     getEnv("PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "debug"),
		DB: DBConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "password"),
			Name:     getEnv("DB_NAME", "barmap"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			TimeZone: getEnv("DB_TIMEZONE", "UTC"),
		},
		JWTSecret:     getEnv("JWT_SECRET", "supersecret"),
		AdminEmail:    getEnv("ADMIN_EMAIL", ""),
		AdminPassword: getEnv("ADMIN_PASSWORD", ""),
		SeedBars:      getBool("SEED_BARS", true),
		CORSOrigins:   splitList(getEnv("CORS_ORIGINS", "")),
		Map: MapConfig{
			CenterLat:       getFloat("MAP_CENTER_LAT", 38.9072),
			CenterLng:       getFloat("MAP_CENTER_LNG", -77.0369),
			Zoom:            getInt("MAP_ZOOM", 13),
			TileURL:         getEnv("TILE_URL", "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png"),
			TileAttribution: getEnv("TILE_ATTRIBUTION", "&copy; OpenStreetMap contributors"),
		},
		OverpassURL:     getEnv("OVERPASS_URL", "https://overpass-api.de/api/interpreter"),
		OverpassArea:    getEnv("OVERPASS_AREA", `area["ISO3166-2"="US-DC"]`),
		PlacesAPIKey:    getEnv("GOOGLE_PLACES_API_KEY", ""),
		PlacesURL:       getEnv("PLACES_URL", "https://places.googleapis.com/v1"),
		PlacesRadius:    getInt("PLACES_RADIUS", 50000),
		PlacesRateLimit: getDuration("PLACES_RATE_LIMIT", 100*time.Millisecond),
		Minio: MinioConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			UseSSL:    getBool("MINIO_USE_SSL", false),
			Bucket:    getEnv("SNAPSHOT_BUCKET", "bars"),
		},
		KafkaBroker: getEnv("KAFKA_BROKER", ""),
		KafkaTopic:  getEnv("KAFKA_TOPIC", "bar-events"),
	}
}

// getEnv reads an environment variable or returns the provided default
func getEnv(key, defaultValue string) string {
	if v, exists := os.LookupEnv(key); exists {
		return v
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	v, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return v
}

func getFloat(key string, defaultValue float64) float64 {
	v, err := strconv.ParseFloat(getEnv(key, ""), 64)
	if err != nil {
		return defaultValue
	}
	return v
}

func getBool(key string, defaultValue bool) bool {
	v, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return v
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	v, err := time.ParseDuration(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return v
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
