package config

import (
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port     string
	AppEnv   string
	LogLevel string

	MongoURI          string
	MongoDB           string
	MongoTransactions bool

	JWTAccessSecret  string
	JWTRefreshSecret string
	JWTAccessExpire  time.Duration
	JWTRefreshExpire time.Duration
	HashPower        int

	BaseURL     string
	FrontendURL string

	GoogleClientID     string
	GoogleClientSecret string

	// ImageStorage selects the upload backend: "cloudinary" or "minio".
	ImageStorage           string
	CloudinaryCloudName    string
	CloudinaryAPIKey       string
	CloudinaryAPISecret    string
	CloudinaryUploadFolder string
	MinIOEndpoint          string
	MinIOAccessKey         string
	MinIOSecretKey         string
	MinIOBucket            string
	MinIOUseSSL            bool
	MinIOPublicURL         string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration

	NATSURL string

	AuthRateLimit  int
	AuthRateWindow time.Duration
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)

	return &Config{
		Port:     v.GetString("PORT"),
		AppEnv:   v.GetString("APP_ENV"),
		LogLevel: v.GetString("LOG_LEVEL"),

		MongoURI:          v.GetString("MONGO_URI"),
		MongoDB:           v.GetString("MONGO_DB"),
		MongoTransactions: v.GetBool("MONGO_TRANSACTIONS"),

		JWTAccessSecret:  v.GetString("JWT_ACCESS_SECRET"),
		JWTRefreshSecret: v.GetString("JWT_REFRESH_SECRET"),
		JWTAccessExpire:  duration(v, "JWT_ACCESS_EXPIRE_TIME", time.Hour),
		JWTRefreshExpire: duration(v, "JWT_REFRESH_EXPIRE_TIME", 30*24*time.Hour),
		HashPower:        v.GetInt("HASH_POWER"),

		BaseURL:     v.GetString("BASE_URL"),
		FrontendURL: v.GetString("FRONTEND_URL"),

		GoogleClientID:     v.GetString("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: v.GetString("GOOGLE_CLIENT_SECRET"),

		ImageStorage:           strings.ToLower(v.GetString("IMAGE_STORAGE")),
		CloudinaryCloudName:    v.GetString("CLOUDINARY_CLOUD_NAME"),
		CloudinaryAPIKey:       v.GetString("CLOUDINARY_API_KEY"),
		CloudinaryAPISecret:    v.GetString("CLOUDINARY_API_SECRET"),
		CloudinaryUploadFolder: v.GetString("CLOUDINARY_UPLOAD_FOLDER"),
		MinIOEndpoint:          v.GetString("MINIO_ENDPOINT"),
		MinIOAccessKey:         v.GetString("MINIO_ACCESS_KEY"),
		MinIOSecretKey:         v.GetString("MINIO_SECRET_KEY"),
		MinIOBucket:            v.GetString("MINIO_BUCKET"),
		MinIOUseSSL:            v.GetBool("MINIO_USE_SSL"),
		MinIOPublicURL:         v.GetString("MINIO_PUBLIC_URL"),

		RedisAddr:     v.GetString("REDIS_ADDR"),
		RedisPassword: v.GetString("REDIS_PASSWORD"),
		RedisDB:       v.GetInt("REDIS_DB"),
		CacheTTL:      duration(v, "CACHE_TTL", 10*time.Minute),

		NATSURL: v.GetString("NATS_URL"),

		AuthRateLimit:  v.GetInt("AUTH_RATE_LIMIT"),
		AuthRateWindow: duration(v, "AUTH_RATE_WINDOW", time.Minute),
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")

	v.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	v.SetDefault("MONGO_DB", "callboard")
	v.SetDefault("MONGO_TRANSACTIONS", false)

	v.SetDefault("JWT_ACCESS_SECRET", "access-secret")
	v.SetDefault("JWT_REFRESH_SECRET", "refresh-secret")
	v.SetDefault("JWT_ACCESS_EXPIRE_TIME", "1h")
	v.SetDefault("JWT_REFRESH_EXPIRE_TIME", "720h")
	v.SetDefault("HASH_POWER", 10)

	v.SetDefault("BASE_URL", "http://localhost:8080")
	v.SetDefault("FRONTEND_URL", "http://localhost:3000")

	v.SetDefault("IMAGE_STORAGE", "cloudinary")
	v.SetDefault("CLOUDINARY_UPLOAD_FOLDER", "callboard")
	v.SetDefault("MINIO_BUCKET", "call-images")

	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("CACHE_TTL", "10m")

	v.SetDefault("AUTH_RATE_LIMIT", 20)
	v.SetDefault("AUTH_RATE_WINDOW", "1m")
}

// ParseDuration accepts Go durations ("15m", "1h30m") plus the day ("30d")
// and bare-seconds ("3600") forms common in JWT expiry settings.
func ParseDuration(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if d, err := time.ParseDuration(raw); err == nil {
		return d, nil
	}
	if secs, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	if days, ok := strings.CutSuffix(raw, "d"); ok {
		n, err := strconv.ParseFloat(days, 64)
		if err == nil {
			return time.Duration(n * float64(24*time.Hour)), nil
		}
	}
	return 0, fmt.Errorf("invalid duration %q", raw)
}

// duration falls back to def for values that do not parse or are not positive
func duration(v *viper.Viper, key string, def time.Duration) time.Duration {
	raw := v.GetString(key)
	d, err := ParseDuration(raw)
	if err != nil || d <= 0 {
		log.Printf("Invalid %s=%q, using %s", key, raw, def)
		return def
	}
	return d
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}
