package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	ObjectStore ObjectStoreConfig
	JWT         JWTConfig
	SMTP        SMTPConfig
	Alerts      AlertsConfig
	Hotel       HotelConfig
	Reports     ReportsConfig
	WebSocket   WebSocketConfig
	CORS        CORSConfig
	Logging     LoggingConfig
	Seed        SeedConfig
}

type ServerConfig struct {
	Port string
	Host string
	Env  string
	// CronKey authorizes the scheduled expiry scan without a user token.
	CronKey string
}

type DatabaseConfig struct {
	Path string
}

type ObjectStoreConfig struct {
	Host     string
	Port     string
	User     string
	Password string
}

func (c ObjectStoreConfig) URL() string {
	return fmt.Sprintf("http://%s:%s@%s:%s", c.User, c.Password, c.Host, c.Port)
}

type JWTConfig struct {
	Secret                 string
	Expiration             time.Duration
	RefreshTokenExpiration time.Duration
}

type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
}

type AlertsConfig struct {
	To          []string
	ReplyTo     string
	FromName    string
	EnforceHour bool
	Hour        int
	Location    *time.Location
	Bucket      string
	MasterKey   string
}

type HotelConfig struct {
	CC        []string
	ReplyTo   string
	FromName  string
	Signature string
}

type ReportsConfig struct {
	Bucket string
}

type WebSocketConfig struct {
	ReadBufferSize  int
	WriteBufferSize int
	MaxMessageSize  int64
	WriteWait       time.Duration
	PongWait        time.Duration
	PingPeriod      time.Duration
	MaxConnPerUser  int
}

type CORSConfig struct {
	AllowedOrigins string
	AllowedMethods string
	AllowedHeaders string
}

type LoggingConfig struct {
	Level  string
	Format string
}

type SeedConfig struct {
	AdminUsername string
	AdminPassword string
}

func Load() (*Config, error) {
	godotenv.Load()

	jwtExp, err := time.ParseDuration(getEnv("JWT_EXPIRATION", "15m"))
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_EXPIRATION: %w", err)
	}

	refreshExp, err := time.ParseDuration(getEnv("REFRESH_TOKEN_EXPIRATION", "168h"))
	if err != nil {
		return nil, fmt.Errorf("invalid REFRESH_TOKEN_EXPIRATION: %w", err)
	}

	loc, err := time.LoadLocation(getEnv("ALERT_TIMEZONE", "Europe/Rome"))
	if err != nil {
		return nil, fmt.Errorf("invalid ALERT_TIMEZONE: %w", err)
	}

	hour := getEnvAsInt("ALERT_HOUR", 7)
	if hour < 0 || hour > 23 {
		return nil, fmt.Errorf("invalid ALERT_HOUR: %d", hour)
	}

	alertTo := getEnvAsList("ALERT_TO", nil)

	return &Config{
		Server: ServerConfig{
			Port:    getEnv("PORT", "8080"),
			Host:    getEnv("HOST", "0.0.0.0"),
			Env:     getEnv("ENV", "development"),
			CronKey: getEnv("CRON_KEY", ""),
		},
		Database: DatabaseConfig{
			Path: getEnv("DB_PATH", "fieldops.db"),
		},
		ObjectStore: ObjectStoreConfig{
			Host:     getEnv("STORE_HOST", "localhost"),
			Port:     getEnv("STORE_PORT", "5984"),
			User:     getEnv("STORE_USER", "admin"),
			Password: getEnv("STORE_PASSWORD", "password"),
		},
		JWT: JWTConfig{
			Secret:                 getEnv("JWT_SECRET", "dev-secret-change-in-production"),
			Expiration:             jwtExp,
			RefreshTokenExpiration: refreshExp,
		},
		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", "localhost"),
			Port:     getEnvAsInt("SMTP_PORT", 465),
			User:     getEnv("SMTP_USER", ""),
			Password: getEnv("SMTP_PASS", ""),
		},
		Alerts: AlertsConfig{
			To:          alertTo,
			ReplyTo:     getEnv("ALERT_REPLY_TO", strings.Join(alertTo, ",")),
			FromName:    getEnv("ALERT_FROM_NAME", "Gestione Attrezzature (no-reply)"),
			EnforceHour: getEnvAsBool("CRON_ENFORCE_TIME", false),
			Hour:        hour,
			Location:    loc,
			Bucket:      getEnv("ATTREZZATURE_BUCKET", "attrezzature"),
			MasterKey:   getEnv("ATTREZZATURE_MASTER_KEY", "master.xlsx"),
		},
		Hotel: HotelConfig{
			CC:        getEnvAsList("HOTEL_CC", nil),
			ReplyTo:   getEnv("HOTEL_REPLY_TO", ""),
			FromName:  getEnv("HOTEL_FROM_NAME", "Prenotazioni (no-reply)"),
			Signature: getEnv("HOTEL_SIGNATURE", "Plenzich S.p.A."),
		},
		Reports: ReportsConfig{
			Bucket: getEnv("RAPPORTINI_BUCKET", "rapportini"),
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  getEnvAsInt("WS_READ_BUFFER_SIZE", 4096),
			WriteBufferSize: getEnvAsInt("WS_WRITE_BUFFER_SIZE", 4096),
			MaxMessageSize:  int64(getEnvAsInt("WS_MAX_MESSAGE_SIZE", 65536)),
			WriteWait:       10 * time.Second,
			PongWait:        60 * time.Second,
			PingPeriod:      54 * time.Second,
			MaxConnPerUser:  getEnvAsInt("WS_MAX_CONN_PER_USER", 5),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
			AllowedMethods: getEnv("CORS_ALLOWED_METHODS", "GET,POST,PUT,DELETE,OPTIONS"),
			AllowedHeaders: getEnv("CORS_ALLOWED_HEADERS", "Content-Type,Authorization,X-Cron-Key,X-Client-ID"),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
		Seed: SeedConfig{
			AdminUsername: getEnv("SEED_ADMIN_USERNAME", ""),
			AdminPassword: getEnv("SEED_ADMIN_PASSWORD", ""),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
