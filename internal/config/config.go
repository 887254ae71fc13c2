// Package config loads application configuration from environment
// variables, optionally seeded from a .env file.
package config

import (
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/cinema-hall-booking/internal/model"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.
type Config struct {
	Env            string // APP_ENV (dev, test, prod)
	Port           string // APP_PORT
	DBUser         string // DB_USER
	DBPass         string // DB_PASS, may be empty
	DBHost         string // DB_HOST
	DBPort         string // DB_PORT
	DBName         string // DB_NAME
	DBMaxOpenConns int    // DB_MAX_OPEN_CONNS
	JWTSecret      string // JWT_SECRET
	AccessTTLMin   int    // ACCESS_TOKEN_TTL_MIN

	AdminName         string // ADMIN_NAME
	AdminPasswordHash string // ADMIN_PASSWORD_HASH, bcrypt; empty disables login

	LogLevel  string // LOG_LEVEL
	LogFormat string // LOG_FORMAT: text or json

	HallRows  int // HALL_ROWS
	HallSeats int // HALL_SEATS
	SeatPrice int // SEAT_PRICE

	EventsEnabled bool   // EVENTS_ENABLED
	RabbitMQURL   string // RABBITMQ_URL
	TicketLogPath string // TICKET_LOG_PATH

	Redis     RedisConfig
	Cache     CacheConfig
	RateLimit RateLimitConfig
}

// Load reads .env (when present) and then the environment.  Required
// variables are enforced by must(); a missing one exits the process.
func Load() Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logrus.WithError(err).Warn("could not read .env")
	}
	return Config{
		Env:            must("APP_ENV"),
		Port:           must("APP_PORT"),
		DBUser:         must("DB_USER"),
		DBPass:         os.Getenv("DB_PASS"),
		DBHost:         must("DB_HOST"),
		DBPort:         must("DB_PORT"),
		DBName:         must("DB_NAME"),
		DBMaxOpenConns: mustInt("DB_MAX_OPEN_CONNS", 25),
		JWTSecret:      must("JWT_SECRET"),
		AccessTTLMin:   mustInt("ACCESS_TOKEN_TTL_MIN", 60),

		AdminName:         envStr("ADMIN_NAME", "admin"),
		AdminPasswordHash: os.Getenv("ADMIN_PASSWORD_HASH"),

		LogLevel:  envStr("LOG_LEVEL", "info"),
		LogFormat: envStr("LOG_FORMAT", "text"),

		HallRows:  mustRange("HALL_ROWS", 3, 1, model.MaxSeatIndex),
		HallSeats: mustRange("HALL_SEATS", 3, 1, model.MaxSeatIndex),
		SeatPrice: mustInt("SEAT_PRICE", 500),

		EventsEnabled: envBool("EVENTS_ENABLED", false),
		RabbitMQURL:   envStr("RABBITMQ_URL", os.Getenv("AMQP_URL")),
		TicketLogPath: envStr("TICKET_LOG_PATH", "logs/tickets.log"),

		Redis:     LoadRedisConfig(),
		Cache:     LoadCacheConfig(),
		RateLimit: LoadRateLimitConfig(),
	}
}
