package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/HenryAG36/online-mini-golf-sub000/internal/game"
)

type Config struct {
	// Environment
	Environment string
	LogLevel    string

	// Database
	DatabaseURL    string
	MigrateOnStart bool

	// Redis
	RedisURL string

	// Server
	Port        string
	FrontendURL string

	// Levels
	LevelsDir string

	// Sessions
	TickRate                  int
	BroadcastRate             int
	MaxPlayersPerSession      int
	SessionIdleMinutes        int
	SessionReaperIntervalSecs int

	// Security
	JWTSecret             string
	PlayerTokenTTLMinutes int

	// Physics tuning
	Friction     float64
	MinVelocity  float64
	WallBounce   float64
	CaptureSpeed float64
	MaxPower     float64
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	return &Config{
		Environment: getEnv("APP_ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		DatabaseURL:    getEnv("DATABASE_URL", "postgres://localhost:5432/minigolf?sslmode=disable"),
		MigrateOnStart: getEnv("MIGRATE_ON_START", "false") == "true",

		RedisURL: getEnv("REDIS_URL", "redis://localhost:6379/0"),

		Port:        getEnv("APP_PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),

		LevelsDir: getEnv("LEVELS_DIR", "levels"),

		TickRate:                  getEnvInt("TICK_RATE", 60),
		BroadcastRate:             getEnvInt("BROADCAST_RATE", 20),
		MaxPlayersPerSession:      getEnvInt("MAX_PLAYERS_PER_SESSION", 4),
		SessionIdleMinutes:        getEnvInt("SESSION_IDLE_MINUTES", 30),
		SessionReaperIntervalSecs: getEnvInt("SESSION_REAPER_INTERVAL_SECONDS", 60),

		JWTSecret:             getEnv("JWT_SECRET", "change-me-in-production"),
		PlayerTokenTTLMinutes: getEnvInt("PLAYER_TOKEN_TTL_MINUTES", 240),

		Friction:     getEnvFloat("PHYS_FRICTION", game.Friction),
		MinVelocity:  getEnvFloat("PHYS_MIN_VELOCITY", game.MinVelocity),
		WallBounce:   getEnvFloat("PHYS_WALL_BOUNCE", game.WallBounce),
		CaptureSpeed: getEnvFloat("PHYS_CAPTURE_SPEED", game.CaptureSpeed),
		MaxPower:     getEnvFloat("PHYS_MAX_POWER", game.MaxPower),
	}
}

// Physics returns the engine tuning. Out-of-range values fall back to defaults
// inside the engine.
func (c *Config) Physics() game.Physics {
	p := game.DefaultPhysics()
	p.Friction = c.Friction
	p.MinVelocity = c.MinVelocity
	p.WallBounce = c.WallBounce
	p.CaptureSpeed = c.CaptureSpeed
	p.MaxPower = c.MaxPower
	return p
}

// TickInterval is the wall-clock period of one simulation step.
func (c *Config) TickInterval() time.Duration {
	rate := c.TickRate
	if rate <= 0 {
		rate = 60
	}
	return time.Second / time.Duration(rate)
}

// BroadcastEvery is how many ticks pass between snapshot broadcasts.
func (c *Config) BroadcastEvery() int {
	if c.BroadcastRate <= 0 || c.BroadcastRate >= c.TickRate {
		return 1
	}
	return c.TickRate / c.BroadcastRate
}

func (c *Config) SessionIdleTimeout() time.Duration {
	return time.Duration(c.SessionIdleMinutes) * time.Minute
}

func (c *Config) PlayerTokenTTL() time.Duration {
	return time.Duration(c.PlayerTokenTTLMinutes) * time.Minute
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
