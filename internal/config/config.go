package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	DBDSN       string `validate:"required"`
	Environment string `validate:"oneof=development production"`

	// Civil timezone used for all day-boundary and cutoff computations.
	Timezone string `validate:"required"`

	MigrationsDir string `validate:"required"`

	// Slot policy.
	SlotCapacity int `validate:"min=1"`

	// Fake-enquiry policy.
	FakeEnquiryThreshold   int           `validate:"min=1"`
	FakeEnquiryWindowHours int           `validate:"min=1"`
	EmergencyCutoff        string        `validate:"required"`
	SweepInterval          time.Duration `validate:"min=1m"`
}

func Load() (*Config, error) {
	// .env is optional; plain environment variables win either way.
	if err := godotenv.Load(".env"); err != nil {
		log.Println("no .env file found, using environment variables")
	}

	cfg := &Config{
		DBDSN:                  os.Getenv("DB_DSN"),
		Environment:            getEnv("ENV", "development"),
		Timezone:               getEnv("TIMEZONE", "Asia/Kolkata"),
		MigrationsDir:          getEnv("MIGRATIONS_DIR", "migrations"),
		SlotCapacity:           getEnvInt("SLOT_CAPACITY", 10),
		FakeEnquiryThreshold:   getEnvInt("FAKE_ENQUIRY_THRESHOLD", 5),
		FakeEnquiryWindowHours: getEnvInt("FAKE_ENQUIRY_WINDOW_HOURS", 24),
		EmergencyCutoff:        getEnv("EMERGENCY_CUTOFF", "17:00"),
		SweepInterval:          getEnvDuration("SWEEP_INTERVAL", time.Hour),
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// FakeEnquiryWindow returns the rolling abuse-detection window as a duration.
func (c *Config) FakeEnquiryWindow() time.Duration {
	return time.Duration(c.FakeEnquiryWindowHours) * time.Hour
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("invalid %s=%q, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("invalid %s=%q, using %s", key, v, fallback)
		return fallback
	}
	return d
}
