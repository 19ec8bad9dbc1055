package internal

import (
	"fmt"
	"time"
)

const (
	StoreBadger = "badger"
	StoreMongo  = "mongo"
)

type Config struct {
	Host     string `env:"HOST,default=0.0.0.0"`
	Port     int    `env:"PORT,default=5000"`
	LogLevel string `env:"LOG_LEVEL,default=INFO"`

	Store          string `env:"STORE,default=badger"`
	BadgerFilepath string `env:"BADGER_FILEPATH,default=./data/badger"`
	BadgerInMemory bool   `env:"BADGER_IN_MEMORY,default=false"`
	MongoURL       string `env:"MONGO_URL,default=mongodb://localhost:27017"`
	MongoDatabase  string `env:"MONGO_DATABASE,default=chat"`

	SweepInterval      time.Duration `env:"SWEEP_INTERVAL,default=15s"`
	ParticipantTimeout time.Duration `env:"PARTICIPANT_TIMEOUT,default=10s"`
	RestartInterval    time.Duration `env:"RESTART_INTERVAL,default=1s"`
	MetricInterval     time.Duration `env:"METRIC_INTERVAL,default=15s"`
	ShutdownTimeout    time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`

	// Moderation is disabled when CensoredDir is empty.
	CensoredDir     string `env:"CENSORED_DIR"`
	CharReplacement string `env:"CHARACTER_REPLACEMENT,default=*"`

	MaxBodyBytes int64 `env:"MAX_BODY_BYTES,default=65536"`
}

func (c Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Validate rejects settings the relay cannot run with.
func (c Config) Validate() error {
	if c.Store != StoreBadger && c.Store != StoreMongo {
		return fmt.Errorf("STORE must be %q or %q, got %q", StoreBadger, StoreMongo, c.Store)
	}
	if c.SweepInterval <= 0 {
		return fmt.Errorf("SWEEP_INTERVAL must be positive, got %s", c.SweepInterval)
	}
	if c.ParticipantTimeout <= 0 {
		return fmt.Errorf("PARTICIPANT_TIMEOUT must be positive, got %s", c.ParticipantTimeout)
	}
	if c.MetricInterval <= 0 {
		return fmt.Errorf("METRIC_INTERVAL must be positive, got %s", c.MetricInterval)
	}
	if c.MaxBodyBytes <= 0 {
		return fmt.Errorf("MAX_BODY_BYTES must be positive, got %d", c.MaxBodyBytes)
	}
	return nil
}

func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"CHARACTER_REPLACEMENT must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}
