// Package config loads engine settings from an optional YAML file with
// environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/nats-io/nats.go"
	"gopkg.in/yaml.v3"

	"github.com/cluegrid/cluegrid/internal/game"
	"github.com/cluegrid/cluegrid/internal/matchmaking"
)

// Config holds every tunable the matchd binary wires.
type Config struct {
	NATSURL    string `yaml:"nats_url"`
	HealthAddr string `yaml:"health_addr"`

	TurnTimeoutSec int `yaml:"turn_timeout_sec"`
	StalemateAfter int `yaml:"stalemate_after"`

	QueueTickSec       int `yaml:"queue_tick_sec"`
	QueueInactivitySec int `yaml:"queue_inactivity_sec"`

	WordListPath string `yaml:"word_list_path"`

	Cards struct {
		FirstTeam  int `yaml:"first_team"`
		SecondTeam int `yaml:"second_team"`
		Neutral    int `yaml:"neutral"`
		Assassin   int `yaml:"assassin"`
	} `yaml:"cards"`
}

// Default returns the standard configuration.
func Default() Config {
	cfg := Config{
		NATSURL:            nats.DefaultURL,
		HealthAddr:         ":8082",
		TurnTimeoutSec:     60,
		StalemateAfter:     6,
		QueueTickSec:       2,
		QueueInactivitySec: 60,
	}
	cfg.Cards.FirstTeam = 9
	cfg.Cards.SecondTeam = 8
	cfg.Cards.Neutral = 7
	cfg.Cards.Assassin = 1
	return cfg
}

// Load reads the YAML file at path (optional) and applies env overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.NATSURL = getEnv("NATS_URL", cfg.NATSURL)
	cfg.HealthAddr = getEnv("HEALTH_ADDR", cfg.HealthAddr)
	cfg.TurnTimeoutSec = getEnvAsInt("TURN_TIMEOUT_SEC", cfg.TurnTimeoutSec)
	cfg.StalemateAfter = getEnvAsInt("STALEMATE_AFTER", cfg.StalemateAfter)
	cfg.QueueTickSec = getEnvAsInt("QUEUE_TICK_SEC", cfg.QueueTickSec)
	cfg.QueueInactivitySec = getEnvAsInt("QUEUE_INACTIVITY_SEC", cfg.QueueInactivitySec)
	cfg.WordListPath = getEnv("WORD_LIST_PATH", cfg.WordListPath)

	return cfg, nil
}

// GameConfig converts to the match ruleset.
func (c Config) GameConfig() game.Config {
	return game.Config{
		FirstTeamCards:  c.Cards.FirstTeam,
		SecondTeamCards: c.Cards.SecondTeam,
		NeutralCards:    c.Cards.Neutral,
		AssassinCards:   c.Cards.Assassin,
		TurnTimeout:     time.Duration(c.TurnTimeoutSec) * time.Second,
		StalemateAfter:  c.StalemateAfter,
	}
}

// QueueConfig converts to the matchmaking settings.
func (c Config) QueueConfig() matchmaking.Config {
	return matchmaking.Config{
		InactivityWindow: time.Duration(c.QueueInactivitySec) * time.Second,
		TickInterval:     time.Duration(c.QueueTickSec) * time.Second,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
