// Package config reads server settings from the environment.
package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// TCPAddr is the text-protocol listener address. The protocol
	// specifies port 666.
	TCPAddr  string
	HTTPAddr string
	// DatabaseURL is the postgres DSN for the leaderboard; empty keeps
	// scores in memory.
	DatabaseURL      string
	TurnTimeout      time.Duration
	ChallengeTimeout time.Duration
}

func Load() Config {
	return Config{
		TCPAddr:          getenv("TCP_ADDR", ":666"),
		HTTPAddr:         getenv("HTTP_ADDR", ":8080"),
		DatabaseURL:      getenv("DATABASE_URL", ""),
		TurnTimeout:      time.Duration(getenvInt("TURN_TIMEOUT_SEC", 90)) * time.Second,
		ChallengeTimeout: time.Duration(getenvInt("CHALLENGE_TIMEOUT_SEC", 60)) * time.Second,
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}
