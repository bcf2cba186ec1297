package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	DatabaseURL    string
	HTTPAddr       string
	LogLevel       string
	Env            string // dev|prod
	SentryDSN      string
	BotToken       string // пусто: уведомления выключены
	Location       *time.Location
	DBTimeout      time.Duration
	MetricsRefresh time.Duration
	RubricFile     string // пусто: встроенная рубрика
	CORSOrigins    []string
}

func Load() (*Config, error) {
	tz := getenv("TZ", "UTC")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		loc = time.UTC
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, errors.New("required env DATABASE_URL is empty")
	}
	dbTimeout, err := duration("DB_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}
	refresh, err := duration("METRICS_REFRESH", time.Minute)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		DatabaseURL:    dbURL,
		HTTPAddr:       getenv("HTTP_ADDR", ":8080"),
		LogLevel:       getenv("LOG_LEVEL", "info"),
		Env:            getenv("ENV", "dev"),
		SentryDSN:      os.Getenv("SENTRY_DSN"),
		BotToken:       os.Getenv("BOT_TOKEN"),
		Location:       loc,
		DBTimeout:      dbTimeout,
		MetricsRefresh: refresh,
		RubricFile:     os.Getenv("RUBRIC_FILE"),
		CORSOrigins:    list(getenv("CORS_ORIGINS", "*")),
	}
	return cfg, nil
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// duration принимает "5s"/"1m" или просто число секунд.
func duration(k string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def, nil
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", k, err)
	}
	return d, nil
}

func list(s string) []string {
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' })
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.TrimSpace(p))
	}
	return out
}
