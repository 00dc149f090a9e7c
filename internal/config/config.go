package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"bikeToWorkAPI/internal/stats"

	"github.com/joho/godotenv"
)

type Config struct {
	Port                  string
	DatabaseURL           string
	ClerkSecretKey        string
	ClerkWebhookSecret    string
	FCMServiceAccountJSON string
	FCMCredentialsFile    string
	PhotoBucket           string
	AssetsBaseURL         string
	PointsPerRide         int
	WeekStart             time.Weekday
	Location              *time.Location
	TotalsPolicy          stats.TotalsPolicy
	MetricsUser           string
	MetricsPass           string
	PprofSecret           string
	ChallengeResolveEvery time.Duration
	SentryDSN             string
	Environment           string
}

// Load reads .env (if present) and then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}
	return FromLookup(os.Getenv)
}

// FromLookup builds a Config from any key lookup, defaulting optional keys.
func FromLookup(getenv func(string) string) (Config, error) {
	get := func(key string) string { return strings.TrimSpace(getenv(key)) }

	cfg := Config{
		Port:                  get("PORT"),
		DatabaseURL:           get("DATABASE_URL"),
		ClerkSecretKey:        get("CLERK_SECRET_KEY"),
		ClerkWebhookSecret:    get("CLERK_WEBHOOK_SECRET"),
		FCMServiceAccountJSON: get("FCM_SERVICE_ACCOUNT_JSON"),
		FCMCredentialsFile:    get("FCM_CREDENTIALS_FILE"),
		PhotoBucket:           get("PHOTO_BUCKET"),
		AssetsBaseURL:         get("ASSETS_BASE_URL"),
		MetricsUser:           get("METRICS_USER"),
		MetricsPass:           get("METRICS_PASS"),
		PprofSecret:           get("PPROF_SECRET"),
		SentryDSN:             get("SENTRY_DSN"),
		Environment:           get("ENVIRONMENT"),
	}

	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("DATABASE_URL environment variable is not set")
	}
	if cfg.ClerkSecretKey == "" {
		return Config{}, errors.New("CLERK_SECRET_KEY environment variable is not set")
	}

	if cfg.Port == "" {
		cfg.Port = "3333"
	}
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.FCMCredentialsFile == "" {
		cfg.FCMCredentialsFile = "./serviceAccountKey.json"
	}

	cfg.PointsPerRide = 10
	if v := get("POINTS_PER_RIDE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return Config{}, fmt.Errorf("POINTS_PER_RIDE must be a non-negative integer, got %q", v)
		}
		cfg.PointsPerRide = n
	}

	cfg.WeekStart = time.Sunday
	if v := get("WEEK_START"); v != "" {
		wd, err := ParseWeekday(v)
		if err != nil {
			return Config{}, err
		}
		cfg.WeekStart = wd
	}

	cfg.Location = time.UTC
	if v := get("TIMEZONE"); v != "" {
		loc, err := time.LoadLocation(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid TIMEZONE %q: %w", v, err)
		}
		cfg.Location = loc
	}

	cfg.TotalsPolicy = stats.CountVerified
	if v := get("TOTALS_POLICY"); v != "" {
		p, ok := stats.ParseTotalsPolicy(v)
		if !ok {
			return Config{}, fmt.Errorf("TOTALS_POLICY must be %q or %q, got %q", stats.CountVerified, stats.CountAll, v)
		}
		cfg.TotalsPolicy = p
	}

	cfg.ChallengeResolveEvery = time.Hour
	if v := get("CHALLENGE_RESOLVE_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, fmt.Errorf("invalid CHALLENGE_RESOLVE_INTERVAL %q", v)
		}
		cfg.ChallengeResolveEvery = d
	}

	return cfg, nil
}

// ParseWeekday accepts English weekday names or their three-letter forms.
func ParseWeekday(s string) (time.Weekday, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		if s == name || s == name[:3] {
			return d, nil
		}
	}
	return time.Sunday, fmt.Errorf("invalid WEEK_START %q", s)
}

func (c Config) Calendar() stats.Calendar {
	return stats.Calendar{Location: c.Location, WeekStart: c.WeekStart}
}

func (c Config) StatsOptions() stats.Options {
	return stats.Options{
		Calendar: c.Calendar(),
		Policy:   c.TotalsPolicy,
		Labels:   stats.PolishLabels,
	}
}
