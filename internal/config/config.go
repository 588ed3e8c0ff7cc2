package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Database   DatabaseConfig
	Enrollment EnrollmentConfig
	Embedding  EmbeddingConfig
	Matching   MatchingConfig
	Attendance AttendanceConfig
	Schedule   ScheduleConfig
	Web        WebConfig
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

// EnrollmentConfig points at an external enrollment database whose user_faces
// table replaces the local gallery when set. Its subjects are mirrored into
// the local subjects table on every gallery reload.
type EnrollmentConfig struct {
	DatabaseURL    string // MariaDB DSN (e.g., kyc:kyc@tcp(mariadb:3306)/kyc?parseTime=true)
	DefaultSession string // session assigned to newly mirrored subjects, empty for none
}

type EmbeddingConfig struct {
	URL string // defaults to http://localhost:8000
	Dim int    // defaults to 128
}

type MatchingConfig struct {
	Threshold       float64       // maximum Euclidean distance for a match (default 0.6)
	IndexMinGallery int           // gallery size from which the approximate HNSW index is used, 0 (default) disables it
	SyncInterval    time.Duration // how often the gallery is reloaded while serving
}

type AttendanceConfig struct {
	Cooldown time.Duration // duplicate suppression window (default 1m)
	Timezone string        // IANA zone used for classification (default Asia/Phnom_Penh)
}

type WebConfig struct {
	AllowedOrigins []string // CORS whitelist, localhost is always allowed
}

// envList splits a comma-separated environment variable.
func envList(key string) []string {
	var out []string
	for item := range strings.SplitSeq(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envCount is like envInt but also accepts zero.
func envCount(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n >= 0 {
		return n
	}
	return defaultVal
}

// envFloat reads a positive float, falling back to the default.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

// envDuration reads a non-negative Go duration ("90s", "2m").
// A bare integer is taken as seconds.
func envDuration(key string, defaultVal time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n >= 0 {
		return time.Duration(n) * time.Second
	}
	if d, err := time.ParseDuration(s); err == nil && d >= 0 {
		return d
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

func Load() *Config {
	schedule, err := parseSchedule(scheduleYAML)
	if err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to parse embedded schedule.yaml: " + err.Error())
	}

	return &Config{
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Enrollment: EnrollmentConfig{
			DatabaseURL:    os.Getenv("ENROLLMENT_DATABASE_URL"),
			DefaultSession: os.Getenv("ENROLLMENT_DEFAULT_SESSION"),
		},
		Embedding: EmbeddingConfig{
			URL: os.Getenv("EMBEDDING_URL"),
			Dim: envInt("EMBEDDING_DIM", 128),
		},
		Matching: MatchingConfig{
			Threshold:       envFloat("MATCH_THRESHOLD", 0.6),
			IndexMinGallery: envCount("MATCH_INDEX_MIN_GALLERY", 0),
			SyncInterval:    envDuration("GALLERY_SYNC_INTERVAL", 5*time.Minute),
		},
		Attendance: AttendanceConfig{
			Cooldown: envDuration("ATTENDANCE_COOLDOWN", time.Minute),
			Timezone: envString("ATTENDANCE_TIMEZONE", schedule.Timezone),
		},
		Schedule: *schedule,
		Web: WebConfig{
			AllowedOrigins: envList("WEB_ALLOWED_ORIGINS"),
		},
	}
}
