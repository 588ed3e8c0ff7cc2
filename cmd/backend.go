package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/database/mariadb"
	"github.com/kozaktomas/face-attendance/internal/database/postgres"
)

// initBackend connects to PostgreSQL, runs migrations and registers the
// repositories. When an enrollment DSN is configured the gallery is read from
// that MariaDB database instead and its subjects are mirrored locally. The
// returned func closes all pools.
func initBackend(cfg *config.Config) (func(), error) {
	if cfg.Database.URL == "" {
		return nil, errors.New("DATABASE_URL environment variable is required")
	}

	if err := postgres.Initialize(&cfg.Database); err != nil {
		return nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}
	closers := []func() error{postgres.GetGlobalPool().Close}

	if cfg.Enrollment.DatabaseURL != "" {
		mirror, closeEnrollment, err := initEnrollment(cfg)
		if err != nil {
			postgres.GetGlobalPool().Close()
			return nil, err
		}
		database.RegisterGalleryProvider(func() database.GalleryProvider { return mirror })
		closers = append(closers, closeEnrollment)
		fmt.Println("Gallery source: enrollment database (MariaDB), subjects mirrored to PostgreSQL")
	}

	return func() {
		for _, c := range closers {
			if err := c(); err != nil {
				fmt.Printf("Warning: %v\n", err)
			}
		}
	}, nil
}

// initEnrollment connects to the MariaDB enrollment database and wraps it in
// a gallery that mirrors its subjects into PostgreSQL.
func initEnrollment(cfg *config.Config) (*database.MirroredGallery, func() error, error) {
	ctx := context.Background()

	subjects, err := database.GetSubjectWriter(ctx)
	if err != nil {
		return nil, nil, err
	}
	if id := cfg.Enrollment.DefaultSession; id != "" {
		sessions, err := database.GetSessionReader(ctx)
		if err != nil {
			return nil, nil, err
		}
		session, err := sessions.Session(ctx, id)
		if err != nil {
			return nil, nil, err
		}
		if session == nil {
			return nil, nil, fmt.Errorf("ENROLLMENT_DEFAULT_SESSION: session %q not found", id)
		}
	}

	enrollment, err := mariadb.NewPool(cfg.Enrollment.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to enrollment database: %w", err)
	}
	return database.NewMirroredGallery(enrollment, subjects, cfg.Enrollment.DefaultSession), enrollment.Close, nil
}

// loadEvaluator builds the status evaluator for the configured time zone.
func loadEvaluator(cfg *config.Config) (*attendance.Evaluator, error) {
	evaluator, err := attendance.NewEvaluatorForZone(cfg.Attendance.Timezone)
	if err != nil {
		return nil, fmt.Errorf("ATTENDANCE_TIMEZONE: %w", err)
	}
	return evaluator, nil
}

// printJSON writes v as indented JSON to stdout.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// formatStamp renders an optional timestamp for tables.
func formatStamp(t *time.Time, loc *time.Location) string {
	if t == nil {
		return "-"
	}
	return t.In(loc).Format(time.DateTime)
}
