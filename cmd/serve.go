package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/facematch"
	"github.com/kozaktomas/face-attendance/internal/recognition"
	"github.com/kozaktomas/face-attendance/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the recognition and attendance API server",
	Long: `Start the Face Attendance HTTP API.

Kiosks post face embeddings (or raw frames when an embedding server is
configured) to /api/v1/recognize and receive the recognized subjects together
with the check-in or check-out that was recorded for them. The gallery is
reloaded from storage periodically and after every enrollment change.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	addServeFlags(serveCmd)
}

func addServeFlags(cmd *cobra.Command) {
	cmd.Flags().Int("port", 8080, "Port to listen on")
	cmd.Flags().String("host", "0.0.0.0", "Host to bind to")
	cmd.Flags().Bool("no-extractor", false, "Disable frame recognition through the embedding server")
}

// resolveServeHostPort resolves port and host from flags, overridden by the
// WEB_PORT and WEB_HOST environment variables.
func resolveServeHostPort(cmd *cobra.Command) (int, string, error) {
	port := mustGetInt(cmd, "port")
	host := mustGetString(cmd, "host")

	if envPort := os.Getenv("WEB_PORT"); envPort != "" {
		p, err := strconv.Atoi(envPort)
		if err != nil || p < 1 || p > 65535 {
			return 0, "", fmt.Errorf("invalid WEB_PORT %q: must be a port number", envPort)
		}
		port = p
	}
	if envHost := os.Getenv("WEB_HOST"); envHost != "" {
		host = envHost
	}
	return port, host, nil
}

// buildRecognitionService wires matcher, tracker and gallery source together.
func buildRecognitionService(ctx context.Context, cfg *config.Config, evaluator *attendance.Evaluator, extractor facematch.Extractor) (*recognition.Service, error) {
	gallery, err := database.GetGalleryProvider(ctx)
	if err != nil {
		return nil, err
	}
	records, err := database.GetAttendanceWriter(ctx)
	if err != nil {
		return nil, err
	}
	sessions, err := database.GetSessionReader(ctx)
	if err != nil {
		return nil, err
	}

	tracker := attendance.NewTracker(records, sessions, evaluator,
		attendance.WithCooldown(cfg.Attendance.Cooldown))
	matcher := facematch.NewMatcher(cfg.Matching.Threshold)

	opts := []recognition.Option{recognition.WithIndexMinGallery(cfg.Matching.IndexMinGallery)}
	if extractor != nil {
		opts = append(opts, recognition.WithExtractor(extractor))
	}
	return recognition.NewService(gallery, matcher, tracker, opts...), nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	evaluator, err := loadEvaluator(cfg)
	if err != nil {
		return err
	}

	fmt.Printf("Connecting to PostgreSQL database...\n")
	closeBackend, err := initBackend(cfg)
	if err != nil {
		return err
	}
	defer closeBackend()

	var extractor facematch.Extractor
	if !mustGetBool(cmd, "no-extractor") {
		client := facematch.NewEmbeddingClient(cfg.Embedding.URL, cfg.Embedding.Dim)
		defer client.Close()
		extractor = client
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	service, err := buildRecognitionService(ctx, cfg, evaluator, extractor)
	if err != nil {
		return err
	}

	stats, err := service.Reload(ctx)
	if err != nil {
		return fmt.Errorf("loading gallery: %w", err)
	}
	fmt.Printf("Gallery loaded: %d embeddings of %d subjects (index: %t)\n", stats.Entries, stats.Subjects, stats.Indexed)
	fmt.Printf("Threshold %.2f, cooldown %s, timezone %s\n",
		cfg.Matching.Threshold, cfg.Attendance.Cooldown, evaluator.Location())

	go func() {
		if err := service.Run(ctx, cfg.Matching.SyncInterval); err != nil && ctx.Err() == nil {
			fmt.Printf("Gallery sync stopped: %v\n", err)
		}
	}()

	port, host, err := resolveServeHostPort(cmd)
	if err != nil {
		return err
	}
	server := web.NewServer(cfg, port, host, service, evaluator.Location())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting Face Attendance API on http://%s:%d\n", host, port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
