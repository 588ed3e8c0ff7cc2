package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/facematch"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll <dir|file.json>",
	Short: "Bulk enroll subjects and their face embeddings",
	Long: `Enroll subjects from a directory of photos or from a JSON export.

A directory must contain one sub-directory per subject, named after the
subject. Every photo inside is sent to the embedding server and must contain
exactly one face; photos with zero or several faces are skipped.

A JSON file holds [{"name": "...", "session_id": "...", "embeddings": [[...]]}].

Subjects are looked up by normalized name, so re-running the import adds
embeddings to existing subjects instead of creating duplicates.

Examples:
  # Enroll photos, assigning new subjects to the morning session
  face-attendance enroll ./faces --session morning

  # Import precomputed embeddings
  face-attendance enroll export.json

  # Show what would be enrolled
  face-attendance enroll ./faces --dry-run`,
	Args: cobra.ExactArgs(1),
	RunE: runEnroll,
}

func init() {
	rootCmd.AddCommand(enrollCmd)

	enrollCmd.Flags().String("session", "", "Session ID assigned to newly created subjects")
	enrollCmd.Flags().Bool("dry-run", false, "List what would be enrolled without writing anything")
}

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

// enrollmentSubject is one subject to enroll with its photos or embeddings.
type enrollmentSubject struct {
	Name       string      `json:"name"`
	SessionID  string      `json:"session_id"`
	Embeddings [][]float32 `json:"embeddings"`
	Photos     []string    `json:"-"`
}

// enrollStats counts what an enrollment run did.
type enrollStats struct {
	SubjectsCreated int
	EmbeddingsAdded int
	Skipped         int
	Errors          int
}

// scanEnrollmentDir lists subject sub-directories and their photos, sorted by name.
func scanEnrollmentDir(dir string) ([]enrollmentSubject, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", dir, err)
	}

	var subjects []enrollmentSubject
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		files, err := os.ReadDir(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", entry.Name(), err)
		}
		subject := enrollmentSubject{Name: entry.Name()}
		for _, f := range files {
			if f.IsDir() || !imageExtensions[strings.ToLower(filepath.Ext(f.Name()))] {
				continue
			}
			subject.Photos = append(subject.Photos, filepath.Join(dir, entry.Name(), f.Name()))
		}
		if len(subject.Photos) > 0 {
			sort.Strings(subject.Photos)
			subjects = append(subjects, subject)
		}
	}

	sort.Slice(subjects, func(i, j int) bool { return subjects[i].Name < subjects[j].Name })
	return subjects, nil
}

// resolveSubject returns the existing subject with the same normalized name or creates one.
func resolveSubject(ctx context.Context, store database.SubjectWriter, name, sessionID string) (*database.StoredSubject, bool, error) {
	existing, err := store.FindSubjectsByName(ctx, name)
	if err != nil {
		return nil, false, err
	}
	if len(existing) > 0 {
		return &existing[0], false, nil
	}

	subject := &database.StoredSubject{Name: name, SessionID: sessionID}
	if err := store.SaveSubject(ctx, subject); err != nil {
		return nil, false, err
	}
	return subject, true, nil
}

// enrollEmbeddings stores precomputed embeddings for each subject.
func enrollEmbeddings(ctx context.Context, store database.SubjectWriter, subjects []enrollmentSubject, defaultSession string, dim int, bar *progressbar.ProgressBar) enrollStats {
	var stats enrollStats
	for _, s := range subjects {
		sessionID := s.SessionID
		if sessionID == "" {
			sessionID = defaultSession
		}
		subject, created, err := resolveSubject(ctx, store, s.Name, sessionID)
		if err != nil {
			fmt.Printf("\nWarning: subject %s: %v\n", s.Name, err)
			stats.Errors++
			bar.Add(len(s.Embeddings))
			continue
		}
		if created {
			stats.SubjectsCreated++
		}
		for _, emb := range s.Embeddings {
			bar.Add(1)
			if dim > 0 && len(emb) != dim {
				stats.Skipped++
				continue
			}
			if _, err := store.AddEmbedding(ctx, subject.ID, emb, "import"); err != nil {
				fmt.Printf("\nWarning: subject %s: %v\n", s.Name, err)
				stats.Errors++
				continue
			}
			stats.EmbeddingsAdded++
		}
	}
	return stats
}

// enrollPhotos computes one embedding per photo and stores it.
func enrollPhotos(ctx context.Context, store database.SubjectWriter, client *facematch.EmbeddingClient, subjects []enrollmentSubject, sessionID string, bar *progressbar.ProgressBar) enrollStats {
	var stats enrollStats
	for _, s := range subjects {
		subject, created, err := resolveSubject(ctx, store, s.Name, sessionID)
		if err != nil {
			fmt.Printf("\nWarning: subject %s: %v\n", s.Name, err)
			stats.Errors++
			bar.Add(len(s.Photos))
			continue
		}
		if created {
			stats.SubjectsCreated++
		}

		for _, photo := range s.Photos {
			bar.Add(1)
			data, err := os.ReadFile(photo)
			if err != nil {
				stats.Errors++
				continue
			}
			resp, err := client.ComputeFaceEmbeddings(ctx, data)
			if err != nil {
				fmt.Printf("\nWarning: %s: %v\n", photo, err)
				stats.Errors++
				continue
			}
			if len(resp.Faces) != 1 {
				stats.Skipped++
				continue
			}
			if _, err := store.AddEmbedding(ctx, subject.ID, resp.Faces[0].Embedding, resp.Model); err != nil {
				fmt.Printf("\nWarning: %s: %v\n", photo, err)
				stats.Errors++
				continue
			}
			stats.EmbeddingsAdded++
		}
	}
	return stats
}

func newEnrollBar(total int, unit string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription("Enrolling"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString(unit),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
	)
}

func runEnroll(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg := config.Load()

	sessionID := mustGetString(cmd, "session")
	dryRun := mustGetBool(cmd, "dry-run")
	source := args[0]

	info, err := os.Stat(source)
	if err != nil {
		return err
	}
	fromJSON := !info.IsDir()

	var subjects []enrollmentSubject
	total := 0
	if fromJSON {
		if err := readJSONFile(source, &subjects); err != nil {
			return err
		}
		for _, s := range subjects {
			total += len(s.Embeddings)
		}
	} else {
		if subjects, err = scanEnrollmentDir(source); err != nil {
			return err
		}
		for _, s := range subjects {
			total += len(s.Photos)
		}
	}

	if len(subjects) == 0 {
		return errors.New("nothing to enroll")
	}

	if dryRun {
		for _, s := range subjects {
			fmt.Printf("%s: %d embeddings, %d photos\n", s.Name, len(s.Embeddings), len(s.Photos))
		}
		fmt.Printf("\nDry run: %d subjects, %d items\n", len(subjects), total)
		return nil
	}

	closeBackend, err := initBackend(cfg)
	if err != nil {
		return err
	}
	defer closeBackend()

	if sessionID != "" {
		sessions, err := database.GetSessionReader(ctx)
		if err != nil {
			return err
		}
		session, err := sessions.Session(ctx, sessionID)
		if err != nil {
			return err
		}
		if session == nil {
			return fmt.Errorf("session %q not found", sessionID)
		}
	}

	store, err := database.GetSubjectWriter(ctx)
	if err != nil {
		return err
	}

	var stats enrollStats
	if fromJSON {
		bar := newEnrollBar(total, "embeddings")
		stats = enrollEmbeddings(ctx, store, subjects, sessionID, cfg.Embedding.Dim, bar)
	} else {
		client := facematch.NewEmbeddingClient(cfg.Embedding.URL, cfg.Embedding.Dim)
		defer client.Close()
		bar := newEnrollBar(total, "photos")
		stats = enrollPhotos(ctx, store, client, subjects, sessionID, bar)
	}

	fmt.Printf("\nEnrollment complete: %d subjects created, %d embeddings added, %d skipped, %d errors\n",
		stats.SubjectsCreated, stats.EmbeddingsAdded, stats.Skipped, stats.Errors)
	return nil
}
