package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/facematch"
)

var matchCmd = &cobra.Command{
	Use:   "match <query.json>",
	Short: "Match a face embedding against the enrolled gallery",
	Long: `Match a single face embedding against the gallery of enrolled subjects.

The query file holds a JSON array of floats. The gallery is read from the
database unless --gallery points to a JSON file of
[{"subject_id": "...", "embedding": [...]}] entries.

Examples:
  # Match against the database gallery
  face-attendance match query.json

  # Stricter threshold, offline gallery
  face-attendance match query.json --gallery gallery.json --threshold 0.5

  # Output as JSON
  face-attendance match query.json --json`,
	Args: cobra.ExactArgs(1),
	RunE: runMatch,
}

func init() {
	rootCmd.AddCommand(matchCmd)

	matchCmd.Flags().Float64("threshold", 0, "Maximum Euclidean distance for a match (0 = MATCH_THRESHOLD)")
	matchCmd.Flags().String("gallery", "", "Read the gallery from a JSON file instead of the database")
	matchCmd.Flags().Bool("json", false, "Output as JSON")
}

// galleryFileEntry is one entry of a gallery JSON file.
type galleryFileEntry struct {
	SubjectID string    `json:"subject_id"`
	Embedding []float32 `json:"embedding"`
}

// MatchCommandOutput is the JSON output of the match command.
type MatchCommandOutput struct {
	Threshold   float64          `json:"threshold"`
	GallerySize int              `json:"gallery_size"`
	Result      facematch.Result `json:"result"`
}

func readJSONFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

func loadGalleryFile(path string) ([]facematch.GalleryEntry, error) {
	var entries []galleryFileEntry
	if err := readJSONFile(path, &entries); err != nil {
		return nil, err
	}
	gallery := make([]facematch.GalleryEntry, 0, len(entries))
	for _, e := range entries {
		gallery = append(gallery, facematch.GalleryEntry{SubjectID: e.SubjectID, Embedding: e.Embedding})
	}
	return gallery, nil
}

func runMatch(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg := config.Load()

	threshold := mustGetFloat64(cmd, "threshold")
	galleryPath := mustGetString(cmd, "gallery")
	jsonOutput := mustGetBool(cmd, "json")

	if threshold <= 0 {
		threshold = cfg.Matching.Threshold
	}

	var query facematch.Embedding
	if err := readJSONFile(args[0], &query); err != nil {
		return err
	}

	var gallery []facematch.GalleryEntry
	if galleryPath != "" {
		var err error
		if gallery, err = loadGalleryFile(galleryPath); err != nil {
			return err
		}
	} else {
		closeBackend, err := initBackend(cfg)
		if err != nil {
			return err
		}
		defer closeBackend()

		provider, err := database.GetGalleryProvider(ctx)
		if err != nil {
			return err
		}
		if gallery, err = provider.Gallery(ctx); err != nil {
			return fmt.Errorf("failed to load gallery: %w", err)
		}
	}

	result, err := facematch.NewMatcher(threshold).Match(query, gallery)
	if err != nil {
		if errors.Is(err, facematch.ErrEmptyGallery) {
			return errors.New("no subjects enrolled, nothing to match against")
		}
		return err
	}

	if jsonOutput {
		return printJSON(MatchCommandOutput{
			Threshold:   threshold,
			GallerySize: len(gallery),
			Result:      result,
		})
	}

	fmt.Printf("Gallery: %d embeddings, threshold %.2f\n", len(gallery), threshold)
	if result.Matched() {
		fmt.Printf("Matched subject %s (distance %.4f)\n", result.SubjectID, result.Distance)
	} else {
		fmt.Printf("No match (best distance %.4f)\n", result.Distance)
	}
	return nil
}
