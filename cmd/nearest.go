package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/fingerprint"
)

var nearestCmd = &cobra.Command{
	Use:   "nearest",
	Short: "List the enrolled students closest to a face",
	Long: `Compute the embedding of a single-face photo and list the closest
enrolled identities with their similarity. Useful for choosing a threshold.`,
	RunE: runNearest,
}

func init() {
	rootCmd.AddCommand(nearestCmd)

	nearestCmd.Flags().String("image", "", "Photo with exactly one face (required)")
	nearestCmd.Flags().IntP("limit", "k", 5, "Number of identities to list")
	nearestCmd.Flags().Bool("json", false, "Output as JSON")
}

func runNearest(cmd *cobra.Command, args []string) error {
	jsonOutput := mustGetBool(cmd, "json")
	k := mustGetInt(cmd, "limit")
	imagePath := mustGetString(cmd, "image")
	if imagePath == "" {
		return errors.New("--image is required")
	}

	data, err := os.ReadFile(imagePath)
	if err != nil {
		return fmt.Errorf("reading image: %w", err)
	}

	ctx := cmd.Context()
	cfg := config.Load()
	closeBackend, err := initBackend(cfg)
	if err != nil {
		return err
	}
	defer closeBackend()

	svc, err := newService(ctx, cfg)
	if err != nil {
		return err
	}

	embedding, _, err := fingerprint.NewEmbeddingClient(cfg.Embedding).DetectSingleFace(ctx, data)
	if err != nil {
		return err
	}

	snap, err := svc.Gallery().Snapshot(ctx)
	if err != nil {
		return err
	}
	neighbors, err := snap.Nearest(embedding, k)
	if err != nil {
		return err
	}

	if jsonOutput {
		return outputJSON(neighbors)
	}

	fmt.Printf("Gallery: %d identities, threshold %.2f\n\n", snap.Size(), cfg.Matching.Threshold)
	for i, n := range neighbors {
		marker := " "
		if n.Similarity > cfg.Matching.Threshold {
			marker = "*"
		}
		fmt.Printf("%s %2d. %-12s %-30s %.4f\n", marker, i+1, n.IdentityID, n.DisplayName, n.Similarity)
	}
	return nil
}
