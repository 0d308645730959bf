package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/fingerprint"
)

var markCmd = &cobra.Command{
	Use:   "mark",
	Short: "Mark attendance from a classroom photo",
	Long: `Detect every face in a photo, match them against the enrolled gallery
and mark recognised students present for the session.

Examples:
  face-attendance mark --image class.jpg --period 2 --faculty F01 --subject Physics
  face-attendance mark --image class.jpg --period 2 --faculty F01 --subject Physics --threshold 0.5 --json`,
	RunE: runMark,
}

func init() {
	rootCmd.AddCommand(markCmd)

	addSessionFlags(markCmd)
	markCmd.Flags().String("image", "", "Classroom photo (required)")
	markCmd.Flags().Float64("threshold", 0, "Similarity a match must exceed (defaults to MATCH_THRESHOLD)")
	markCmd.Flags().Bool("json", false, "Output as JSON")
}

func runMark(cmd *cobra.Command, args []string) error {
	jsonOutput := mustGetBool(cmd, "json")
	imagePath := mustGetString(cmd, "image")
	if imagePath == "" {
		return errors.New("--image is required")
	}

	session, err := sessionFromFlags(cmd)
	if err != nil {
		return err
	}

	cfg := config.Load()
	threshold := cfg.Matching.Threshold
	if cmd.Flags().Changed("threshold") {
		threshold = mustGetFloat64(cmd, "threshold")
	}
	if err := attendance.ValidateThreshold(threshold); err != nil {
		return err
	}

	data, err := os.ReadFile(imagePath)
	if err != nil {
		return fmt.Errorf("reading image: %w", err)
	}

	closeBackend, err := initBackend(cfg)
	if err != nil {
		return err
	}
	defer closeBackend()

	ctx := cmd.Context()
	svc, err := newService(ctx, cfg)
	if err != nil {
		return err
	}

	det, err := fingerprint.NewEmbeddingClient(cfg.Embedding).DetectFaces(ctx, data)
	if err != nil {
		return err
	}

	outcome, err := svc.MarkFromFrame(ctx, det.Probes, session, threshold)
	if err != nil {
		return err
	}

	if jsonOutput {
		return outputJSON(outcome)
	}

	fmt.Println(outcome.Message())
	for _, e := range outcome.Entries {
		switch e.Status {
		case attendance.EntryUnrecognized:
			fmt.Printf("  face %d: not recognized (best %.3f)\n", e.ProbeIndex+1, e.Similarity)
		default:
			fmt.Printf("  face %d: %s %s (%s, %.3f)\n", e.ProbeIndex+1, e.IdentityID, e.DisplayName, e.Status, e.Similarity)
		}
	}
	return nil
}
