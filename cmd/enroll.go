package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/facematch"
	"github.com/kozaktomas/face-attendance/internal/fingerprint"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll",
	Short: "Enrol students from photos",
	Long: `Enrol students by computing a face embedding from one photo each.
Every photo must contain exactly one face. Re-enrolling an ID replaces
its name and embedding.

Examples:
  # Single student
  face-attendance enroll --id 21CS042 --name "Jana Dvořáková" --image jana.jpg

  # Bulk from a roster file
  face-attendance enroll --roster students.yaml --concurrency 8`,
	RunE: runEnroll,
}

func init() {
	rootCmd.AddCommand(enrollCmd)

	enrollCmd.Flags().String("id", "", "Student ID")
	enrollCmd.Flags().String("name", "", "Display name")
	enrollCmd.Flags().String("image", "", "Photo with exactly one face")
	enrollCmd.Flags().String("roster", "", "YAML roster for bulk enrolment")
	enrollCmd.Flags().Int("concurrency", constants.WorkerPoolSize, "Number of parallel workers")
	enrollCmd.Flags().Bool("json", false, "Output as JSON instead of progress bar")
}

// EnrollResult summarizes an enrolment run
type EnrollResult struct {
	Success    bool              `json:"success"`
	Enrolled   int               `json:"enrolled"`
	Failed     map[string]string `json:"failed,omitempty"`
	DurationMs int64             `json:"duration_ms"`
}

func rosterFromFlags(cmd *cobra.Command) (*Roster, error) {
	if path := mustGetString(cmd, "roster"); path != "" {
		return loadRoster(path)
	}
	entry := RosterEntry{
		ID:    mustGetString(cmd, "id"),
		Name:  mustGetString(cmd, "name"),
		Image: mustGetString(cmd, "image"),
	}
	if entry.ID == "" || entry.Name == "" || entry.Image == "" {
		return nil, errors.New("either --roster or all of --id, --name and --image are required")
	}
	return &Roster{Students: []RosterEntry{entry}}, nil
}

func enrollOne(ctx context.Context, client *fingerprint.EmbeddingClient, writer database.IdentityWriter, entry RosterEntry) error {
	data, err := os.ReadFile(entry.Image)
	if err != nil {
		return fmt.Errorf("reading image: %w", err)
	}
	embedding, model, err := client.DetectSingleFace(ctx, data)
	if err != nil {
		return err
	}
	if err := facematch.NewScorer(len(embedding)).Validate(embedding); err != nil {
		return err
	}
	return writer.Save(ctx, database.Identity{
		ID:          entry.ID,
		DisplayName: entry.Name,
		Embedding:   embedding,
		Model:       model,
	})
}

func runEnroll(cmd *cobra.Command, args []string) error {
	concurrency := max(mustGetInt(cmd, "concurrency"), 1)
	jsonOutput := mustGetBool(cmd, "json")

	roster, err := rosterFromFlags(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	cfg := config.Load()
	startTime := time.Now()

	closeBackend, err := initBackend(cfg)
	if err != nil {
		return err
	}
	defer closeBackend()

	writer, err := database.GetIdentityWriter(ctx)
	if err != nil {
		return fmt.Errorf("failed to get identity writer: %w", err)
	}
	client := fingerprint.NewEmbeddingClient(cfg.Embedding)

	var bar *progressbar.ProgressBar
	if !jsonOutput {
		bar = progressbar.NewOptions(len(roster.Students),
			progressbar.OptionSetDescription("Enrolling"),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("students"),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionFullWidth(),
		)
	}

	var enrolled int64
	var mu sync.Mutex
	failed := make(map[string]string)
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for _, entry := range roster.Students {
		wg.Add(1)
		go func(entry RosterEntry) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			if err := enrollOne(ctx, client, writer, entry); err != nil {
				mu.Lock()
				failed[entry.ID] = err.Error()
				mu.Unlock()
			} else {
				atomic.AddInt64(&enrolled, 1)
			}

			if bar != nil {
				bar.Add(1)
			}
		}(entry)
	}
	wg.Wait()

	result := EnrollResult{
		Success:    len(failed) == 0,
		Enrolled:   int(enrolled),
		Failed:     failed,
		DurationMs: time.Since(startTime).Milliseconds(),
	}
	if jsonOutput {
		return outputJSON(result)
	}

	fmt.Printf("\n\nEnrolled %d of %d student(s) in %s\n", result.Enrolled, len(roster.Students), time.Since(startTime).Round(time.Millisecond))
	for id, msg := range failed {
		fmt.Printf("  %s: %s\n", id, msg)
	}
	if !result.Success {
		return fmt.Errorf("%d student(s) failed to enrol", len(failed))
	}
	return nil
}
