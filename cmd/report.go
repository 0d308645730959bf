package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database"
)

var reportCmd = &cobra.Command{
	Use:   "report <student-id>",
	Short: "Show the attendance history of a student",
	Args:  cobra.ExactArgs(1),
	RunE:  runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().Bool("json", false, "Output as JSON")
}

func runReport(cmd *cobra.Command, args []string) error {
	jsonOutput := mustGetBool(cmd, "json")
	ctx := cmd.Context()
	cfg := config.Load()

	closeBackend, err := initBackend(cfg)
	if err != nil {
		return err
	}
	defer closeBackend()

	reader, err := database.GetIdentityReader(ctx)
	if err != nil {
		return err
	}
	store, err := database.GetAttendanceStore(ctx)
	if err != nil {
		return err
	}

	identity, err := reader.Get(ctx, args[0])
	if err != nil {
		return err
	}
	summary, err := store.Summary(ctx, identity.ID)
	if err != nil {
		return err
	}

	if jsonOutput {
		return outputJSON(summary)
	}

	fmt.Printf("%s  %s\n", identity.ID, identity.DisplayName)
	fmt.Printf("Attendance: %d/%d (%.1f%%)\n\n", summary.Present, summary.Total, summary.Percentage)
	for _, rec := range summary.Records {
		fmt.Printf("  %s  period %-2d  %-12s %-8s %s\n",
			rec.SessionDate.Format(time.DateOnly), rec.Period, rec.Subject, rec.Status, rec.FacultyID)
	}
	return nil
}
