package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/config"
)

var endSessionCmd = &cobra.Command{
	Use:   "end-session",
	Short: "Mark every student without a record absent",
	Long: `Close a session: every enrolled student who has no attendance record
for the date and period is marked absent. Running it again is harmless.

Example:
  face-attendance end-session --period 2 --faculty F01 --subject Physics --date 2026-10-15`,
	RunE: runEndSession,
}

func init() {
	rootCmd.AddCommand(endSessionCmd)

	addSessionFlags(endSessionCmd)
	endSessionCmd.Flags().Bool("json", false, "Output as JSON")
}

func runEndSession(cmd *cobra.Command, args []string) error {
	jsonOutput := mustGetBool(cmd, "json")

	session, err := sessionFromFlags(cmd)
	if err != nil {
		return err
	}

	cfg := config.Load()
	closeBackend, err := initBackend(cfg)
	if err != nil {
		return err
	}
	defer closeBackend()

	svc, err := newService(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	res, err := svc.EndSession(cmd.Context(), session)
	if err != nil {
		return err
	}

	if jsonOutput {
		return outputJSON(res)
	}
	fmt.Println(res.Message())
	return nil
}
