package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/database"
)

// mustGetBool gets a bool flag value or panics if the flag doesn't exist.
// This is appropriate for flags defined in init() - errors indicate programming bugs.
func mustGetBool(cmd *cobra.Command, name string) bool {
	val, err := cmd.Flags().GetBool(name)
	if err != nil {
		panic(fmt.Sprintf("flag error for --%s: %v", name, err))
	}
	return val
}

// mustGetInt gets an int flag value or panics if the flag doesn't exist.
func mustGetInt(cmd *cobra.Command, name string) int {
	val, err := cmd.Flags().GetInt(name)
	if err != nil {
		panic(fmt.Sprintf("flag error for --%s: %v", name, err))
	}
	return val
}

// mustGetString gets a string flag value or panics if the flag doesn't exist.
func mustGetString(cmd *cobra.Command, name string) string {
	val, err := cmd.Flags().GetString(name)
	if err != nil {
		panic(fmt.Sprintf("flag error for --%s: %v", name, err))
	}
	return val
}

// mustGetFloat64 gets a float64 flag value or panics if the flag doesn't exist.
func mustGetFloat64(cmd *cobra.Command, name string) float64 {
	val, err := cmd.Flags().GetFloat64(name)
	if err != nil {
		panic(fmt.Sprintf("flag error for --%s: %v", name, err))
	}
	return val
}

// addSessionFlags registers the flags that identify a session.
func addSessionFlags(cmd *cobra.Command) {
	cmd.Flags().Int("period", 0, "Period number (required)")
	cmd.Flags().String("faculty", "", "Faculty ID (required)")
	cmd.Flags().String("subject", "", "Subject (required)")
	cmd.Flags().String("date", "", "Session date as YYYY-MM-DD (defaults to today)")
}

// sessionFromFlags builds a validated session from the flags of addSessionFlags.
func sessionFromFlags(cmd *cobra.Command) (attendance.Session, error) {
	date := database.SessionDate(time.Now())
	if s := mustGetString(cmd, "date"); s != "" {
		parsed, err := time.Parse(time.DateOnly, s)
		if err != nil {
			return attendance.Session{}, fmt.Errorf("%w: date must be YYYY-MM-DD", attendance.ErrInvalidSession)
		}
		date = parsed
	}

	session := attendance.Session{
		FacultyID: strings.TrimSpace(mustGetString(cmd, "faculty")),
		Subject:   strings.TrimSpace(mustGetString(cmd, "subject")),
		Date:      date,
		Period:    mustGetInt(cmd, "period"),
	}
	if err := session.Validate(); err != nil {
		return attendance.Session{}, err
	}
	return session, nil
}
