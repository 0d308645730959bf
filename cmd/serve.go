package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/fingerprint"
	"github.com/kozaktomas/face-attendance/internal/logger"
	"github.com/kozaktomas/face-attendance/internal/schedule"
	"github.com/kozaktomas/face-attendance/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	Long: `Start the Face Attendance HTTP API.

Without a database the server still starts, but attendance endpoints
answer 503. With SCHEDULE_FILE set, every period of the timetable is
closed automatically at its end time.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 0, "Port to listen on (overrides WEB_PORT)")
	serveCmd.Flags().String("host", "", "Host to bind to (overrides WEB_HOST)")
	serveCmd.Flags().String("schedule", "", "YAML timetable (overrides SCHEDULE_FILE)")
}

// startScheduler loads the timetable and starts automatic session close.
func startScheduler(path string, svc *attendance.Service) (*schedule.Scheduler, error) {
	tt, err := schedule.Load(path)
	if err != nil {
		return nil, err
	}
	sched, err := schedule.New(tt, svc, logger.Named("schedule"))
	if err != nil {
		return nil, err
	}
	sched.Start()
	fmt.Printf("Automatic session close enabled for %d period(s)\n", sched.Jobs())
	return sched, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	if port := mustGetInt(cmd, "port"); port > 0 {
		cfg.Web.Port = port
	}
	if host := mustGetString(cmd, "host"); host != "" {
		cfg.Web.Host = host
	}
	if path := mustGetString(cmd, "schedule"); path != "" {
		cfg.Schedule.File = path
	}
	log := logger.Named("serve")

	var deps web.Deps
	deps.Detector = fingerprint.NewEmbeddingClient(cfg.Embedding)

	if cfg.Database.Configured() {
		fmt.Printf("Connecting to %s database...\n", cfg.Database.Driver)
		closeBackend, err := initBackend(cfg)
		if err != nil {
			return err
		}
		defer closeBackend()

		svc, err := newService(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		deps.Service = svc

		if snap, err := svc.Gallery().Snapshot(cmd.Context()); err != nil {
			log.Warn().Err(err).Msg("initial gallery load failed")
		} else {
			fmt.Printf("Gallery loaded with %d identities\n", snap.Size())
		}

		if cfg.Schedule.File != "" {
			sched, err := startScheduler(cfg.Schedule.File, svc)
			if err != nil {
				return fmt.Errorf("starting scheduler: %w", err)
			}
			defer sched.Stop()
		}
	} else {
		log.Warn().Msg("no database configured, attendance endpoints will answer 503")
	}

	server := web.NewServer(cfg, deps)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting Face Attendance API on http://%s:%d\n", cfg.Web.Host, cfg.Web.Port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
