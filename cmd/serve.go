package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/apexwatch/face-enroll/internal/batch"
	"github.com/apexwatch/face-enroll/internal/config"
	"github.com/apexwatch/face-enroll/internal/enrollment"
	"github.com/apexwatch/face-enroll/internal/preview"
	"github.com/apexwatch/face-enroll/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the enrollment console server",
	Long: `Start the batch enrollment web server.
The server exposes the upload queue, the processing controls, and a live
event stream for the security console front-end.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "Listen address (defaults to LISTEN_ADDR or :8484)")
}

// displayAddr turns a bind address into something printable as a URL.
func displayAddr(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "localhost" + addr
	}
	return addr
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	if addr := mustGetString(cmd, "addr"); addr != "" {
		cfg.Server.Addr = addr
	}

	if cfg.Enrollment.URL == "" {
		return errors.New("ENROLL_API_URL environment variable is required")
	}

	client, err := enrollment.New(cfg.Enrollment.URL)
	if err != nil {
		return fmt.Errorf("invalid enrollment service URL: %w", err)
	}

	// A dead enrollment service should not block the console; items will
	// fail with a clear message until it comes back.
	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := client.Ping(pingCtx); err != nil {
		config.Logger.Warn().Err(err).Msg("enrollment service not reachable yet")
	}
	pingCancel()

	store, err := preview.NewStore(cfg.Pipeline.PreviewDir, cfg.Pipeline.PreviewMaxEdge)
	if err != nil {
		return fmt.Errorf("failed to create preview store: %w", err)
	}

	queue := batch.NewQueue()
	pipeline := batch.NewController(queue, batch.NewValidator(queue, store), client, batch.Options{
		ItemDelay:   cfg.Pipeline.ItemDelay,
		CallTimeout: cfg.Enrollment.Timeout,
	})

	server := web.NewServer(cfg, pipeline)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := pipeline.Close(shutdownCtx); err != nil {
			fmt.Printf("Error stopping pipeline: %v\n", err)
		}
		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
		if err := store.Close(); err != nil {
			fmt.Printf("Error removing previews: %v\n", err)
		}
	}()

	fmt.Printf("Starting enrollment console on http://%s\n", displayAddr(cfg.Server.Addr))
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
