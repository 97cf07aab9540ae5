package cli

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/coursewire/coursewire-go/stubserver"
)

var (
	devListenAddr   string
	devToken        string
	devDBPath       string
	devFeedInterval time.Duration
)

var devCmd = &cobra.Command{
	Use:   "dev",
	Short: "Start a local stub notification server",
	Long: `Starts a self-contained notification server for local development:
the hydration endpoint, the read-state mutations, and a websocket push
channel, backed by SQLite. A demo feed pushes a notification on an interval.

Point the client at it with:
  COURSEWIRE_API_URL=http://localhost:8734 COURSEWIRE_CHANNEL_URL=ws://localhost:8734/ws coursewire watch`,
	RunE: runDev,
}

func init() {
	devCmd.Flags().StringVar(&devListenAddr, "listen", "localhost:8734", "address to listen on")
	devCmd.Flags().StringVar(&devToken, "token", "", "bearer token to require (empty disables auth)")
	devCmd.Flags().StringVar(&devDBPath, "db", ":memory:", "SQLite database path")
	devCmd.Flags().DurationVar(&devFeedInterval, "feed", 15*time.Second, "demo feed interval (0 disables)")
}

func runDev(cmd *cobra.Command, args []string) error {
	srv, err := stubserver.New(devDBPath, devToken)
	if err != nil {
		return err
	}
	defer srv.Close()

	stop := make(chan struct{})
	defer close(stop)
	if devFeedInterval > 0 {
		srv.StartDemoFeed(devFeedInterval, stop)
	}

	httpServer := &http.Server{
		Addr:    devListenAddr,
		Handler: srv.Handler(),
	}

	errChan := make(chan error, 1)
	go func() {
		log.Info().Str("addr", devListenAddr).Msg("Stub notification server listening")
		errChan <- httpServer.ListenAndServe()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		fmt.Printf("\nReceived %s, shutting down...\n", sig)
		httpServer.Close()
	case err := <-errChan:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	}
	return nil
}
