package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/coursewire/coursewire-go/alert"
	"github.com/coursewire/coursewire-go/config"
	"github.com/coursewire/coursewire-go/session"
	"github.com/coursewire/coursewire-go/types"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the notification inbox live",
	Long: `Hydrates the inbox, opens the push channel, and prints the unread
badge and incoming notifications until interrupted.

With metrics.listen_addr configured, Prometheus metrics are exposed on
/metrics for the lifetime of the watch.`,
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg := config.GetClientConfig()

	sess := session.New(session.Options{
		API:     cfg.API,
		Channel: cfg.Channel,
		Tokens:  credentialStore(),
		Alerter: &alert.LogAlerter{},
	})
	defer sess.Close()

	if cfg.Metrics.ListenAddr != "" {
		go serveMetrics(cfg.Metrics.ListenAddr)
	}

	sess.OnChange(func() {
		printBadge(sess)
	})

	if err := sess.Start(context.Background()); err != nil {
		return fmt.Errorf("starting session (try 'coursewire login'): %w", err)
	}

	for _, n := range sess.Notifications() {
		printNotification(n)
	}
	printBadge(sess)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	fmt.Printf("\nReceived %s, shutting down...\n", sig)
	return nil
}

func printBadge(sess *session.Session) {
	indicator := "live"
	if sess.ConnectionState() != types.ConnectionConnected {
		indicator = "stale"
	}
	fmt.Printf("[%s/%s] %d unread\n", sess.ConnectionState(), indicator, sess.UnreadCount())
}

func printNotification(n types.Notification) {
	marker := "*"
	if n.Read {
		marker = " "
	}
	fmt.Printf(" %s #%-6d %-18s %s - %s\n", marker, n.ID, n.Type, n.Title, n.Message)
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	log.Info().Str("addr", addr).Msg("Serving metrics")
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Warn().Err(err).Msg("Metrics listener stopped")
	}
}
