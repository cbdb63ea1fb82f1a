// Command bookbot is a book-recommendation assistant for the terminal.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/bookgraph/pkg/config"
)

var (
	// Global flags
	configPath string
	verbose    bool

	settings config.Settings
	logger   *slog.Logger
	closers  []func(context.Context) error
)

var rootCmd = &cobra.Command{
	Use:   "bookbot",
	Short: "Conversational book recommendations backed by a real catalog",
	Long: `bookbot answers questions about books. Every title it recommends is
confirmed against the book catalog; titles that cannot be confirmed are
removed from the reply.

Configuration comes from --config (YAML or JSON), a .env file and the
environment (OPENAI_API_KEY, GEMINI_API_KEY, TAVILY_API_KEY,
NAVER_CLIENT_ID, NAVER_CLIENT_SECRET, REDIS_URL, BOOKBOT_*).`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		settings, err = config.Resolve(configPath)
		if err != nil {
			return err
		}

		var closeLog func(context.Context) error
		logger, closeLog = newLogger(settings.Log, verbose, cmd.ErrOrStderr())
		slog.SetDefault(logger)
		closers = append(closers, closeLog)

		closers = append(closers, initMetrics(logger))

		shutdown, err := initTracing(cmd.Context(), settings.Telemetry.OTLPEndpoint)
		if err != nil {
			logger.Warn("tracing disabled", slog.String("error", err.Error()))
			return nil
		}
		closers = append(closers, shutdown)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (.yaml, .yml or .json)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(askCmd, chatCmd, traceCmd)
}

// execute runs the command line and then releases everything the pre-run
// hook opened, whether or not the command failed.
func execute(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	shutdown()
	return err
}

// shutdown runs the closers in reverse order. Cancellation of the command
// context must not cut the flush short.
func shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](ctx); err != nil && logger != nil {
			logger.Warn("shutdown", slog.String("error", err.Error()))
		}
	}
	closers = nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := execute(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
