package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/agenthands/inquest/internal/app"
	"github.com/agenthands/inquest/internal/config"
	"github.com/agenthands/inquest/internal/logger"
	"github.com/agenthands/inquest/internal/server"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "inquest",
	Short: "Interrogation knowledge-graph service",
	Long: `inquest records question/answer pairs of an interrogation, builds a
knowledge graph of the people, places and times mentioned, and suggests
follow-up questions that target gaps and contradictions.`,
	SilenceUsage: true,
	RunE:         runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Rebuild a session graph from its transcript",
	RunE: func(cmd *cobra.Command, args []string) error {
		session, _ := cmd.Flags().GetString("session")
		return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
			if _, ok := a.Transcript.Session(session); !ok {
				return fmt.Errorf("session %q not found", session)
			}
			res, err := a.Investigation.Rebuild(ctx, session)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "replayed %d episodes (%d degraded)\n", res.Episodes, res.Degraded)
			return nil
		})
	},
}

var transcriptCmd = &cobra.Command{
	Use:   "transcript",
	Short: "Print the transcript of a session",
	RunE: func(cmd *cobra.Command, args []string) error {
		session, _ := cmd.Flags().GetString("session")
		return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
			if _, ok := a.Transcript.Session(session); !ok {
				return fmt.Errorf("session %q not found", session)
			}
			return a.Transcript.Export(session, cmd.OutOrStdout())
		})
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.toml (default $CONFIG_PATH or config/config.toml)")
	for _, c := range []*cobra.Command{replayCmd, transcriptCmd} {
		c.Flags().String("session", "", "session id")
		_ = c.MarkFlagRequired("session")
	}
	rootCmd.AddCommand(serveCmd, replayCmd, transcriptCmd)
}

func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		path = "config/config.toml"
	}

	cfg := config.Default()
	if _, err := os.Stat(path); err == nil {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else if configPath != "" {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	cfg.ApplyEnv()
	return cfg, cfg.Validate()
}

func withApp(ctx context.Context, fn func(context.Context, *app.App) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := logger.New(cfg.Logging)
	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(context.Background()); err != nil {
			log.WithError(err).Warn("shutdown incomplete")
		}
	}()
	return fn(ctx, a)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return withApp(ctx, func(ctx context.Context, a *app.App) error {
		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", a.Config.Server.Port),
			Handler:           server.NewServer(a).SetupRouter(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			a.Log.WithField("addr", srv.Addr).Info("Starting server")
			errCh <- srv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		case <-ctx.Done():
		}

		a.Log.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}

func main() {
	if err := godotenv.Load(); err != nil {
		logrus.Debug("No .env file found, using defaults")
	}

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
