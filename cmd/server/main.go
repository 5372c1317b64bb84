package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"lessonplayer/internal/app"
	"lessonplayer/internal/config"
	"lessonplayer/internal/logging"
	"lessonplayer/internal/service"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const version = "0.1.0"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var projectRoot string

	cmd := &cobra.Command{
		Use:   "lessonplayer",
		Short: "Lesson player interaction tracking and completion service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), projectRoot)
		},
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&projectRoot, "root", ".", "Directory containing config/config.yaml")

	cmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and WebSocket server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), projectRoot)
		},
	})
	cmd.AddCommand(tokenCmd(&projectRoot))
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("lessonplayer version %s\n", version)
		},
	})

	return cmd
}

func tokenCmd(projectRoot *string) *cobra.Command {
	var studentID, classID string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a learner token for local testing",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*projectRoot)
			if err != nil {
				return err
			}
			auth := service.NewAuthService(service.AuthConfig{
				JWTSecret:  cfg.Auth.JWTSecret,
				LearnerTTL: cfg.Auth.LearnerTTL,
			})
			token, err := auth.GenerateLearnerToken(studentID, classID)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&studentID, "student", "", "Student id (required)")
	cmd.Flags().StringVar(&classID, "class", "", "Class id")
	_ = cmd.MarkFlagRequired("student")
	return cmd
}

func serve(ctx context.Context, projectRoot string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load(projectRoot)
	if err != nil {
		return err
	}

	log, err := logging.New(cfg.Logging.Options())
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}

	go a.RunSweeper(ctx)

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: a.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr), zap.String("version", version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down server")
	case err := <-errCh:
		if err != nil {
			log.Error("ListenAndServe failed", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := a.Close(shutdownCtx); err != nil {
		log.Warn("Pending saves did not finish", zap.Error(err))
	}

	log.Info("Server exited")
	return nil
}
