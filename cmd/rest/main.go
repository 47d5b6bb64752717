package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"winnow-be/internal/bootstrap"
	"winnow-be/internal/config"
	"winnow-be/internal/pkg/logger"
	"winnow-be/internal/server"
	"winnow-be/internal/tracer"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const mainModule = "Main"

var version = "dev"

var rootCmd = &cobra.Command{
	Use:           "winnow",
	Short:         "Winnow backend: collections, keyword lists and tool script runs",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return serve(cmd.Context(), overridesFrom(viper.GetViper()))
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf("Winnow v%s\n", version)
	},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("port", "", "Port to listen on [default: 8001]")
	flags.String("storage", "", "Storage root holding the data directory")
	flags.String("spa", "", "Directory of the built web client [default: ./www-data]")
	flags.String("log-file", "", "Log file path [default: <storage>/logs/winnow.log]")
	flags.Bool("dev", false, "Development mode: storage in the working directory, console logs")

	bindFlags(viper.GetViper(), rootCmd)
	rootCmd.AddCommand(versionCmd)
}

// bindFlags lets every flag also be set as WINNOW_<FLAG>.
func bindFlags(v *viper.Viper, cmd *cobra.Command) {
	v.SetEnvPrefix("WINNOW")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	for _, name := range []string{"port", "storage", "spa", "log-file", "dev"} {
		if err := v.BindPFlag(name, cmd.PersistentFlags().Lookup(name)); err != nil {
			fmt.Fprintf(os.Stderr, "Error binding %s flag: %v\n", name, err)
			os.Exit(1)
		}
	}
}

func overridesFrom(v *viper.Viper) config.Overrides {
	return config.Overrides{
		Port:        v.GetString("port"),
		StorageRoot: v.GetString("storage"),
		SpaPath:     v.GetString("spa"),
		LogFile:     v.GetString("log-file"),
		Dev:         v.GetBool("dev"),
	}
}

func serve(ctx context.Context, overrides config.Overrides) error {
	cfg := config.LoadWith(overrides)

	if err := os.MkdirAll(filepath.Dir(cfg.LogFile()), 0o755); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}
	sysLogger := logger.NewZapLogger(cfg.LogFile(), cfg.IsProduction())
	defer sysLogger.Sync()

	shutdownTracer := tracer.InitTracer(cfg.Tracing, sysLogger)
	defer shutdownTracer(context.Background())

	container, err := bootstrap.NewContainer(cfg, sysLogger, bootstrap.Options{})
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	defer container.Close()

	if err := container.Start(ctx); err != nil {
		return fmt.Errorf("load session document: %w", err)
	}

	srv := server.New(cfg, container)
	printBanner(cfg)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Run() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	sysLogger.Info(mainModule, "Shutting down", nil)
	// A launch request stays open until its run ends; end the run first so
	// the server can drain.
	container.CancelActiveRun()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}

func printBanner(cfg *config.Config) {
	color.Cyan("Winnow v%s", version)
	color.Green("  listening on http://localhost:%s", cfg.App.Port)
	fmt.Printf("  storage     %s\n", cfg.Storage.Root)
	fmt.Printf("  web client  %s\n", cfg.App.SpaPath)
	fmt.Printf("  tool        %s\n", cfg.Tool.Command)
	if cfg.App.Dev {
		color.Yellow("  development mode")
	}
}
