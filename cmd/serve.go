package main

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"

	"github.com/xhad/bloodhound/server"
)

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and WebSocket API",
		Example: heredoc.Doc(`
			$ bloodhound serve
			$ bloodhound serve --port 9000 --config ./config.yaml
		`),
		Args: cobra.NoArgs,
		RunE: runServe,
	}

	cmd.Flags().Int("port", 0, "Port to listen on (overrides config)")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if port, _ := cmd.Flags().GetInt("port"); port != 0 {
		cfg.Server.Port = port
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	srv := server.NewServer(server.Config{
		Mode:              cfg.Server.Mode,
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		Burst:             cfg.RateLimit.Burst,
		Logger:            a.log,
	}, a.engine, a.metrics)

	addr := net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port))
	if err := srv.Run(ctx, addr); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}
