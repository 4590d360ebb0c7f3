// Command agentgate serves the agent gateway: an HTTP/SSE front for deployed
// agents running on a managed agent-engine backend.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hupe1980/agentgate"
	"github.com/hupe1980/agentgate/config"
	"github.com/hupe1980/agentgate/engine"
	"github.com/hupe1980/agentgate/engine/vertex"
	"github.com/hupe1980/agentgate/logging"
	"github.com/hupe1980/agentgate/registry"
	"github.com/hupe1980/agentgate/server"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "agentgate",
		Short:         "HTTP/SSE gateway for managed agent engines",
		Version:       agentgate.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(newServeCmd())
	return cmd
}

func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the gateway server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				configPath = os.Getenv("AGENTGATE_CONFIG")
			}
			if configPath == "" {
				configPath = "config.yaml"
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to the gateway config file (default $AGENTGATE_CONFIG or config.yaml)")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config) error {
	logger := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stdout)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Roster entries may override the global project/location; the factory
	// resolves that per agent so every entry gets the right regional endpoint.
	factory := func(ctx context.Context, agent config.Agent) (engine.Client, error) {
		project := agent.ProjectID
		if project == "" {
			project = cfg.GoogleCloud.Project
		}
		location := agent.Location
		if location == "" {
			location = cfg.GoogleCloud.Location
		}
		return vertex.New(ctx, project, location, func(o *vertex.Options) {
			o.Logger = logger
		})
	}

	reg := registry.New(cfg, factory, func(o *registry.Options) { o.Logger = logger })
	defer func() {
		if err := reg.Close(); err != nil {
			logger.Warn("failed to close registry", "error", err)
		}
	}()

	base, err := vertex.New(ctx, cfg.GoogleCloud.Project, cfg.GoogleCloud.Location, func(o *vertex.Options) {
		o.Logger = logger
	})
	if err != nil {
		return fmt.Errorf("agent engine credentials: %w", err)
	}
	defer base.Close()

	srv := server.New(cfg, reg, func(o *server.Options) {
		o.Logger = logger
		o.HealthCheck = base.Verify
	})

	logger.Info("starting gateway", "version", agentgate.Version, "agents", len(cfg.Agents))
	return srv.Run(ctx)
}
