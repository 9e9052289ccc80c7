package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/agentsys/orchestrator/internal/config"
	"github.com/agentsys/orchestrator/internal/daemon"
	"github.com/agentsys/orchestrator/internal/processhost"
	"github.com/agentsys/orchestrator/internal/registry"
	"github.com/agentsys/orchestrator/internal/statemachine"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the liveness daemon in the foreground (spec §5 safety net)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			cwd, err := os.Getwd()
			if err != nil {
				return err
			}
			base := config.ResolvePlaceholder(cfg.WorkspaceBase, cwd)

			store := registry.NewStore(cfg.LockTimeout)
			host := processhost.New(cfg)
			sm := statemachine.New(store, host, cfg.StabilizationWait, cfg.TerminateGrace)
			d := daemon.New(store, sm, base, cfg.InactivityTimeout)

			if err := d.Start(cfg.LivenessSweepCron); err != nil {
				return err
			}
			fmt.Printf("agentctl: liveness daemon running (sweep=%s, inactivity_timeout=%s)\n", cfg.LivenessSweepCron, cfg.InactivityTimeout)

			sig := make(chan os.Signal, 1)
			signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
			<-sig

			d.Stop()
			return nil
		},
	}
}
