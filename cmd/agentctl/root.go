// Package cli implements agentctl, a thin operator CLI over the Tool
// Surface, for manual task/agent inspection and testing.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/agentsys/orchestrator/internal/config"
	"github.com/agentsys/orchestrator/internal/toolsurface"
)

func newSurface() (*toolsurface.Surface, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getwd: %w", err)
	}
	return toolsurface.New(cfg, cwd), nil
}

// Execute builds and runs the root agentctl command.
func Execute() error {
	root := &cobra.Command{
		Use:   "agentctl",
		Short: "Inspect and drive the agent orchestration server",
		Long:  `agentctl is a manual-testing CLI over the orchestration core's tool surface: create tasks, deploy agents, read status and output, and kill agents from the command line.`,
	}

	root.AddCommand(
		newCreateTaskCmd(),
		newDeployAgentCmd(),
		newStatusCmd(),
		newOutputCmd(),
		newKillCmd(),
		newServeCmd(),
	)

	return root.Execute()
}
