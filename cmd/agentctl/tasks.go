package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentsys/orchestrator/internal/lifecycle"
	"github.com/agentsys/orchestrator/internal/toolsurface"
)

func newCreateTaskCmd() *cobra.Command {
	var priority, clientCWD string

	cmd := &cobra.Command{
		Use:   "create-task <description>",
		Short: "Create a new orchestration task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSurface()
			if err != nil {
				return err
			}
			task, err := s.CreateTask(toolsurface.CreateTaskRequest{
				Description: args[0],
				Priority:    priority,
				ClientCWD:   clientCWD,
			})
			if err != nil {
				return err
			}
			return printJSON(task)
		},
	}

	cmd.Flags().StringVar(&priority, "priority", "", "optional priority tag")
	cmd.Flags().StringVar(&clientCWD, "client-cwd", "", "explicit client working directory, for cross-project lookup")
	return cmd
}

func newDeployAgentCmd() *cobra.Command {
	var parent string

	cmd := &cobra.Command{
		Use:   "deploy-agent <task_id> <agent_type> <prompt>",
		Short: "Deploy a new agent against an existing task",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSurface()
			if err != nil {
				return err
			}
			agent, err := s.DeployAgent(lifecycle.DeployRequest{
				TaskID:    args[0],
				AgentType: args[1],
				Prompt:    args[2],
				Parent:    parent,
			})
			if err != nil {
				return err
			}
			return printJSON(agent)
		},
	}

	cmd.Flags().StringVar(&parent, "parent", "", "parent agent id, for spawn_child-style deployments")
	return cmd
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <task_id>",
		Short: "Show a task's reconciled status, counters, and recent activity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSurface()
			if err != nil {
				return err
			}
			status, err := s.GetTaskStatus(args[0])
			if err != nil {
				return err
			}
			return printJSON(status)
		},
	}
}

func newKillCmd() *cobra.Command {
	var reason string

	cmd := &cobra.Command{
		Use:   "kill <task_id> <agent_id>",
		Short: "Terminate an agent (idempotent)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSurface()
			if err != nil {
				return err
			}
			if err := s.KillAgent(args[0], args[1], reason); err != nil {
				return err
			}
			fmt.Printf("killed %s in task %s\n", args[1], args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&reason, "reason", "manual kill via agentctl", "reason recorded in the terminal message")
	return cmd
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
