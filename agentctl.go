// Command agentctl is a thin operator CLI over the orchestration core's
// tool surface: create tasks, deploy agents, read status/output, and kill
// agents from the command line.
package main

import (
	"fmt"
	"os"

	cli "github.com/agentsys/orchestrator/cmd/agentctl"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
