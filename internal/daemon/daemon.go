// Package daemon implements the optional liveness safety net (spec §5):
// a periodic sweep over every known task registry that drives dead-process
// agents through the terminal transition, plus an inactivity force-
// terminate for agents that have gone quiet past a timeout.
package daemon

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/agentsys/orchestrator/internal/layout"
	"github.com/agentsys/orchestrator/internal/logging"
	"github.com/agentsys/orchestrator/internal/registry"
	"github.com/agentsys/orchestrator/internal/statemachine"
)

// Daemon runs the robfig/cron-scheduled registry sweep. It holds no
// long-lived locks — each tick opens and releases the Locked Registry
// Store per task, same as any other caller (spec §5).
type Daemon struct {
	store     *registry.Store
	statemach *statemachine.Controller
	base      string

	inactivityTimeout time.Duration

	cron *cron.Cron
}

// New builds a Daemon that sweeps tasks under base.
func New(store *registry.Store, statemach *statemachine.Controller, base string, inactivityTimeout time.Duration) *Daemon {
	return &Daemon{
		store:             store,
		statemach:         statemach,
		base:              base,
		inactivityTimeout: inactivityTimeout,
		cron:              cron.New(),
	}
}

// Start schedules the sweep per schedule (spec §5 default "@every 60s") and
// begins running it in the background. Call Stop to shut it down.
func (d *Daemon) Start(schedule string) error {
	_, err := d.cron.AddFunc(schedule, d.sweepAll)
	if err != nil {
		return fmt.Errorf("schedule liveness sweep: %w", err)
	}
	d.cron.Start()
	return nil
}

// Stop halts the scheduler, waiting for any in-flight sweep to finish.
func (d *Daemon) Stop() {
	ctx := d.cron.Stop()
	<-ctx.Done()
}

// sweepAll scans every task directory under base, reconciling drift and
// force-terminating agents past the inactivity timeout.
func (d *Daemon) sweepAll() {
	taskDirs, err := filepath.Glob(filepath.Join(d.base, "*"))
	if err != nil {
		logging.Errorf("daemon: sweep glob failed: %v", err)
		return
	}

	for _, dir := range taskDirs {
		if filepath.Base(dir) == "registry" {
			continue // the global registry directory, not a task
		}
		d.sweepTask(dir)
	}
}

func (d *Daemon) sweepTask(workspace string) {
	taskRegistryPath := layout.TaskRegistryPath(workspace)
	task, err := d.store.ReadTask(taskRegistryPath)
	if err != nil {
		return // unreadable/missing registry, not this daemon's concern
	}
	if len(task.Agents) == 0 {
		return
	}

	d.statemach.ReconcileDrift(workspace, task)

	task, err = d.store.ReadTask(taskRegistryPath)
	if err != nil {
		return
	}
	now := time.Now()
	for _, agent := range task.Agents {
		if !agent.Status.IsActive() {
			continue
		}
		if now.Sub(agent.UpdatedAt) < d.inactivityTimeout {
			continue
		}
		_, err := d.statemach.IngestProgress(workspace, statemachine.ProgressReport{
			TaskID:   task.ID,
			AgentID:  agent.ID,
			Status:   registry.StatusTerminated,
			Message:  fmt.Sprintf("force-terminated: no progress update in %s", d.inactivityTimeout),
			Progress: agent.Progress,
		})
		if err != nil {
			logging.Warnf("daemon: inactivity force-terminate failed for %s: %v", agent.ID, err)
		}
	}
}
