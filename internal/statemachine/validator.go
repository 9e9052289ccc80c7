package statemachine

import (
	"strings"
	"time"

	"github.com/agentsys/orchestrator/internal/eventlog"
	"github.com/agentsys/orchestrator/internal/layout"
	"github.com/agentsys/orchestrator/internal/registry"
)

// evidenceKeywords and hedgingPhrases ground the "message content" layer
// (spec §4.G layer 3).
var evidenceKeywords = []string{"created", "modified", "fixed", "verified", "added", "updated", "implemented"}
var hedgingPhrases = []string{"i think i", "probably done", "should be complete", "i believe this works"}

const minMessageLength = 15

// typeRequirement is the "type-specific rules" layer (spec §4.G layer 2):
// a predicate over (findings, modifiedFiles) that must hold for an agent
// of the given type to be considered genuinely complete.
type typeRequirement func(findingsCount int, categoryCounts map[string]int, modifiedFiles []string) (bool, string)

var typeRequirements = map[string]typeRequirement{
	"investigator": func(_ int, categories map[string]int, _ []string) (bool, string) {
		if categories["insight"] < 1 {
			return false, "investigator completed with zero 'insight' findings"
		}
		return true, ""
	},
	"fixer": func(_ int, _ map[string]int, files []string) (bool, string) {
		if len(files) < 1 {
			return false, "fixer completed with no modified files"
		}
		return true, ""
	},
	"builder": func(_ int, _ map[string]int, files []string) (bool, string) {
		if len(files) < 1 {
			return false, "builder completed with no modified files"
		}
		return true, ""
	},
}

// Validate runs the Four-Layer Completion Validator (spec §4.G) against an
// agent that just transitioned Active→Terminal, reading its workspace
// evidence (findings/progress logs, modified-file list) from disk.
func Validate(workspace string, agent registry.Agent) registry.ValidationVerdict {
	var warnings, blocking []string
	confidence := 1.0

	findingsRes, _ := eventlog.NewReader(layout.FindingsLogPath(workspace, agent.ID)).Read(eventlog.ReadOptions{})
	progressRes, _ := eventlog.NewReader(layout.ProgressLogPath(workspace, agent.ID)).Read(eventlog.ReadOptions{})

	findings := decodeFindings(valueOr(findingsRes))
	progressEntries := decodeProgress(valueOr(progressRes))
	categoryCounts := make(map[string]int)
	for _, f := range findings {
		categoryCounts[f.FindingType]++
	}

	// Layer 1: workspace evidence.
	if len(agent.ModifiedFiles) == 0 && len(findings) == 0 && len(progressEntries) <= 1 {
		warnings = append(warnings, "no workspace evidence: zero modified files, zero findings, minimal progress history")
		confidence -= 0.3
	}

	// Layer 2: type-specific rules.
	if req, ok := typeRequirements[agent.Type]; ok {
		if ok, reason := req(len(findings), categoryCounts, agent.ModifiedFiles); !ok {
			blocking = append(blocking, reason)
			confidence -= 0.4
		}
	}

	// Layer 3: message content.
	lowerMsg := strings.ToLower(agent.Message)
	hasEvidenceWord := false
	for _, kw := range evidenceKeywords {
		if strings.Contains(lowerMsg, kw) {
			hasEvidenceWord = true
			break
		}
	}
	if !hasEvidenceWord {
		warnings = append(warnings, "completion message contains no evidence keywords")
		confidence -= 0.1
	}
	for _, hedge := range hedgingPhrases {
		if strings.Contains(lowerMsg, hedge) {
			blocking = append(blocking, "completion message contains hedging phrase: "+hedge)
			confidence -= 0.3
		}
	}
	if len(agent.Message) < minMessageLength {
		warnings = append(warnings, "completion message is suspiciously short")
		confidence -= 0.1
	}

	// Layer 4: progress pattern.
	if suddenJump(progressEntries) {
		blocking = append(blocking, "progress jumped from 0 to 100 with no intermediate updates")
		confidence -= 0.3
	}
	if agent.TerminalAt != nil && agent.TerminalAt.Sub(agent.StartedAt) < time.Second {
		warnings = append(warnings, "suspiciously short elapsed wall time before completion")
		confidence -= 0.1
	}

	if confidence < 0 {
		confidence = 0
	}
	return registry.ValidationVerdict{Confidence: confidence, Warnings: warnings, Blocking: blocking}
}

// suddenJump flags a 0→100 jump with no intermediate updates. A single
// progress entry is compared against an implicit 0 baseline, since an
// agent that reports only once, straight to 100%, is the same "no
// intermediate updates" case as a two-entry 0-then-100 log.
func suddenJump(entries []eventlog.ProgressEntry) bool {
	if len(entries) == 0 {
		return false
	}
	if len(entries) == 1 {
		return entries[0].Progress == 100
	}
	first, last := entries[0], entries[len(entries)-1]
	return len(entries) == 2 && first.Progress == 0 && last.Progress == 100
}

func valueOr(res *eventlog.ReadResult) []string {
	if res == nil {
		return nil
	}
	return res.Lines
}
