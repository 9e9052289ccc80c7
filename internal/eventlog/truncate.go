package eventlog

import "strings"

// truncateResponse shrinks lines to fit within maxBytes according to mode.
// It returns the (possibly unchanged) line set and whether truncation
// actually occurred.
func truncateResponse(lines []string, maxBytes int, mode TruncateMode, signals []string) ([]string, bool) {
	if totalBytes(lines) <= maxBytes {
		return lines, false
	}

	switch mode {
	case TruncateAggressive:
		return truncateAggressive(lines, maxBytes), true
	case TruncateSummary:
		return truncateSummary(lines, maxBytes, signals), true
	default:
		return truncatePrefix(lines, maxBytes), true
	}
}

func totalBytes(lines []string) int {
	n := 0
	for _, l := range lines {
		n += len(l) + 1
	}
	return n
}

// truncatePrefix keeps as many leading lines as fit, then appends a marker.
func truncatePrefix(lines []string, maxBytes int) []string {
	budget := maxBytes - len(truncationMarker)
	if budget < 0 {
		budget = 0
	}
	var kept []string
	used := 0
	for _, l := range lines {
		if used+len(l)+1 > budget {
			break
		}
		kept = append(kept, l)
		used += len(l) + 1
	}
	return append(kept, strings.TrimSpace(truncationMarker))
}

// truncateAggressive keeps a head prefix, a small middle sample, and a tail
// suffix, splitting the byte budget roughly 50/20/30 (spec §4.B "aggressive
// mode"). It is used instead of prefix truncation, not after it.
func truncateAggressive(lines []string, maxBytes int) []string {
	if len(lines) == 0 {
		return lines
	}
	budget := maxBytes - 2*len(truncationMarker)
	if budget < 0 {
		budget = maxBytes
	}
	headBudget := budget * 50 / 100
	midBudget := budget * 20 / 100
	tailBudget := budget - headBudget - midBudget

	head := takeBytes(lines, headBudget, true)
	tail := takeBytes(lines, tailBudget, false)

	mid := midSample(lines, len(head), len(lines)-len(tail), midBudget)

	out := make([]string, 0, len(head)+len(mid)+len(tail)+2)
	out = append(out, head...)
	out = append(out, strings.TrimSpace(truncationMarker)+" (middle sample follows)")
	out = append(out, mid...)
	out = append(out, strings.TrimSpace(truncationMarker)+" (tail follows)")
	out = append(out, tail...)
	return out
}

// takeBytes greedily takes lines from the front (fromStart=true) or the
// back of lines until budget bytes are used.
func takeBytes(lines []string, budget int, fromStart bool) []string {
	var kept []string
	used := 0
	if fromStart {
		for _, l := range lines {
			if used+len(l)+1 > budget {
				break
			}
			kept = append(kept, l)
			used += len(l) + 1
		}
		return kept
	}
	for i := len(lines) - 1; i >= 0; i-- {
		l := lines[i]
		if used+len(l)+1 > budget {
			break
		}
		kept = append([]string{l}, kept...)
		used += len(l) + 1
	}
	return kept
}

// midSample evenly samples lines between [loEx, hiEx) until budget bytes
// are used.
func midSample(lines []string, loEx, hiEx, budget int) []string {
	if loEx >= hiEx || loEx < 0 || hiEx > len(lines) {
		return nil
	}
	span := lines[loEx:hiEx]
	if len(span) == 0 {
		return nil
	}

	used := 0
	var kept []string
	step := 1
	if estimate := totalBytes(span); estimate > budget && len(span) > 0 {
		step = estimate / max(budget, 1)
		if step < 1 {
			step = 1
		}
	}
	for i := 0; i < len(span); i += step {
		l := span[i]
		if used+len(l)+1 > budget {
			break
		}
		kept = append(kept, l)
		used += len(l) + 1
	}
	return kept
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// truncateSummary keeps only lines matching a signal substring (error,
// completed, blocked, ...), falling back to truncatePrefix if the
// signal set matches nothing (spec §4.B "summary mode").
func truncateSummary(lines []string, maxBytes int, signals []string) []string {
	if len(signals) == 0 {
		signals = DefaultSummarySignals
	}

	var kept []string
	used := 0
	for _, l := range lines {
		if !matchesAnySignal(l, signals) {
			continue
		}
		if used+len(l)+1 > maxBytes {
			break
		}
		kept = append(kept, l)
		used += len(l) + 1
	}
	if len(kept) == 0 {
		return truncatePrefix(lines, maxBytes)
	}
	return kept
}

func matchesAnySignal(line string, signals []string) bool {
	lower := strings.ToLower(line)
	for _, sig := range signals {
		if strings.Contains(lower, strings.ToLower(sig)) {
			return true
		}
	}
	return false
}
