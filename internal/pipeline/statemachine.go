package pipeline

// EnsureSingleActive re-derives the single active step over an ordered
// vocabulary. The first step that is not complete becomes active, every step
// before it is complete by definition, and every later step is reset to
// pending unless it is already complete. A failed status is sticky: it is
// never repaired here, only by an explicit retry. The input map is not
// mutated, and the function is idempotent over its own output.
//
// If every step is complete, no step becomes active and the pipeline is
// terminal.
func EnsureSingleActive(order []string, statuses map[string]Status) map[string]Status {
	out := make(map[string]Status, len(statuses))
	for k, s := range statuses {
		out[k] = s
	}

	firstOpen := -1
	for i, step := range order {
		if out[step] != StatusComplete {
			firstOpen = i
			break
		}
	}
	if firstOpen == -1 {
		return out
	}

	for i, step := range order {
		switch {
		case out[step] == StatusComplete:
			// preserved
		case out[step] == StatusFailed:
			// sticky until retried
		case i == firstOpen:
			out[step] = StatusActive
		default:
			out[step] = StatusPending
		}
	}
	return out
}

// AdvanceOnCompletion marks completedStep complete, activates its immediate
// successor when that successor is not already complete, then runs
// EnsureSingleActive to repair any pre-existing drift. Completing the last
// step leaves no step active.
func AdvanceOnCompletion(statuses map[string]Status, order []string, completedStep string) map[string]Status {
	out := make(map[string]Status, len(statuses))
	for k, s := range statuses {
		out[k] = s
	}
	out[completedStep] = StatusComplete

	for i, step := range order {
		if step != completedStep {
			continue
		}
		if i+1 < len(order) {
			if next := order[i+1]; out[next] != StatusComplete {
				out[next] = StatusActive
			}
		}
		break
	}
	return EnsureSingleActive(order, out)
}
