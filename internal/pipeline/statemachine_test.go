package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countActive(statuses map[string]Status) int {
	n := 0
	for _, s := range statuses {
		if s == StatusActive {
			n++
		}
	}
	return n
}

func TestEnsureSingleActive_AllPending(t *testing.T) {
	order := Order(V1)
	statuses := map[string]Status{}
	for _, step := range order {
		statuses[step] = StatusPending
	}

	out := EnsureSingleActive(order, statuses)

	assert.Equal(t, StatusActive, out["extract"])
	assert.Equal(t, 1, countActive(out))
	for _, step := range order[1:] {
		assert.Equal(t, StatusPending, out[step], "step %s", step)
	}
}

func TestEnsureSingleActive_MidPipeline(t *testing.T) {
	order := Order(V1)
	statuses := map[string]Status{
		"extract":  StatusComplete,
		"generate": StatusComplete,
		"keywords": StatusPending,
		"ats":      StatusActive, // drifted: two steps claim progress
		"export":   StatusPending,
		"save":     StatusPending,
	}

	out := EnsureSingleActive(order, statuses)

	assert.Equal(t, StatusActive, out["keywords"])
	assert.Equal(t, StatusPending, out["ats"])
	assert.Equal(t, 1, countActive(out))
}

func TestEnsureSingleActive_AllComplete_NoActive(t *testing.T) {
	order := Order(V1)
	statuses := map[string]Status{}
	for _, step := range order {
		statuses[step] = StatusComplete
	}

	out := EnsureSingleActive(order, statuses)

	assert.Equal(t, 0, countActive(out))
	for _, step := range order {
		assert.Equal(t, StatusComplete, out[step])
	}
}

func TestEnsureSingleActive_PreservesLaterComplete(t *testing.T) {
	// A later step already marked complete must not be demoted to pending.
	order := Order(V1)
	statuses := map[string]Status{
		"extract":  StatusComplete,
		"generate": StatusPending,
		"keywords": StatusComplete,
		"ats":      StatusPending,
		"export":   StatusPending,
		"save":     StatusPending,
	}

	out := EnsureSingleActive(order, statuses)

	assert.Equal(t, StatusActive, out["generate"])
	assert.Equal(t, StatusComplete, out["keywords"])
}

func TestEnsureSingleActive_FailedIsSticky(t *testing.T) {
	order := Order(V2)
	statuses := map[string]Status{
		"intake":   StatusComplete,
		"jd":       StatusFailed,
		"profile":  StatusPending,
		"analysis": StatusPending,
		"ats":      StatusPending,
		"actions":  StatusPending,
		"export":   StatusPending,
	}

	out := EnsureSingleActive(order, statuses)

	// The failure blocks the pipeline until an explicit retry; nothing is
	// silently re-activated.
	assert.Equal(t, StatusFailed, out["jd"])
	assert.Equal(t, 0, countActive(out))
}

func TestEnsureSingleActive_Idempotent(t *testing.T) {
	order := Order(V1)
	statuses := map[string]Status{
		"extract":  StatusComplete,
		"generate": StatusActive,
		"keywords": StatusActive, // drift
		"ats":      StatusFailed,
		"export":   StatusPending,
		"save":     StatusComplete,
	}

	once := EnsureSingleActive(order, statuses)
	twice := EnsureSingleActive(order, once)

	assert.Equal(t, once, twice)
}

func TestEnsureSingleActive_DoesNotMutateInput(t *testing.T) {
	order := Order(V1)
	statuses := map[string]Status{"extract": StatusPending}

	_ = EnsureSingleActive(order, statuses)

	assert.Equal(t, StatusPending, statuses["extract"])
}

func TestAdvanceOnCompletion_ActivatesSuccessor(t *testing.T) {
	order := []string{"extract", "generate", "keywords", "ats", "export", "save"}
	statuses := map[string]Status{
		"extract":  StatusActive,
		"generate": StatusPending,
		"keywords": StatusPending,
		"ats":      StatusPending,
		"export":   StatusPending,
		"save":     StatusPending,
	}

	out := AdvanceOnCompletion(statuses, order, "extract")

	require.Equal(t, map[string]Status{
		"extract":  StatusComplete,
		"generate": StatusActive,
		"keywords": StatusPending,
		"ats":      StatusPending,
		"export":   StatusPending,
		"save":     StatusPending,
	}, out)
}

func TestAdvanceOnCompletion_NoStepSkipped(t *testing.T) {
	order := Order(V1)
	statuses := map[string]Status{}
	for _, step := range order {
		statuses[step] = StatusPending
	}
	statuses[order[0]] = StatusActive

	// Walk the whole pipeline; each completion must hand off to the direct
	// successor.
	for i, step := range order {
		statuses = AdvanceOnCompletion(statuses, order, step)
		if i+1 < len(order) {
			assert.Equal(t, StatusActive, statuses[order[i+1]], "after completing %s", step)
			assert.Equal(t, 1, countActive(statuses))
		}
	}

	// Completing the last step leaves the pipeline terminal.
	assert.Equal(t, 0, countActive(statuses))
}

func TestAdvanceOnCompletion_SuccessorAlreadyComplete(t *testing.T) {
	order := Order(V1)
	statuses := map[string]Status{
		"extract":  StatusActive,
		"generate": StatusComplete,
		"keywords": StatusPending,
		"ats":      StatusPending,
		"export":   StatusPending,
		"save":     StatusPending,
	}

	out := AdvanceOnCompletion(statuses, order, "extract")

	assert.Equal(t, StatusComplete, out["generate"])
	assert.Equal(t, StatusActive, out["keywords"])
}

func TestAdvanceOnCompletion_LastStep(t *testing.T) {
	order := Order(V1)
	statuses := map[string]Status{}
	for _, step := range order {
		statuses[step] = StatusComplete
	}
	statuses["save"] = StatusActive

	out := AdvanceOnCompletion(statuses, order, "save")

	assert.Equal(t, 0, countActive(out))
	assert.Equal(t, StatusComplete, out["save"])
}
