package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMergeArtifacts_PreservesSiblingKeys(t *testing.T) {
	existing := map[string]any{
		"jd":     map[string]any{"title": "Engineer"},
		"resume": map[string]any{"chunks": 3},
	}
	patch := map[string]any{
		"ats": map[string]any{"score": 82},
	}

	out := MergeArtifacts(existing, patch)

	assert.Len(t, out, 3)
	assert.Equal(t, existing["jd"], out["jd"])
	assert.Equal(t, existing["resume"], out["resume"])
	assert.Equal(t, patch["ats"], out["ats"])
}

func TestMergeArtifacts_ShallowReplaceNotDeepMerge(t *testing.T) {
	existing := map[string]any{
		"jd": map[string]any{"title": "Engineer", "company": "Example Co"},
	}
	patch := map[string]any{
		"jd": map[string]any{"title": "Staff Engineer"},
	}

	out := MergeArtifacts(existing, patch)

	// Last writer owns the whole key; the old "company" field is gone.
	assert.Equal(t, map[string]any{"title": "Staff Engineer"}, out["jd"])
}

func TestMergeArtifacts_DisjointKeysCommute(t *testing.T) {
	base := map[string]any{}
	patchJD := map[string]any{"jd": map[string]any{"url": "https://example.com/job"}}
	patchATS := map[string]any{"ats": map[string]any{"score": 90}}

	ab := MergeArtifacts(MergeArtifacts(base, patchJD), patchATS)
	ba := MergeArtifacts(MergeArtifacts(base, patchATS), patchJD)

	assert.Equal(t, ab, ba)
}

func TestMergeArtifacts_RoundTripRetainsUntouchedKeys(t *testing.T) {
	base := map[string]any{
		"actions": []any{"tailor summary"},
		"notes":   "keep me",
	}
	patch1 := map[string]any{"jd": map[string]any{"title": "x"}}
	patch2 := map[string]any{"ats": map[string]any{"score": 1}}

	out := MergeArtifacts(MergeArtifacts(base, patch1), patch2)

	assert.Equal(t, base["actions"], out["actions"])
	assert.Equal(t, base["notes"], out["notes"])
}

func TestMergeArtifacts_DoesNotMutateInputs(t *testing.T) {
	existing := map[string]any{"jd": "old"}
	patch := map[string]any{"jd": "new"}

	_ = MergeArtifacts(existing, patch)

	assert.Equal(t, "old", existing["jd"])
}

func TestMergeStatuses_DropsInvalidValues(t *testing.T) {
	existing := map[string]Status{"jd": StatusPending}
	patch := map[string]Status{"jd": StatusComplete, "profile": Status("bogus")}

	out := MergeStatuses(existing, patch)

	assert.Equal(t, StatusComplete, out["jd"])
	_, ok := out["profile"]
	assert.False(t, ok)
}
