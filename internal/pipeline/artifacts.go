package pipeline

// MergeArtifacts shallow-merges patch into existing and returns a new map.
// Every key in patch overwrites the same key in existing wholesale; keys
// absent from patch are preserved. Nested objects under the same key are
// replaced, not deep-merged: the last writer owns the key. Neither input is
// mutated.
func MergeArtifacts(existing, patch map[string]any) map[string]any {
	out := make(map[string]any, len(existing)+len(patch))
	for k, v := range existing {
		out[k] = v
	}
	for k, v := range patch {
		out[k] = v
	}
	return out
}

// MergeStatuses merges partial status updates into an existing status map,
// key-wise, returning a new map. Unknown or invalid statuses in the patch are
// dropped rather than persisted.
func MergeStatuses(existing map[string]Status, patch map[string]Status) map[string]Status {
	out := make(map[string]Status, len(existing)+len(patch))
	for k, v := range existing {
		out[k] = v
	}
	for k, v := range patch {
		if v.Valid() {
			out[k] = v
		}
	}
	return out
}
