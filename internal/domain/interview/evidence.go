package interview

// CreateEvidence builds a single evidence item.
func CreateEvidence(conceptID string, state EvidenceState, source EvidenceSource, isInitial bool) (Evidence, error) {
	if conceptID == "" {
		return Evidence{}, validationErr("concept_id", "is required")
	}
	if !state.Valid() {
		return Evidence{}, validationErr("state", "must be one of present, absent, unknown (got %q)", state)
	}
	if source == "" {
		source = SourcePredefined
	}
	return Evidence{ConceptID: conceptID, State: state, Source: source, IsInitial: isInitial}, nil
}

// UpsertEvidence returns a new slice in which the entry for conceptID has its
// state replaced in place, or a predefined non-initial entry is appended when
// the concept is not yet recorded. The input slice is never modified.
func UpsertEvidence(list []Evidence, conceptID string, state EvidenceState) []Evidence {
	out := make([]Evidence, len(list), len(list)+1)
	copy(out, list)
	for i := range out {
		if out[i].ConceptID == conceptID {
			out[i].State = state
			return out
		}
	}
	return append(out, Evidence{
		ConceptID: conceptID,
		State:     state,
		Source:    SourcePredefined,
	})
}

// HasInitialEvidence reports whether any item is marked initial.
func HasInitialEvidence(list []Evidence) bool {
	for _, e := range list {
		if e.IsInitial {
			return true
		}
	}
	return false
}

// ensureInitial promotes the first item to initial when none is marked.
// It returns a copy when a promotion happens and the input otherwise.
func ensureInitial(list []Evidence) []Evidence {
	if len(list) == 0 || HasInitialEvidence(list) {
		return list
	}
	out := make([]Evidence, len(list))
	copy(out, list)
	out[0].IsInitial = true
	return out
}
