package models

// AppState is the local cache snapshot and the unit of persistence.
type AppState struct {
	Notes  []Note  `json:"notes"`
	Topics []Topic `json:"topics"`
}

// EmptyState returns a state with non-nil, empty collections.
func EmptyState() AppState {
	return AppState{Notes: []Note{}, Topics: []Topic{}}
}

// Clone deep-copies the state.
func (s AppState) Clone() AppState {
	out := AppState{
		Notes:  make([]Note, len(s.Notes)),
		Topics: make([]Topic, len(s.Topics)),
	}
	for i, n := range s.Notes {
		out.Notes[i] = n.Clone()
	}
	for i, t := range s.Topics {
		out.Topics[i] = t.Clone()
	}
	return out
}
