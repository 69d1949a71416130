package interact

// Selection is the selected-work state machine: Unselected or Selected(id).
// Clicking the selected work clears it; clicking any other selects it.
type Selection struct {
	selected  string
	lastNonce uint64
}

// Apply feeds one cube click into the state machine. It returns true when
// the click selected a work, which is when telemetry should fire. A click
// whose nonce was already applied is ignored.
func (s *Selection) Apply(c CubeClick) bool {
	if c.WorkID == "" || (c.Nonce != 0 && c.Nonce == s.lastNonce) {
		return false
	}
	s.lastNonce = c.Nonce
	if s.selected == c.WorkID {
		s.selected = ""
		return false
	}
	s.selected = c.WorkID
	return true
}

// Clear returns to Unselected.
func (s *Selection) Clear() {
	s.selected = ""
}

// Selected returns the selected work id and whether one is selected.
func (s *Selection) Selected() (string, bool) {
	return s.selected, s.selected != ""
}
