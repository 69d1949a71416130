// Package interact turns pointer activity on falling boxes into UI state:
// the highlighted work, cube-click events, the selection toggle, and the
// rate-limited click telemetry.
package interact

// Cursor is the pointer affordance shown over the world.
type Cursor int

const (
	CursorDefault Cursor = iota
	CursorPointer
)

// CubeClick is emitted for every click on a box. Nonce changes on every
// click, so two clicks on the same work are still distinguishable.
type CubeClick struct {
	WorkID string
	Nonce  uint64
}

// Bridge holds hover state and issues cube clicks. It is owned by the UI
// loop.
type Bridge struct {
	highlighted string
	cursor      Cursor
	nonce       uint64
}

// NewBridge returns a bridge with nothing highlighted.
func NewBridge() *Bridge {
	return &Bridge{}
}

// PointerEnter highlights workID and switches to the pointer cursor.
func (b *Bridge) PointerEnter(workID string) {
	b.highlighted = workID
	b.cursor = CursorPointer
}

// PointerLeave clears the highlight and restores the default cursor.
func (b *Bridge) PointerLeave() {
	b.highlighted = ""
	b.cursor = CursorDefault
}

// Hover applies a hit-test result: a non-empty workID enters, empty leaves.
// It reports whether the highlight changed.
func (b *Bridge) Hover(workID string) bool {
	if workID == b.highlighted {
		return false
	}
	if workID == "" {
		b.PointerLeave()
	} else {
		b.PointerEnter(workID)
	}
	return true
}

// Click emits a cube click for workID with a fresh nonce.
func (b *Bridge) Click(workID string) CubeClick {
	b.nonce++
	return CubeClick{WorkID: workID, Nonce: b.nonce}
}

// Highlighted returns the highlighted work id, or "" when none.
func (b *Bridge) Highlighted() string { return b.highlighted }

// Cursor returns the current cursor affordance.
func (b *Bridge) Cursor() Cursor { return b.cursor }
