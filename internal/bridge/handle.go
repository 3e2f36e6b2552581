package bridge

import "fmt"

// Handle identifies one open analysis unit.
//
// The zero Handle is never valid. A Handle stays comparable and copyable
// after Close, but every operation on it fails with INVALID_HANDLE.
type Handle struct {
	Index      uint32 `json:"index"`
	Generation uint32 `json:"generation"`
}

// IsZero reports whether h is the zero Handle.
func (h Handle) IsZero() bool {
	return h == Handle{}
}

func (h Handle) String() string {
	return fmt.Sprintf("%d.%d", h.Index, h.Generation)
}

// State is the lifecycle state of a unit.
type State int

const (
	// Free means the slot holds no unit. Handles to it are invalid.
	Free State = iota

	// Accumulating means facts may be recorded.
	Accumulating

	// Computed means the Result Set is available and facts are frozen.
	Computed
)

func (s State) String() string {
	switch s {
	case Free:
		return "free"
	case Accumulating:
		return "accumulating"
	case Computed:
		return "computed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}
