package enum

// UpdateKind describes whether a book update replaces or amends state.
type UpdateKind string

const (
	UpdateSnapshot UpdateKind = "snapshot"
	UpdateDelta    UpdateKind = "delta"
)

func (k UpdateKind) IsAvailable() bool {
	return k == UpdateSnapshot || k == UpdateDelta
}
