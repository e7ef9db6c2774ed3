package enum

// EventType identifies a detected order-flow pattern.
type EventType string

const (
	EventIcebergDetected EventType = "ICEBERG_DETECTED"
	EventWallCreated     EventType = "WALL_CREATED"
	EventWallRemoved     EventType = "WALL_REMOVED"
	EventSpoofSignal     EventType = "SPOOF_SIGNAL"
)

func (t EventType) IsAvailable() bool {
	switch t {
	case EventIcebergDetected, EventWallCreated, EventWallRemoved, EventSpoofSignal:
		return true
	default:
		return false
	}
}
