package enum

// Side is the canonical taker side of a trade or the side of a book level.
type Side string

const (
	SideBuy  Side = "Buy"
	SideSell Side = "Sell"
)

func (s Side) IsAvailable() bool {
	return s == SideBuy || s == SideSell
}

// Sign returns +1 for Buy, -1 for Sell, 0 otherwise.
func (s Side) Sign() int {
	switch s {
	case SideBuy:
		return 1
	case SideSell:
		return -1
	default:
		return 0
	}
}
