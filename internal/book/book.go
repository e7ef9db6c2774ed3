package book

import (
	"sort"

	"main/internal/model"
	"main/internal/model/enum"
)

// Book is the authoritative order book state for one (venue, instrument)
// pair. It is mutated exclusively by its owning engine goroutine; downstream
// access goes through published DOM snapshots only.
type Book struct {
	bids   map[float64]float64
	asks   map[float64]float64
	synced bool
}

// New allocates an empty book awaiting its first snapshot.
func New() *Book {
	return &Book{
		bids: make(map[float64]float64),
		asks: make(map[float64]float64),
	}
}

// Synced reports whether a snapshot has been applied.
func (b *Book) Synced() bool {
	return b.synced
}

// Apply folds one update into the book. Deltas received before the first
// snapshot are dropped; the return value reports whether state changed.
func (b *Book) Apply(u model.BookUpdate) bool {
	switch u.Kind {
	case enum.UpdateSnapshot:
		b.applySnapshot(u)
		return true
	case enum.UpdateDelta:
		if !b.synced {
			return false
		}
		b.applyDelta(u)
		return true
	default:
		return false
	}
}

func (b *Book) applySnapshot(u model.BookUpdate) {
	clear(b.bids)
	clear(b.asks)
	for _, lvl := range u.Bids {
		if lvl.Size > 0 {
			b.bids[lvl.Price] = lvl.Size
		}
	}
	for _, lvl := range u.Asks {
		if lvl.Size > 0 {
			b.asks[lvl.Price] = lvl.Size
		}
	}
	b.synced = true
}

func (b *Book) applyDelta(u model.BookUpdate) {
	applySide(b.bids, u.Bids)
	applySide(b.asks, u.Asks)
}

func applySide(side map[float64]float64, levels []model.PriceLevel) {
	for _, lvl := range levels {
		if lvl.Size <= 0 {
			delete(side, lvl.Price)
			continue
		}
		side[lvl.Price] = lvl.Size
	}
}

// Snapshot projects the book into a DOM view: bids descending, asks
// ascending, both truncated to depth.
func (b *Book) Snapshot(ts int64, depth int) model.DOMSnapshot {
	bids := sortedLevels(b.bids, func(a, bb float64) bool { return a > bb })
	asks := sortedLevels(b.asks, func(a, bb float64) bool { return a < bb })
	if depth > 0 {
		if len(bids) > depth {
			bids = bids[:depth]
		}
		if len(asks) > depth {
			asks = asks[:depth]
		}
	}
	return model.DOMSnapshot{Ts: ts, Bids: bids, Asks: asks}
}

func sortedLevels(side map[float64]float64, less func(a, b float64) bool) []model.PriceLevel {
	out := make([]model.PriceLevel, 0, len(side))
	for p, s := range side {
		out = append(out, model.PriceLevel{Price: p, Size: s})
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i].Price, out[j].Price) })
	return out
}
