package book

import (
	"sort"

	"github.com/marketlab/cda-matching-engine-go/pkg/model"
)

// level holds the FIFO queue of active orders at one price. Orders are
// appended in entry-sequence order, so queue position encodes time priority.
type level struct {
	price int64
	queue []*model.Order
}

func (l *level) volume() int64 {
	var total int64
	for _, o := range l.queue {
		total += o.Remaining()
	}
	return total
}

// bookSide is one priority-ordered side of a book: a price->level map plus a
// price index kept sorted best-first (descending for bids, ascending for
// asks).
type bookSide struct {
	isBid  bool
	prices []int64
	levels map[int64]*level
}

func newSide(isBid bool) bookSide {
	return bookSide{isBid: isBid, levels: make(map[int64]*level)}
}

// better reports whether price a has priority over price b on this side.
func (s *bookSide) better(a, b int64) bool {
	if s.isBid {
		return a > b
	}
	return a < b
}

func (s *bookSide) insert(o *model.Order) {
	lvl, ok := s.levels[o.Price]
	if !ok {
		lvl = &level{price: o.Price}
		s.levels[o.Price] = lvl
		idx := sort.Search(len(s.prices), func(i int) bool {
			return !s.better(s.prices[i], o.Price)
		})
		s.prices = append(s.prices, 0)
		copy(s.prices[idx+1:], s.prices[idx:])
		s.prices[idx] = o.Price
	}
	lvl.queue = append(lvl.queue, o) // FIFO append
}

func (s *bookSide) remove(o *model.Order) bool {
	lvl, ok := s.levels[o.Price]
	if !ok {
		return false
	}
	found := false
	kept := lvl.queue[:0]
	for _, q := range lvl.queue {
		if q.ID == o.ID {
			found = true
			continue
		}
		kept = append(kept, q)
	}
	lvl.queue = kept
	if !found {
		return false
	}
	if len(lvl.queue) == 0 {
		delete(s.levels, o.Price)
		for i, p := range s.prices {
			if p == o.Price {
				s.prices = append(s.prices[:i], s.prices[i+1:]...)
				break
			}
		}
	}
	return true
}

func (s *bookSide) best() *model.Order {
	if len(s.prices) == 0 {
		return nil
	}
	return s.levels[s.prices[0]].queue[0]
}

// LevelSummary is one aggregated price level of a depth snapshot.
type LevelSummary struct {
	Price  int64 `json:"price"`
	Volume int64 `json:"volume"`
	Orders int   `json:"orders"`
}

// Book holds the active bids and asks for one asset, each side ordered by
// price/time priority, plus an id index over every order the book has ever
// seen. The book only mutates structure; it never decides whether orders
// match.
type Book struct {
	asset string
	bids  bookSide
	asks  bookSide
	byID  map[int64]*model.Order
}

// New creates an empty book for one asset.
func New(asset string) *Book {
	return &Book{
		asset: asset,
		bids:  newSide(true),
		asks:  newSide(false),
		byID:  make(map[int64]*model.Order),
	}
}

func (b *Book) Asset() string {
	return b.asset
}

func (b *Book) side(isBid bool) *bookSide {
	if isBid {
		return &b.bids
	}
	return &b.asks
}

// Track indexes an order by id without resting it on either side. Fully
// consumed takers are tracked so later lookups still resolve them.
func (b *Book) Track(o *model.Order) {
	b.byID[o.ID] = o
}

// Insert rests an active order on its side and indexes it.
func (b *Book) Insert(o *model.Order) {
	b.byID[o.ID] = o
	b.side(o.IsBid).insert(o)
}

// Remove takes a resting order off its side. The id index keeps the order so
// it stays resolvable after deactivation. Returns false if the id is unknown
// or not resting.
func (b *Book) Remove(id int64) bool {
	o, ok := b.byID[id]
	if !ok {
		return false
	}
	return b.side(o.IsBid).remove(o)
}

// Get returns any order the book has seen, resting or not.
func (b *Book) Get(id int64) (*model.Order, bool) {
	o, ok := b.byID[id]
	return o, ok
}

// Best returns the highest-priority active order on one side, or nil if the
// side is empty.
func (b *Book) Best(isBid bool) *model.Order {
	return b.side(isBid).best()
}

// Iterate walks one side in priority order, best first, calling fn for each
// resting order until fn returns false. The walk is restartable: each call
// starts from the current best. Callers must not mutate the book inside fn.
func (b *Book) Iterate(isBid bool, fn func(*model.Order) bool) {
	s := b.side(isBid)
	for _, p := range s.prices {
		for _, o := range s.levels[p].queue {
			if !fn(o) {
				return
			}
		}
	}
}

// Len returns the number of resting orders on one side.
func (b *Book) Len(isBid bool) int {
	n := 0
	s := b.side(isBid)
	for _, lvl := range s.levels {
		n += len(lvl.queue)
	}
	return n
}

// Depth aggregates up to max price levels of one side, best first.
func (b *Book) Depth(isBid bool, max int) []LevelSummary {
	if max <= 0 {
		max = 10
	}
	s := b.side(isBid)
	out := make([]LevelSummary, 0, max)
	for _, p := range s.prices {
		if len(out) >= max {
			break
		}
		lvl := s.levels[p]
		out = append(out, LevelSummary{
			Price:  p,
			Volume: lvl.volume(),
			Orders: len(lvl.queue),
		})
	}
	return out
}
