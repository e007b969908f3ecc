package engine

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/marketlab/cda-matching-engine-go/pkg/exchange"
	"github.com/marketlab/cda-matching-engine-go/pkg/model"
)

func newMarket(t *testing.T) (*Market, *exchange.RecordingSink) {
	t.Helper()
	sink := exchange.NewRecordingSink()
	m := NewMarket(4, 128, sink, nil)
	t.Cleanup(m.Stop)
	return m, sink
}

func TestRouteConsistency(t *testing.T) {
	m, _ := newMarket(t)

	// same asset must map to the same shard
	idx1 := m.routeIdx("ASSET-A")
	idx2 := m.routeIdx("ASSET-A")
	if idx1 != idx2 {
		t.Fatalf("same asset mapped to different shards: %d vs %d", idx1, idx2)
	}
}

func TestMarketLifecycle(t *testing.T) {
	m, sink := newMarket(t)

	id, err := m.EnterOrder("A", 100, 10, true, "p1")
	if err != nil {
		t.Fatal(err)
	}

	snap, ok := m.Order("A", id)
	if !ok || snap.Status != model.StatusActive {
		t.Fatalf("expected active order, got %+v ok=%v", snap, ok)
	}

	depth := m.BookDepth("A", 10)
	if len(depth.Bids) != 1 || depth.Bids[0].Price != 100 || depth.Bids[0].Volume != 10 {
		t.Fatalf("unexpected depth: %+v", depth)
	}

	if err := m.CancelOrder("A", true, id); err != nil {
		t.Fatal(err)
	}
	if err := m.CancelOrder("A", true, id); !errors.Is(err, model.ErrOrderNotFound) {
		t.Fatalf("expected not-found on double cancel, got %v", err)
	}

	enters, _, cancels, _ := sink.Counts()
	if enters != 1 || cancels != 1 {
		t.Fatalf("expected 1 enter and 1 cancel, got %d/%d", enters, cancels)
	}
}

func TestMarketUnknownAsset(t *testing.T) {
	m, _ := newMarket(t)

	if err := m.CancelOrder("NOPE", true, 1); !errors.Is(err, model.ErrUnknownAsset) {
		t.Fatalf("expected unknown-asset error, got %v", err)
	}
	if _, err := m.AcceptImmediate("NOPE", true, 1, "p1"); !errors.Is(err, model.ErrUnknownAsset) {
		t.Fatalf("expected unknown-asset error, got %v", err)
	}
	if _, ok := m.Order("NOPE", 1); ok {
		t.Fatal("lookup on unknown asset should fail")
	}
	if _, err := m.Trades("NOPE"); !errors.Is(err, model.ErrUnknownAsset) {
		t.Fatalf("expected unknown-asset error, got %v", err)
	}

	// queries must not have spawned an exchange as a side effect
	if _, err := m.Trades("NOPE"); !errors.Is(err, model.ErrUnknownAsset) {
		t.Fatal("query created an exchange for an unknown asset")
	}
}

func TestMarketAcceptImmediate(t *testing.T) {
	m, sink := newMarket(t)

	id, _ := m.EnterOrder("A", 100, 5, false, "p1")
	tradeID, err := m.AcceptImmediate("A", false, id, "p2")
	if err != nil {
		t.Fatal(err)
	}

	trades, err := m.Trades("A")
	if err != nil {
		t.Fatal(err)
	}
	if len(trades) != 1 || trades[0].ID != tradeID {
		t.Fatalf("expected trade %d in history, got %+v", tradeID, trades)
	}
	if _, tradeCount, _, _ := sink.Counts(); tradeCount != 1 {
		t.Fatalf("expected 1 trade confirmation, got %d", tradeCount)
	}
}

func TestMarketIDsUniqueAcrossAssets(t *testing.T) {
	m, _ := newMarket(t)

	seen := make(map[int64]bool)
	for i := 0; i < 8; i++ {
		asset := fmt.Sprintf("AS-%d", i)
		id, err := m.EnterOrder(asset, 100, 1, true, "p1")
		if err != nil {
			t.Fatal(err)
		}
		if seen[id] {
			t.Fatalf("order id %d issued twice", id)
		}
		seen[id] = true
	}
}

// TestConcurrentMixedTraffic hammers several assets from many goroutines and
// then checks the serialization invariants: every book uncrossed, every
// order's volume conserved.
func TestConcurrentMixedTraffic(t *testing.T) {
	sink := exchange.NewRecordingSink()
	m := NewMarket(4, 256, sink, nil)
	defer m.Stop()

	assets := []string{"A", "B", "C"}
	var wg sync.WaitGroup
	var mu sync.Mutex
	entered := make(map[string][]int64)

	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				asset := assets[(w+i)%len(assets)]
				isBid := (w+i)%2 == 0
				price := int64(95 + (w*7+i*3)%11)
				id, err := m.EnterOrder(asset, price, int64(1+i%5), isBid, fmt.Sprintf("p%d", w))
				if err != nil {
					t.Errorf("enter: %v", err)
					return
				}
				mu.Lock()
				entered[asset] = append(entered[asset], id)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()

	for _, asset := range assets {
		depth := m.BookDepth(asset, 100)
		if len(depth.Bids) > 0 && len(depth.Asks) > 0 {
			if depth.Bids[0].Price >= depth.Asks[0].Price {
				t.Fatalf("asset %s: crossed book, bid %d >= ask %d",
					asset, depth.Bids[0].Price, depth.Asks[0].Price)
			}
		}
		for _, id := range entered[asset] {
			snap, ok := m.Order(asset, id)
			if !ok {
				t.Fatalf("asset %s: order %d lost", asset, id)
			}
			if snap.Volume != snap.Remaining+snap.Traded {
				t.Fatalf("asset %s: order %d volume not conserved: %+v", asset, id, snap)
			}
		}
	}
}
