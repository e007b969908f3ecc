// marketsim drives a market in-process with randomized enter, cancel and
// accept-immediate traffic through the inbound message boundary, then prints
// throughput, latency percentiles and the engine counters.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"math/rand"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/marketlab/cda-matching-engine-go/pkg/engine"
	"github.com/marketlab/cda-matching-engine-go/pkg/exchange"
	"github.com/marketlab/cda-matching-engine-go/pkg/metrics"
	"github.com/marketlab/cda-matching-engine-go/pkg/msg"
)

type orderRef struct {
	asset   string
	orderID int64
	isBid   bool
	pcode   string
}

func main() {
	var (
		numAssets  = flag.Int("assets", 2, "number of assets (one exchange each)")
		numTraders = flag.Int("traders", 8, "number of simulated participants")
		total      = flag.Int("n", 10000, "total messages to send")
		conns      = flag.Int("c", 4, "concurrency (worker goroutines)")
		shards     = flag.Int("shards", 0, "engine shards (0 = NumCPU)")
		midPrice   = flag.Int64("mid", 100, "price band midpoint")
		band       = flag.Int64("band", 10, "half-width of the price band")
		cancelPct  = flag.Int("cancel", 15, "percent of messages that are cancels")
		acceptPct  = flag.Int("accept", 5, "percent of messages that are immediate accepts")
		seed       = flag.Int64("seed", 0, "rng seed (0 = time-based)")
		statsMode  = flag.Bool("stats", false, "record per-message latency and print p50/p90/p99")
		verbose    = flag.Bool("v", false, "log every confirmation")
	)
	flag.Parse()

	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if !*verbose {
		log.SetLevel(logrus.WarnLevel)
	}

	recorder := exchange.NewRecordingSink()
	var sink exchange.ConfirmationSink = recorder
	if *verbose {
		sink = exchange.Fanout{recorder, exchange.NewLogSink(log)}
	}

	market := engine.NewMarket(*shards, 1024, sink, log)
	defer market.Stop()
	dispatcher := msg.NewDispatcher(market, sink, log)

	assets := make([]string, *numAssets)
	for i := range assets {
		assets[i] = fmt.Sprintf("A%d", i+1)
	}
	pcodes := make([]string, *numTraders)
	for i := range pcodes {
		pcodes[i] = uuid.NewString()[:8]
	}

	runID := uuid.NewString()
	log.WithFields(logrus.Fields{
		"run":     runID,
		"assets":  *numAssets,
		"traders": *numTraders,
		"seed":    *seed,
	}).Warn("marketsim starting")

	// Stats collection
	var mu sync.Mutex
	durations := make([]float64, 0, *total) // ms

	reqsPerWorker := (*total + *conns - 1) / *conns
	var wg sync.WaitGroup
	start := time.Now()

	worker := func(id int) {
		defer wg.Done()
		rng := rand.New(rand.NewSource(*seed + int64(id)))
		var live []orderRef

		send := func(m map[string]any) {
			raw, _ := json.Marshal(m)
			var t0 time.Time
			if *statsMode {
				t0 = time.Now()
			}
			_ = dispatcher.Handle(raw)
			if *statsMode {
				elapsed := time.Since(t0).Seconds() * 1000.0
				mu.Lock()
				durations = append(durations, elapsed)
				mu.Unlock()
			}
		}

		for j := 0; j < reqsPerWorker; j++ {
			if id*reqsPerWorker+j >= *total {
				return
			}

			roll := rng.Intn(100)
			switch {
			case roll < *cancelPct && len(live) > 0:
				k := rng.Intn(len(live))
				ref := live[k]
				live = append(live[:k], live[k+1:]...)
				send(map[string]any{
					"type": msg.TypeCancel,
					"payload": map[string]any{
						"order_id":   ref.orderID,
						"is_bid":     ref.isBid,
						"pcode":      ref.pcode,
						"asset_name": ref.asset,
					},
				})

			case roll < *cancelPct+*acceptPct && len(live) > 0:
				k := rng.Intn(len(live))
				ref := live[k]
				live = append(live[:k], live[k+1:]...)
				acceptor := pcodes[rng.Intn(len(pcodes))]
				send(map[string]any{
					"type": msg.TypeAcceptImmediate,
					"payload": map[string]any{
						"order_id":   ref.orderID,
						"is_bid":     ref.isBid,
						"pcode":      acceptor,
						"asset_name": ref.asset,
					},
				})

			default:
				asset := assets[rng.Intn(len(assets))]
				pcode := pcodes[rng.Intn(len(pcodes))]
				isBid := rng.Intn(2) == 0
				price := *midPrice - *band + rng.Int63n(2**band+1)
				volume := 1 + rng.Int63n(10)
				send(map[string]any{
					"type": msg.TypeEnter,
					"payload": map[string]any{
						"price":      price,
						"volume":     volume,
						"is_bid":     isBid,
						"pcode":      pcode,
						"asset_name": asset,
					},
				})
				// remember the order so later iterations can cancel/accept it
				if oid, ok := lastEnteredID(recorder, pcode, asset); ok {
					live = append(live, orderRef{asset: asset, orderID: oid, isBid: isBid, pcode: pcode})
				}
			}
		}
	}

	for i := 0; i < *conns; i++ {
		wg.Add(1)
		go worker(i)
	}
	wg.Wait()
	elapsed := time.Since(start).Seconds()

	enters, trades, cancels, errCount := recorder.Counts()
	fmt.Printf("SUMMARY: run=%s msgs=%d duration=%.2fs msg/s=%.2f\n",
		runID, *total, elapsed, float64(*total)/elapsed)
	fmt.Printf("EVENTS: enters=%d trades=%d cancels=%d errors=%d\n",
		enters, trades, cancels, errCount)
	fmt.Printf("ENGINE: entered=%d trades=%d canceled=%d volume=%d dropped=%d\n",
		metrics.GetOrdersEntered(), metrics.GetTradesExecuted(),
		metrics.GetOrdersCanceled(), metrics.GetVolumeTraded(),
		metrics.GetMessagesDropped())

	for _, asset := range assets {
		snap := market.BookDepth(asset, 5)
		fmt.Printf("BOOK %s: bids=%v asks=%v\n", asset, snap.Bids, snap.Asks)
	}

	if !*statsMode {
		return
	}

	sort.Float64s(durations)
	n := len(durations)
	var sum, max float64
	for _, v := range durations {
		sum += v
		if v > max {
			max = v
		}
	}
	mean := 0.0
	if n > 0 {
		mean = sum / float64(n)
	}
	p := func(q float64) float64 {
		if n == 0 {
			return 0
		}
		idx := int(math.Floor(q*float64(n-1) + 0.5))
		if idx < 0 {
			idx = 0
		}
		if idx >= n {
			idx = n - 1
		}
		return durations[idx]
	}
	fmt.Printf("LATENCY(ms): mean=%.4f max=%.4f p50=%.4f p90=%.4f p99=%.4f\n",
		mean, max, p(0.50), p(0.90), p(0.99))
	_ = os.Stdout.Sync()
}

// lastEnteredID finds the most recent enter confirmation for a pcode/asset.
// The sim sends synchronously, so the latest matching confirmation is the
// order just entered; fully filled takers produce no enter confirmation and
// are simply not tracked.
func lastEnteredID(rec *exchange.RecordingSink, pcode, asset string) (int64, bool) {
	enters := rec.EnterSnapshots()
	for i := len(enters) - 1; i >= 0; i-- {
		if enters[i].PCode == pcode && enters[i].AssetName == asset {
			return enters[i].ID, true
		}
	}
	return 0, false
}
