package metrics

import "sync/atomic"

// Simple process-level counters used by the engine and the sim driver.
// Very small and intentionally minimal.

var (
	ordersEntered   int64
	tradesExecuted  int64
	ordersCanceled  int64
	volumeTraded    int64
	messagesDropped int64
)

// IncOrdersEntered increments the entered-order counter by 1.
func IncOrdersEntered() {
	atomic.AddInt64(&ordersEntered, 1)
}

// IncTradesExecuted increments the trade counter by 1.
func IncTradesExecuted() {
	atomic.AddInt64(&tradesExecuted, 1)
}

// IncOrdersCanceled increments the cancel counter by 1.
func IncOrdersCanceled() {
	atomic.AddInt64(&ordersCanceled, 1)
}

// AddVolumeTraded adds n units to the traded-volume counter.
func AddVolumeTraded(n int64) {
	atomic.AddInt64(&volumeTraded, n)
}

// IncMessagesDropped counts an inbound message rejected before the engine.
func IncMessagesDropped() {
	atomic.AddInt64(&messagesDropped, 1)
}

// GetOrdersEntered returns the current entered-order count.
func GetOrdersEntered() int64 {
	return atomic.LoadInt64(&ordersEntered)
}

// GetTradesExecuted returns the current trade count.
func GetTradesExecuted() int64 {
	return atomic.LoadInt64(&tradesExecuted)
}

// GetOrdersCanceled returns the current cancel count.
func GetOrdersCanceled() int64 {
	return atomic.LoadInt64(&ordersCanceled)
}

// GetVolumeTraded returns the total units traded.
func GetVolumeTraded() int64 {
	return atomic.LoadInt64(&volumeTraded)
}

// GetMessagesDropped returns the rejected-message count.
func GetMessagesDropped() int64 {
	return atomic.LoadInt64(&messagesDropped)
}
