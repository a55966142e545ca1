// Package orderbook implements the per-instrument limit order book and its
// price-time-priority matching algorithm.
//
// Resting orders live in circular intrusive FIFO rings, one per price
// level; the levels of each side form a second circular ring ordered from
// best to worst price. All records come from fixed-capacity arenas in
// infra/memory, so steady-state operation never allocates. The book is a
// strictly single-writer structure: one goroutine owns it and concurrency
// stops at the queues feeding it.
package orderbook
