// Package orderbook reconstructs a price-level limit order book from a
// stream of deltas. Each side is a red-black tree keyed by price holding
// the resting size at that price, so best-price lookups and range sums
// over the top of the book stay logarithmic.
//
// An OrderBook is single-writer: every mutation goes through ApplyDelta.
package orderbook
