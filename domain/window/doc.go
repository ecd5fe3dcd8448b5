// Package window buckets a pair's trades into fixed-width time windows and
// samples the pair's reconstructed order book at each window boundary.
//
// Windows are left-open and right-closed: window i covers (end(i-1), end(i)],
// with the first window extended to cover every timestamp at or before zero.
package window
