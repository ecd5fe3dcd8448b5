// Package service runs a replay end to end: it loads the event journal,
// rebuilds every book, derives bars, volatility and arbitrage events, and
// writes the results to the store and, optionally, to Kafka.
package service
