// Package journal stores recorded delta and trade streams as append-only,
// CRC-checked binary segments and replays them in sequence order.
//
// Frame layout:
//
//	[type:1][seq:8][time:8][len:4][payload][crc:4]
//
// The CRC covers the header and payload.
package journal
