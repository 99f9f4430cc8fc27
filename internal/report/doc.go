// Package report packs variable-length sequences of display units into a
// bounded number of size-capped chat messages.
//
// # Overview
//
// Chat platforms reject messages above a payload limit, so every command that
// dumps rows or rankings has to split its output. This package owns that
// splitting. It knows nothing about delivery: callers get back strings and
// decide how to send them.
//
// # Chunk Rule
//
// Every shape funnels through [Accumulate]:
//
//	if buf != "" && len(buf)+len(unit) >= maxSize {
//		seal buf, start over with unit
//	} else {
//		buf += unit
//	}
//
// Lengths are counted in runes. The cap is a trigger to flush, not a
// truncation: a unit that is larger than maxSize on its own becomes a single
// oversized chunk. Labels are never cut mid-string.
//
// # Shapes
//
// Grouped rankings ([PackGroups]) first collapse adjacent records that share a
// key into one line:
//
//	records: (0,a) (0,b) (2,c)
//	groups:  "\n0 : a, b"  "\n2 : c"
//
// Tabular dumps ([PackBlocks]) skip grouping; each pre-rendered block is one
// unit.
//
// # Flushing
//
// Neither shape flushes the final open chunk on its own. Both return the sealed
// chunks and the open remainder; the caller decides whether to send it:
//
//	sealed, open := report.PackGroups(records, 1900, ", ")
//	for _, chunk := range report.Chunks(sealed, open) {
//		send(chunk)
//	}
//
// # Concurrency
//
// Everything here is pure computation over caller-owned data. A [Packer] holds
// mutable state and must be owned by one goroutine; separate Packers never
// share anything.
package report
