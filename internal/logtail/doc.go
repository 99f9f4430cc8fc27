// Package logtail reports the incremental tail of a growing append-only log.
//
// # Overview
//
// The bot writes its failures to an error log. Operators ask for that log
// from chat, and they only want to hear about it when something new was
// written. This package keeps the state needed for that: a small window of the
// most recent lines and a watermark of the file's last processed modification
// time.
//
// # Polling
//
// [Window.Poll] is the only stateful operation:
//
//	1. Stat the file, take its modification time t
//	2. If t <= watermark: return a Result with Changed == false.
//	   The file contents are not read.
//	3. Otherwise read the file line by line into a fresh ring of
//	   capacity lines, commit the ring, set watermark = t and return
//	   the concatenated lines with Changed == true.
//
// The watermark never moves backwards, and a NoChange result never mutates the
// window. Two polls without an intervening write both report NoChange with the
// same watermark.
//
// # Ring Buffer
//
// Lines are kept in a FIFO ring. Pushing past capacity evicts the oldest line,
// so after any number of reads the window holds at most capacity lines and
// they are always the last ones in the file, in file order. Memory use is
// O(capacity), not O(file size).
//
// Line terminators are preserved, so the snapshot text is a verbatim copy of
// the end of the file.
//
// # Error Handling
//
// Stat, open and read failures are wrapped in [ErrSourceUnavailable] and
// returned to the caller. The window is only updated after a complete read, so
// a failed poll leaves both the lines and the watermark untouched. Nothing is
// retried or logged here; that is the caller's job.
//
// # Concurrency
//
// A Window is guarded by a mutex held for the whole stat-compare-read-commit
// sequence, which serializes concurrent polls of the same window. Windows for
// different files are independent. The file I/O blocks the calling goroutine.
//
// [Read] is a stateless one-shot variant for CLI use.
package logtail
