// Package state holds the error-feed snapshot shared between the background
// log watcher and its readers.
//
// The watcher is the single writer: after every poll of the error-log window
// it calls Update with the logtail result or the error it got. Readers (the
// operator console, the owner notifier) call Snapshot on their own schedule
// and compare Seq against the last value they rendered to find new output.
//
// A failed poll keeps the previous text and watermark and only records the
// error and bumps ConsecutiveFailures, so a transiently unreadable log does not
// blank the last known errors. A successful poll, changed or not, resets the
// failure count.
//
// The zero Store is ready to use. Snapshot returns values with a cloned error
// so callers never share the stored error instance.
package state
