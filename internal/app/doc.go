// Package app wires steward together and owns its lifecycle.
//
// Run loads the configuration, builds the loggers (console output plus the
// errors.log and joinleave.log files), opens the SQLite store and creates the
// command handler. It then runs the transport and, when [watch] is enabled,
// the error-log watcher under one errgroup:
//
//	Run()
//	 ├─ config.Load / logging.New / store.Open
//	 ├─ commands.New        handler owning the error-log window
//	 ├─ Watcher.Run         fsnotify + timer, shares the window
//	 └─ Telegram.Listen     or console.Run in ModeConsole
//
// The kill command cancels the run context. Whatever ends the run, the store
// is backed up into [store] backup_dir and closed before Run returns.
//
// # Watcher
//
// The watcher polls the error-log window when the log directory reports a
// write to the file (after a one second settle delay) and on a timer as a
// fallback. A failed poll backs the timer off exponentially, capped at 30
// seconds. A missing log file is not a failure: nothing has been logged at
// error level yet. New snapshots are stored in a state.Store for the console
// and, in bot mode, pushed to [watch] notify_chat or the owner.
//
// Because the watcher and the errors command share one window, output the
// watcher has delivered is not repeated by the command.
package app
