// Package store reads the bot's SQLite database for the admin commands.
//
// The schema belongs to the rest of the bot; this package only runs the
// read-mostly queries the command surface needs, plus an online backup.
// EnsureSchema creates the expected tables when they are missing so a fresh
// database can be inspected from the console.
//
// Table previews never splice operator input into SQL. The requested name has
// to match a table that exists (and is on the configured allow-list, when one
// is set); the matched catalogue name is then quoted as an identifier and the
// row limit is bound as a parameter.
package store
