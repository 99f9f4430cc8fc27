// Package config loads steward's TOML configuration.
//
// # Overview
//
// steward needs to know how to reach the chat platform, where the bot's SQLite
// store and log files live, and which size caps to use when splitting replies.
// All of it comes from a single TOML file.
//
// # Configuration Discovery
//
// The Load function follows this resolution order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/steward/config.toml (default)
//  3. If the config file doesn't exist, fall back to hardcoded defaults
//  4. If the file exists but fields are missing/empty, use defaults
//  5. STEWARD_TELEGRAM_TOKEN overrides telegram.token when set
//
// # Example
//
//	[telegram]
//	token = "123:abc"
//	owner_id = 4242
//	sticker_set = "tbd_emojis"
//
//	[store]
//	path = "~/.local/share/steward/bot.db"
//	backup_dir = "~/.local/share/steward/backups"
//	preview_rows = 5
//	tables = ["suggestions", "used_titles"]
//
//	[logs]
//	dir = "~/.local/share/steward/logs"
//	level = "info"
//
//	[limits]
//	ranking_chunk = 1900
//	table_chunk = 2000
//	ranking_ceiling = 1900
//
//	[watch]
//	enabled = true
//	interval_seconds = 30
//
//	[console]
//	theme = "Dracula"
//
// # Size Limits
//
// The chunk sizes are opaque to the packer; they only need to stay under the
// platform's message limit with some margin. ranking_ceiling caps the total
// length of a ranking reply; zero lets the ranking span several messages.
//
// # Path Expansion
//
// Paths beginning with ~ are expanded to the user's home directory and then
// made absolute. Surrounding whitespace is trimmed from every string value.
package config
