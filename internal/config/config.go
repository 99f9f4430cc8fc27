package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// Config is steward's runtime configuration.
type Config struct {
	Telegram Telegram `toml:"telegram"`
	Store    Store    `toml:"store"`
	Logs     Logs     `toml:"logs"`
	Limits   Limits   `toml:"limits"`
	Watch    Watch    `toml:"watch"`
	Console  Console  `toml:"console"`
}

// Telegram configures the chat platform connection.
type Telegram struct {
	Token      string `toml:"token"`
	OwnerID    int64  `toml:"owner_id"`
	StickerSet string `toml:"sticker_set"`
}

// Store configures the bot's SQLite database.
type Store struct {
	Path        string   `toml:"path"`
	BackupDir   string   `toml:"backup_dir"`
	PreviewRows int      `toml:"preview_rows"`
	Tables      []string `toml:"tables"`
}

// Logs configures log destinations.
type Logs struct {
	Dir   string `toml:"dir"`
	Level string `toml:"level"`
}

// Limits holds the reply size caps, in characters.
type Limits struct {
	RankingChunk   int `toml:"ranking_chunk"`
	TableChunk     int `toml:"table_chunk"`
	RankingCeiling int `toml:"ranking_ceiling"`
}

// Watch configures the background error-log watcher.
type Watch struct {
	Enabled         bool  `toml:"enabled"`
	IntervalSeconds int   `toml:"interval_seconds"`
	NotifyChat      int64 `toml:"notify_chat"`
}

// Console configures the local operator console.
type Console struct {
	Theme string `toml:"theme"`
}

const (
	defaultConfigPath  = "~/.config/steward/config.toml"
	defaultStorePath   = "~/.local/share/steward/bot.db"
	defaultBackupDir   = "~/.local/share/steward/backups"
	defaultLogDir      = "~/.local/share/steward/logs"
	defaultLogLevel    = "info"
	defaultPreviewRows = 5
	defaultRanking     = 1900
	defaultTable       = 2000
	defaultWatchEvery  = 30
	defaultTheme       = "Dracula"

	tokenEnv = "STEWARD_TELEGRAM_TOKEN"
)

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Store: Store{
			Path:        mustExpand(defaultStorePath),
			BackupDir:   mustExpand(defaultBackupDir),
			PreviewRows: defaultPreviewRows,
		},
		Logs: Logs{Dir: mustExpand(defaultLogDir), Level: defaultLogLevel},
		Limits: Limits{
			RankingChunk:   defaultRanking,
			TableChunk:     defaultTable,
			RankingCeiling: defaultRanking,
		},
		Watch:   Watch{IntervalSeconds: defaultWatchEvery},
		Console: Console{Theme: defaultTheme},
	}
}

// Load locates and parses the steward config, falling back to defaults when
// missing.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := Default()
			cfg.applyEnv(os.Getenv)
			return cfg, nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := toml.Unmarshal(bytes, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg.normalize()
	cfg.applyEnv(os.Getenv)
	return cfg, nil
}

func (c *Config) normalize() {
	c.Telegram.Token = strings.TrimSpace(c.Telegram.Token)
	c.Telegram.StickerSet = strings.TrimSpace(c.Telegram.StickerSet)

	c.Store.Path = expandOr(c.Store.Path, defaultStorePath)
	c.Store.BackupDir = expandOr(c.Store.BackupDir, defaultBackupDir)
	if c.Store.PreviewRows <= 0 {
		c.Store.PreviewRows = defaultPreviewRows
	}
	tables := c.Store.Tables[:0]
	for _, name := range c.Store.Tables {
		if name = strings.TrimSpace(name); name != "" {
			tables = append(tables, name)
		}
	}
	c.Store.Tables = tables

	c.Logs.Dir = expandOr(c.Logs.Dir, defaultLogDir)
	c.Logs.Level = strings.ToLower(strings.TrimSpace(c.Logs.Level))
	if c.Logs.Level == "" {
		c.Logs.Level = defaultLogLevel
	}

	if c.Limits.RankingChunk <= 0 {
		c.Limits.RankingChunk = defaultRanking
	}
	if c.Limits.TableChunk <= 0 {
		c.Limits.TableChunk = defaultTable
	}
	if c.Limits.RankingCeiling < 0 {
		c.Limits.RankingCeiling = 0
	}

	if c.Watch.IntervalSeconds <= 0 {
		c.Watch.IntervalSeconds = defaultWatchEvery
	}

	c.Console.Theme = strings.TrimSpace(c.Console.Theme)
	if c.Console.Theme == "" {
		c.Console.Theme = defaultTheme
	}
}

func (c *Config) applyEnv(getenv func(string) string) {
	if token := strings.TrimSpace(getenv(tokenEnv)); token != "" {
		c.Telegram.Token = token
	}
}

// ErrorLogPath returns the path of the error log the bot writes and the
// errors command tails.
func (c Config) ErrorLogPath() string {
	return filepath.Join(c.logDir(), "errors.log")
}

// MembershipLogPath returns the path of the member join/leave log.
func (c Config) MembershipLogPath() string {
	return filepath.Join(c.logDir(), "joinleave.log")
}

func (c Config) logDir() string {
	if strings.TrimSpace(c.Logs.Dir) == "" {
		return mustExpand(defaultLogDir)
	}
	return c.Logs.Dir
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func expandOr(path, fallback string) string {
	if strings.TrimSpace(path) == "" {
		path = fallback
	}
	return mustExpand(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
