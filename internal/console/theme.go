package console

import "github.com/charmbracelet/lipgloss"

// Theme defines the console palette.
type Theme struct {
	Name string

	Surface    string // header and footer bars
	Background string
	Border     string

	Text    string
	Muted   string
	Accent  string
	Success string
	Warning string
	Danger  string
	Info    string
}

// Styles contains pre-built Lipgloss styles for the theme.
type Styles struct {
	Header lipgloss.Style
	Footer lipgloss.Style
	Title  lipgloss.Style
	Prompt lipgloss.Style

	Input   lipgloss.Style // echoed operator input
	Reply   lipgloss.Style
	Error   lipgloss.Style
	Feed    lipgloss.Style // error-log snapshots pushed by the watcher
	Outbox  lipgloss.Style // messages the bot would have sent
	Muted   lipgloss.Style
	Warning lipgloss.Style
	Rule    lipgloss.Style
}

// Styles returns Lipgloss styles for this theme.
func (t Theme) Styles() Styles {
	return Styles{
		Header: lipgloss.NewStyle().
			Background(lipgloss.Color(t.Surface)).
			Foreground(lipgloss.Color(t.Text)).
			Padding(0, 1),

		Footer: lipgloss.NewStyle().
			Background(lipgloss.Color(t.Surface)).
			Foreground(lipgloss.Color(t.Muted)).
			Padding(0, 1),

		Title: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Warning)).
			Bold(true),

		Prompt: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Accent)).
			Bold(true),

		Input:   lipgloss.NewStyle().Foreground(lipgloss.Color(t.Accent)),
		Reply:   lipgloss.NewStyle().Foreground(lipgloss.Color(t.Text)),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color(t.Danger)).Bold(true),
		Feed:    lipgloss.NewStyle().Foreground(lipgloss.Color(t.Warning)),
		Outbox:  lipgloss.NewStyle().Foreground(lipgloss.Color(t.Info)),
		Muted:   lipgloss.NewStyle().Foreground(lipgloss.Color(t.Muted)),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color(t.Warning)).Bold(true),
		Rule:    lipgloss.NewStyle().Foreground(lipgloss.Color(t.Border)),
	}
}

var themes = map[string]Theme{
	"Dracula": draculaTheme(),
	"Slate":   slateTheme(),
}

var themeOrder = []string{"Dracula", "Slate"}

// GetTheme returns a theme by name, Dracula when unknown.
func GetTheme(name string) Theme {
	if t, ok := themes[name]; ok {
		return t
	}
	return draculaTheme()
}

// NextTheme returns the next theme name in the cycle.
func NextTheme(current string) string {
	for i, name := range themeOrder {
		if name == current {
			return themeOrder[(i+1)%len(themeOrder)]
		}
	}
	return themeOrder[0]
}

func draculaTheme() Theme {
	// https://draculatheme.com/spec
	return Theme{
		Name:       "Dracula",
		Surface:    "#282A36",
		Background: "#191A21",
		Border:     "#44475A",
		Text:       "#F8F8F2",
		Muted:      "#6272A4",
		Accent:     "#BD93F9",
		Success:    "#50FA7B",
		Warning:    "#FFB86C",
		Danger:     "#FF5555",
		Info:       "#8BE9FD",
	}
}

func slateTheme() Theme {
	// Tailwind slate/sky
	return Theme{
		Name:       "Slate",
		Surface:    "#0f172a",
		Background: "#020617",
		Border:     "#334155",
		Text:       "#f1f5f9",
		Muted:      "#94a3b8",
		Accent:     "#38bdf8",
		Success:    "#22c55e",
		Warning:    "#f59e0b",
		Danger:     "#ef4444",
		Info:       "#06b6d4",
	}
}
