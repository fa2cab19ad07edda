package ui

import "github.com/charmbracelet/lipgloss"

// Colors used in the application.
var (
	colorPrimary   = lipgloss.Color("62")  // Purple
	colorSecondary = lipgloss.Color("241") // Gray
	colorMuted     = lipgloss.Color("240") // Darker gray
	colorHighlight = lipgloss.Color("212") // Pink
	colorSuccess   = lipgloss.Color("78")  // Green
	colorDay       = lipgloss.Color("214") // Amber
	colorNight     = lipgloss.Color("99")  // Violet
)

// HeaderStyle for the application title.
var HeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("255")).
	Background(colorPrimary).
	Padding(0, 1)

// HeaderMeta style for the backend address next to the title.
var HeaderMeta = lipgloss.NewStyle().
	Foreground(colorSecondary).
	Padding(0, 1)

// PanelTitle style for section headings.
var PanelTitle = lipgloss.NewStyle().
	Bold(true).
	Foreground(colorHighlight).
	Padding(0, 1)

// ImageLine style for the selected image summary.
var ImageLine = lipgloss.NewStyle().
	Foreground(lipgloss.Color("255")).
	Padding(0, 1)

// MutedText style for hints and empty states.
var MutedText = lipgloss.NewStyle().
	Foreground(colorMuted).
	Padding(0, 1)

// DayCard frames an event card with a daytime atmosphere.
var DayCard = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(colorDay).
	Padding(0, 1)

// NightCard frames an event card with a nighttime atmosphere.
var NightCard = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(colorNight).
	Padding(0, 1)

// CardTitle style for the event title.
var CardTitle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("255"))

// CardLabel style for field labels on the card.
var CardLabel = lipgloss.NewStyle().
	Foreground(colorSecondary)

// DayBadge styles the daytime atmosphere label.
var DayBadge = lipgloss.NewStyle().
	Foreground(lipgloss.Color("232")).
	Background(colorDay).
	Padding(0, 1)

// NightBadge styles the nighttime atmosphere label.
var NightBadge = lipgloss.NewStyle().
	Foreground(lipgloss.Color("255")).
	Background(colorNight).
	Padding(0, 1)

// FragmentChip style for one recognized text fragment.
var FragmentChip = lipgloss.NewStyle().
	Foreground(lipgloss.Color("255")).
	Background(lipgloss.Color("236")).
	Padding(0, 1).
	MarginRight(1)

// SelectedItem style for the highlighted history entry.
var SelectedItem = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("255")).
	Background(colorPrimary).
	Padding(0, 1)

// NormalItem style for other history entries.
var NormalItem = lipgloss.NewStyle().
	Foreground(lipgloss.Color("255")).
	Padding(0, 1)

// HistoryMeta style for timestamp and location under a history entry.
var HistoryMeta = lipgloss.NewStyle().
	Foreground(colorSecondary).
	Padding(0, 1)

// SpinnerStyle colors the extraction spinner.
var SpinnerStyle = lipgloss.NewStyle().
	Foreground(colorHighlight)

// StatusBar style for the bottom status bar.
var StatusBar = lipgloss.NewStyle().
	Foreground(lipgloss.Color("255")).
	Background(lipgloss.Color("236")).
	Padding(0, 1)

// StatusBarKey style for key hints in status bar.
var StatusBarKey = lipgloss.NewStyle().
	Foreground(colorHighlight).
	Bold(true)

// StatusBarText style for descriptive text in status bar.
var StatusBarText = lipgloss.NewStyle().
	Foreground(colorSecondary)

// InputBar style for the image path prompt.
var InputBar = lipgloss.NewStyle().
	Foreground(lipgloss.Color("255")).
	Background(lipgloss.Color("240")).
	Padding(0, 1)

// ErrorStyle for displaying errors.
var ErrorStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("196")).
	Bold(true).
	Padding(0, 1)

// NoticeStyle for transient confirmations such as clipboard copies.
var NoticeStyle = lipgloss.NewStyle().
	Foreground(colorSuccess).
	Bold(true).
	Padding(0, 1)

// HelpStyle for help text.
var HelpStyle = lipgloss.NewStyle().
	Foreground(colorMuted).
	Padding(1, 2)

// DebugPanel frames the debug overlay.
var DebugPanel = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(colorPrimary).
	Padding(1, 2)

// DebugHeaderStyle for section headers inside the debug overlay.
var DebugHeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(colorHighlight)
