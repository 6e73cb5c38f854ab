package tui

import "github.com/charmbracelet/lipgloss"

// AppName is shown in every screen header
const AppName = "HOME ASSISTANT LIGHTS"

// Color palette
var (
	PrimaryColor   = lipgloss.Color("#03A9F4") // Home Assistant blue
	SecondaryColor = lipgloss.Color("#43BF6D") // Green
	WarmColor      = lipgloss.Color("#FFB74D") // Amber
	ErrorColor     = lipgloss.Color("#FF5252") // Red
	TextColor      = lipgloss.Color("#FFFFFF")
	SubtleColor    = lipgloss.Color("#626262")
)

var (
	TitleStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor).
			Bold(true).
			Padding(1, 0).
			MarginBottom(1)

	SubtitleStyle = lipgloss.NewStyle().
			Foreground(SubtleColor).
			Italic(true)

	LabelStyle = lipgloss.NewStyle().
			Foreground(SubtleColor).
			Width(8)

	ItemStyle = lipgloss.NewStyle().
			PaddingLeft(2).
			Foreground(TextColor)

	SelectedItemStyle = lipgloss.NewStyle().
				PaddingLeft(0).
				Foreground(SecondaryColor).
				Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ErrorColor).
			Bold(true).
			MarginTop(1)

	HelpStyle = lipgloss.NewStyle().
			Foreground(SubtleColor).
			Padding(1, 0)

	CardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(SubtleColor).
			Padding(0, 2).
			Width(48)

	FocusedCardStyle = CardStyle.
				BorderForeground(PrimaryColor)

	OnStyle = lipgloss.NewStyle().
		Foreground(WarmColor).
		Bold(true)

	OffStyle = lipgloss.NewStyle().
			Foreground(SubtleColor)

	ConnectedStyle = lipgloss.NewStyle().
			Foreground(SecondaryColor)

	DisconnectedStyle = lipgloss.NewStyle().
				Foreground(ErrorColor)
)
