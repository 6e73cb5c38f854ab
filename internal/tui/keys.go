package tui

import "github.com/charmbracelet/bubbles/key"

// loginKeyMap defines key bindings for the login screen
type loginKeyMap struct {
	Next     key.Binding
	Prev     key.Binding
	Submit   key.Binding
	Discover key.Binding
	Quit     key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k loginKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Next, k.Submit, k.Discover, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k loginKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Next, k.Prev, k.Submit}, {k.Discover, k.Quit}}
}

// selectKeyMap defines key bindings for the light selection screen
type selectKeyMap struct {
	Up      key.Binding
	Down    key.Binding
	Toggle  key.Binding
	All     key.Binding
	Confirm key.Binding
	Logout  key.Binding
	Quit    key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k selectKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.All, k.Confirm, k.Logout, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k selectKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Up, k.Down, k.Toggle, k.All}, {k.Confirm, k.Logout, k.Quit}}
}

// displayKeyMap defines key bindings for the light control screen
type displayKeyMap struct {
	Up       key.Binding
	Down     key.Binding
	Power    key.Binding
	Dimmer   key.Binding
	Brighter key.Binding
	Warmer   key.Binding
	Cooler   key.Binding
	Select   key.Binding
	Logout   key.Binding
	Quit     key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k displayKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Power, k.Dimmer, k.Brighter, k.Warmer, k.Cooler, k.Select, k.Logout, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k displayKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Power},
		{k.Dimmer, k.Brighter, k.Warmer, k.Cooler},
		{k.Select, k.Logout, k.Quit},
	}
}

func newLoginKeys() loginKeyMap {
	return loginKeyMap{
		Next:     key.NewBinding(key.WithKeys("tab", "down"), key.WithHelp("tab", "next field")),
		Prev:     key.NewBinding(key.WithKeys("shift+tab", "up"), key.WithHelp("shift+tab", "previous field")),
		Submit:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "connect")),
		Discover: key.NewBinding(key.WithKeys("ctrl+f"), key.WithHelp("ctrl+f", "find on network")),
		Quit:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "quit")),
	}
}

func newSelectKeys() selectKeyMap {
	return selectKeyMap{
		Up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Toggle:  key.NewBinding(key.WithKeys(" ", "x"), key.WithHelp("space", "toggle")),
		All:     key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "toggle all")),
		Confirm: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "confirm")),
		Logout:  key.NewBinding(key.WithKeys("L"), key.WithHelp("L", "log out")),
		Quit:    key.NewBinding(key.WithKeys("q", "esc"), key.WithHelp("q", "quit")),
	}
}

func newDisplayKeys() displayKeyMap {
	return displayKeyMap{
		Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Power:    key.NewBinding(key.WithKeys(" ", "enter"), key.WithHelp("space", "on/off")),
		Dimmer:   key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←", "dimmer")),
		Brighter: key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→", "brighter")),
		Warmer:   key.NewBinding(key.WithKeys("["), key.WithHelp("[", "warmer")),
		Cooler:   key.NewBinding(key.WithKeys("]"), key.WithHelp("]", "cooler")),
		Select:   key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "change selection")),
		Logout:   key.NewBinding(key.WithKeys("L"), key.WithHelp("L", "log out")),
		Quit:     key.NewBinding(key.WithKeys("q", "esc"), key.WithHelp("q", "quit")),
	}
}
