package tui

import (
	"fmt"
	"strings"

	"halights/internal/views"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

type selectModel struct {
	ctrl   *views.SelectController
	cursor int
	err    string
}

var selectKeys = newSelectKeys()

func (m AppModel) updateSelect(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok || m.selects.ctrl == nil {
		return m, nil
	}

	ctrl := m.selects.ctrl
	entities := ctrl.Entities()

	switch {
	case key.Matches(keyMsg, selectKeys.Quit):
		m.unmount()
		return m, tea.Quit
	case key.Matches(keyMsg, selectKeys.Logout):
		return m.logout()
	case key.Matches(keyMsg, selectKeys.Up):
		if m.selects.cursor > 0 {
			m.selects.cursor--
		}
	case key.Matches(keyMsg, selectKeys.Down):
		if m.selects.cursor < len(entities)-1 {
			m.selects.cursor++
		}
	case key.Matches(keyMsg, selectKeys.Toggle):
		if m.selects.cursor < len(entities) {
			ctrl.Toggle(entities[m.selects.cursor].EntityID)
			m.selects.err = ""
		}
	case key.Matches(keyMsg, selectKeys.All):
		ctrl.ToggleAll()
		m.selects.err = ""
	case key.Matches(keyMsg, selectKeys.Confirm):
		if err := ctrl.Confirm(); err != nil {
			m.selects.err = err.Error()
			return m, nil
		}
		return m.navigate(ScreenDisplay)
	}
	return m, nil
}

func (m AppModel) viewSelect() string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render(AppName))
	b.WriteString("\n")

	ctrl := m.selects.ctrl
	if ctrl == nil {
		return b.String()
	}

	entities := ctrl.Entities()
	b.WriteString(SubtitleStyle.Render(fmt.Sprintf("Select lights (%d of %d)", len(ctrl.Selected()), len(entities))))
	b.WriteString("\n\n")

	switch {
	case ctrl.Err() != nil:
		b.WriteString(ErrorStyle.Render(ctrl.Err().Error()))
		b.WriteString("\n")
	case ctrl.Loading():
		b.WriteString("Loading lights…\n")
	case len(entities) == 0:
		b.WriteString(ItemStyle.Render("No lights found"))
		b.WriteString("\n")
	}

	for i, e := range entities {
		box := "[ ]"
		if ctrl.IsSelected(e.EntityID) {
			box = "[x]"
		}
		line := fmt.Sprintf("%s %s  %s", box, e.FriendlyName(), SubtitleStyle.Render(e.EntityID))
		if i == m.selects.cursor {
			b.WriteString(SelectedItemStyle.Render("→ " + line))
		} else {
			b.WriteString(ItemStyle.Render(line))
		}
		b.WriteString("\n")
	}

	if m.selects.err != "" {
		b.WriteString(ErrorStyle.Render(m.selects.err))
		b.WriteString("\n")
	}

	b.WriteString(HelpStyle.Render(m.Help.View(selectKeys)))
	return b.String()
}
