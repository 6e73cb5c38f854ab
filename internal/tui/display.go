package tui

import (
	"fmt"
	"strings"

	"halights/internal/ha"
	"halights/internal/lights"
	"halights/internal/views"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
)

// Control steps for the slider keys
const (
	brightnessStep = 10
	kelvinStep     = 250
)

type displayModel struct {
	ctrl   *views.DisplayController
	cursor int
	err    string
}

var (
	displayKeys = newDisplayKeys()
	levelBar    = progress.New(progress.WithSolidFill(string(WarmColor)), progress.WithWidth(24), progress.WithoutPercentage())
)

func (m AppModel) updateDisplay(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok || m.display.ctrl == nil {
		return m, nil
	}

	ctrl := m.display.ctrl
	entities := ctrl.Entities()

	var current *ha.State
	if m.display.cursor < len(entities) {
		current = entities[m.display.cursor]
	}

	var err error
	switch {
	case key.Matches(keyMsg, displayKeys.Quit):
		m.unmount()
		return m, tea.Quit
	case key.Matches(keyMsg, displayKeys.Logout):
		return m.logout()
	case key.Matches(keyMsg, displayKeys.Select):
		return m.navigate(ScreenSelect)
	case key.Matches(keyMsg, displayKeys.Up):
		if m.display.cursor > 0 {
			m.display.cursor--
		}
	case key.Matches(keyMsg, displayKeys.Down):
		if m.display.cursor < len(entities)-1 {
			m.display.cursor++
		}
	case current == nil:
		return m, nil
	case key.Matches(keyMsg, displayKeys.Power):
		err = ctrl.TogglePower(current.EntityID)
	case key.Matches(keyMsg, displayKeys.Dimmer), key.Matches(keyMsg, displayKeys.Brighter):
		if !showBrightness(current) {
			return m, nil
		}
		step := brightnessStep
		if key.Matches(keyMsg, displayKeys.Dimmer) {
			step = -step
		}
		err = ctrl.SetBrightness(current.EntityID, lights.BrightnessPercent(current)+step)
	case key.Matches(keyMsg, displayKeys.Warmer), key.Matches(keyMsg, displayKeys.Cooler):
		if !showColorTemp(current) {
			return m, nil
		}
		step := kelvinStep
		if key.Matches(keyMsg, displayKeys.Warmer) {
			step = -step
		}
		err = ctrl.SetColorTemp(current.EntityID, lights.Kelvin(current)+step)
	}

	if err != nil {
		m.deps.Logger.Warn("Control failed", zap.Error(err))
		m.display.err = err.Error()
	} else {
		m.display.err = ""
	}
	return m, nil
}

// showBrightness reports whether the brightness control is offered
func showBrightness(s *ha.State) bool {
	return lights.IsOn(s) && lights.HasBrightness(s)
}

// showColorTemp reports whether the color temperature control is offered
func showColorTemp(s *ha.State) bool {
	return lights.IsOn(s) && lights.HasColorTemp(s)
}

func (m AppModel) viewDisplay() string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render(AppName))
	b.WriteString("\n")

	ctrl := m.display.ctrl
	if ctrl == nil {
		return b.String()
	}

	if ctrl.Connected() {
		b.WriteString(ConnectedStyle.Render("● Connected"))
	} else {
		b.WriteString(DisconnectedStyle.Render("● Disconnected"))
	}
	b.WriteString("\n\n")

	switch {
	case ctrl.Loading():
		b.WriteString("Loading lights…\n")
	case len(ctrl.Entities()) == 0:
		b.WriteString(ItemStyle.Render("None of the selected lights were found"))
		b.WriteString("\n")
	}

	for i, e := range ctrl.Entities() {
		b.WriteString(renderCard(e, i == m.display.cursor))
		b.WriteString("\n")
	}

	if err := ctrl.Err(); err != nil {
		b.WriteString(ErrorStyle.Render(err.Error()))
		b.WriteString("\n")
	}
	if m.display.err != "" {
		b.WriteString(ErrorStyle.Render(m.display.err))
		b.WriteString("\n")
	}

	b.WriteString(HelpStyle.Render(m.Help.View(displayKeys)))
	return b.String()
}

func renderCard(e *ha.State, focused bool) string {
	var content strings.Builder

	power := OffStyle.Render("OFF")
	if lights.IsOn(e) {
		power = OnStyle.Render("ON")
	}
	content.WriteString(fmt.Sprintf("%s  %s", e.FriendlyName(), power))

	if showBrightness(e) {
		pct := lights.BrightnessPercent(e)
		content.WriteString(fmt.Sprintf("\nBrightness  %s %3d%%", levelBar.ViewAs(float64(pct)/100), pct))
	}
	if showColorTemp(e) {
		k := lights.Kelvin(e)
		span := float64(lights.MaxKelvin - lights.MinKelvin)
		content.WriteString(fmt.Sprintf("\nColor temp  %s %dK", levelBar.ViewAs(float64(k-lights.MinKelvin)/span), k))
	}

	if focused {
		return FocusedCardStyle.Render(content.String())
	}
	return CardStyle.Render(content.String())
}
