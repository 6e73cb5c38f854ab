package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
)

const (
	fieldHost = iota
	fieldToken
	fieldCount
)

type loginModel struct {
	inputs   []textinput.Model
	focused  int
	busy     bool
	scanning bool
	err      string
	info     string
	keys     loginKeyMap
}

func newLoginModel(host, token string) loginModel {
	hostInput := textinput.New()
	hostInput.Placeholder = "192.168.1.50"
	hostInput.CharLimit = 255
	hostInput.Width = 40
	hostInput.SetValue(host)

	tokenInput := textinput.New()
	tokenInput.Placeholder = "long-lived access token"
	tokenInput.EchoMode = textinput.EchoPassword
	tokenInput.EchoCharacter = '•'
	tokenInput.Width = 40
	tokenInput.SetValue(token)

	m := loginModel{
		inputs: []textinput.Model{hostInput, tokenInput},
		keys:   newLoginKeys(),
	}
	m.inputs[fieldHost].Focus()
	return m
}

func (m loginModel) Init() tea.Cmd {
	return textinput.Blink
}

// focus moves the cursor to field i
func (m *loginModel) focus(i int) tea.Cmd {
	m.focused = (i + fieldCount) % fieldCount
	var cmd tea.Cmd
	for j := range m.inputs {
		if j == m.focused {
			cmd = m.inputs[j].Focus()
		} else {
			m.inputs[j].Blur()
		}
	}
	return cmd
}

func (m AppModel) updateLogin(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(keyMsg, m.login.keys.Quit):
			return m, tea.Quit
		case key.Matches(keyMsg, m.login.keys.Next):
			cmd := m.login.focus(m.login.focused + 1)
			return m, cmd
		case key.Matches(keyMsg, m.login.keys.Prev):
			cmd := m.login.focus(m.login.focused - 1)
			return m, cmd
		case key.Matches(keyMsg, m.login.keys.Submit):
			return m.submitLogin()
		case key.Matches(keyMsg, m.login.keys.Discover):
			return m.startScan()
		}
	}

	if m.login.busy {
		return m, nil
	}

	var cmd tea.Cmd
	m.login.inputs[m.login.focused], cmd = m.login.inputs[m.login.focused].Update(msg)
	return m, cmd
}

// submitLogin runs the login in a command so the loop keeps rendering
func (m AppModel) submitLogin() (tea.Model, tea.Cmd) {
	if m.login.busy {
		return m, nil
	}

	host := m.login.inputs[fieldHost].Value()
	token := m.login.inputs[fieldToken].Value()
	if strings.TrimSpace(host) == "" || strings.TrimSpace(token) == "" {
		m.login.err = "please fill in all fields"
		return m, nil
	}

	m.unmount()
	m.login.busy = true
	m.login.err = ""
	m.login.info = ""

	manager := m.deps.Auth
	timeout := m.deps.LoginTimeout
	return m, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		_, err := manager.Login(ctx, host, token)
		return loginResultMsg{err: err}
	}
}

func (m AppModel) startScan() (tea.Model, tea.Cmd) {
	if m.deps.Scanner == nil || m.login.scanning || m.login.busy {
		return m, nil
	}
	m.login.scanning = true
	m.login.info = "Searching the local network…"

	scanner := m.deps.Scanner
	return m, func() tea.Msg {
		instances, err := scanner.Scan(context.Background())
		return scanResultMsg{instances: instances, err: err}
	}
}

func (m AppModel) handleScan(msg scanResultMsg) AppModel {
	switch {
	case msg.err != nil:
		m.deps.Logger.Warn("Discovery failed", zap.Error(msg.err))
		m.login.info = "Discovery failed: " + msg.err.Error()
	case len(msg.instances) == 0:
		m.login.info = "No Home Assistant found on the local network"
	default:
		inst := msg.instances[0]
		m.login.inputs[fieldHost].SetValue(inst.Host())
		m.login.info = fmt.Sprintf("Found %s at %s", inst.Name, inst.Host())
		if len(msg.instances) > 1 {
			m.login.info += fmt.Sprintf(" (%d more)", len(msg.instances)-1)
		}
	}
	return m
}

func (m AppModel) viewLogin() string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render(AppName))
	b.WriteString("\n")
	b.WriteString(SubtitleStyle.Render("Connect to your Home Assistant instance"))
	b.WriteString("\n\n")

	b.WriteString(LabelStyle.Render("Host"))
	b.WriteString(m.login.inputs[fieldHost].View())
	b.WriteString("\n")
	b.WriteString(LabelStyle.Render("Token"))
	b.WriteString(m.login.inputs[fieldToken].View())
	b.WriteString("\n")

	if m.login.busy {
		b.WriteString("\nConnecting…\n")
	}
	if m.login.info != "" {
		b.WriteString("\n" + SubtitleStyle.Render(m.login.info) + "\n")
	}
	if m.login.err != "" {
		b.WriteString(ErrorStyle.Render(m.login.err))
		b.WriteString("\n")
	}

	b.WriteString(HelpStyle.Render(m.Help.View(m.login.keys)))
	return b.String()
}
