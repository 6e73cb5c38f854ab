// Package tui renders the Login, Select and Display screens with Bubble Tea.
// Screen logic lives in the views controllers; the models here translate key
// presses into controller calls and draw controller state.
package tui

import (
	"context"
	"errors"
	"time"

	"halights/internal/auth"
	"halights/internal/discovery"
	"halights/internal/ha"
	"halights/internal/views"

	"github.com/charmbracelet/bubbles/help"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
)

// Screen represents the current active screen in the application
type Screen string

const (
	ScreenLogin   Screen = "login"
	ScreenSelect  Screen = "select"
	ScreenDisplay Screen = "display"
)

// connectFailedText is shown for every handshake failure
const connectFailedText = "Connection failed. Please check your credentials."

// Scanner finds Home Assistant instances; *discovery.Scanner satisfies it
type Scanner interface {
	Scan(ctx context.Context) ([]*discovery.Instance, error)
}

// Deps are the collaborators the app needs
type Deps struct {
	Auth    *auth.Manager
	Scanner Scanner // optional
	Logger  *zap.Logger

	// Prefill for the login form; the saved credential is used when empty
	Host  string
	Token string

	// LoginTimeout bounds a login attempt on top of the handshake timer
	LoginTimeout time.Duration
}

type loginResultMsg struct {
	err error
}

type scanResultMsg struct {
	instances []*discovery.Instance
	err       error
}

// AppModel is the top-level model that owns screen transitions
type AppModel struct {
	deps Deps
	post views.Poster

	Screen Screen

	login   loginModel
	selects selectModel
	display displayModel

	Width  int
	Height int
	Help   help.Model
}

// New creates the app on the Login screen. post must run callbacks on the
// Bubble Tea loop.
func New(deps Deps, post views.Poster) AppModel {
	if deps.LoginTimeout <= 0 {
		deps.LoginTimeout = 2 * ha.DefaultConnectTimeout
	}

	host, token := deps.Host, deps.Token
	if saved, ok := deps.Auth.Saved(); ok {
		if host == "" {
			host = saved.Host
		}
		if token == "" {
			token = saved.Token
		}
	}

	return AppModel{
		deps:   deps,
		post:   post,
		Screen: ScreenLogin,
		login:  newLoginModel(host, token),
		Help:   help.New(),
	}
}

// Run starts the program and blocks until the user quits
func Run(deps Deps) error {
	queue := newLoopQueue()
	program := tea.NewProgram(New(deps, queue.Post), tea.WithAltScreen())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go queue.forward(ctx, program.Send)

	final, err := program.Run()
	if m, ok := final.(AppModel); ok {
		m.unmount()
	}
	return err
}

// Init implements tea.Model
func (m AppModel) Init() tea.Cmd {
	return m.login.Init()
}

// Update handles all messages and routes them to the current screen
func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.unmount()
			return m, tea.Quit
		}

	case runMsg:
		msg()
		return m, nil

	case loginResultMsg:
		m.login.busy = false
		if msg.err != nil {
			m.login.err = loginErrorText(msg.err)
			return m, nil
		}
		m.login.err = ""
		return m.navigate(ScreenSelect)

	case scanResultMsg:
		m.login.scanning = false
		return m.handleScan(msg), nil
	}

	switch m.Screen {
	case ScreenLogin:
		return m.updateLogin(msg)
	case ScreenSelect:
		return m.updateSelect(msg)
	case ScreenDisplay:
		return m.updateDisplay(msg)
	}
	return m, nil
}

// View implements tea.Model
func (m AppModel) View() string {
	switch m.Screen {
	case ScreenSelect:
		return m.viewSelect()
	case ScreenDisplay:
		return m.viewDisplay()
	default:
		return m.viewLogin()
	}
}

// channel returns the live session as a Channel, or nil when logged out
func (m AppModel) channel() ha.Channel {
	if s := m.deps.Auth.Session(); s != nil {
		return s
	}
	return nil
}

// unmount detaches whichever controller is mounted
func (m *AppModel) unmount() {
	if m.selects.ctrl != nil {
		m.selects.ctrl.Unmount()
		m.selects.ctrl = nil
	}
	if m.display.ctrl != nil {
		m.display.ctrl.Unmount()
		m.display.ctrl = nil
	}
}

// navigate leaves the current screen and mounts the next one, following the
// guard redirects: no session goes to Login, no selection goes to Select.
func (m AppModel) navigate(screen Screen) (tea.Model, tea.Cmd) {
	m.unmount()
	store := m.deps.Auth.Store()

	switch screen {
	case ScreenSelect:
		ctrl := views.NewSelectController(m.channel(), store, m.post, m.deps.Logger)
		if err := ctrl.Mount(); err != nil {
			return m.redirect(err)
		}
		m.selects = selectModel{ctrl: ctrl}

	case ScreenDisplay:
		ctrl := views.NewDisplayController(m.channel(), store, m.post, m.deps.Logger)
		if err := ctrl.Mount(); err != nil {
			return m.redirect(err)
		}
		m.display = displayModel{ctrl: ctrl}

	case ScreenLogin:
		m.Screen = ScreenLogin
		cmd := m.login.focus(0)
		return m, cmd
	}

	m.Screen = screen
	m.deps.Logger.Debug("Screen changed", zap.String("screen", string(screen)))
	return m, nil
}

func (m AppModel) redirect(err error) (tea.Model, tea.Cmd) {
	switch {
	case errors.Is(err, views.ErrNoSelection):
		return m.navigate(ScreenSelect)
	case errors.Is(err, views.ErrNoSession):
		return m.navigate(ScreenLogin)
	default:
		m.deps.Logger.Warn("Failed to open screen", zap.Error(err))
		m.login.err = err.Error()
		return m.navigate(ScreenLogin)
	}
}

// logout tears the session down and returns to an empty Login form
func (m AppModel) logout() (tea.Model, tea.Cmd) {
	m.unmount()
	if err := m.deps.Auth.Logout(); err != nil {
		m.deps.Logger.Error("Logout failed", zap.Error(err))
	}
	m.login = newLoginModel("", "")
	return m.navigate(ScreenLogin)
}

func loginErrorText(err error) string {
	if errors.Is(err, auth.ErrValidation) {
		return validationText(err)
	}
	return connectFailedText
}

// validationText strips the sentinel prefix from a validation error
func validationText(err error) string {
	msg := err.Error()
	prefix := auth.ErrValidation.Error() + ": "
	if len(msg) > len(prefix) && msg[:len(prefix)] == prefix {
		return msg[len(prefix):]
	}
	return msg
}
