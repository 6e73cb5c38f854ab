package tui

import (
	"context"
	"strings"
	"testing"
	"time"

	"halights/internal/discovery"
	"halights/internal/storage"
	"halights/pkg/testutil"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testLoop collects posted callbacks so the test goroutine can run them the
// way the Bubble Tea loop would
type testLoop struct {
	funcs chan func()
}

func newTestLoop() *testLoop {
	return &testLoop{funcs: make(chan func(), 256)}
}

func (l *testLoop) post(f func()) {
	l.funcs <- f
}

// pump feeds posted callbacks into m until done reports true
func (l *testLoop) pump(t *testing.T, m AppModel, done func(AppModel) bool) AppModel {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for !done(m) {
		select {
		case f := <-l.funcs:
			updated, _ := m.Update(runMsg(f))
			m = updated.(AppModel)
		case <-deadline:
			t.Fatal("timed out waiting for model state")
		}
	}
	return m
}

func press(t *testing.T, m AppModel, k tea.KeyMsg) (AppModel, tea.Cmd) {
	t.Helper()
	updated, cmd := m.Update(k)
	return updated.(AppModel), cmd
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

var (
	enter = tea.KeyMsg{Type: tea.KeyEnter}
	space = tea.KeyMsg{Type: tea.KeySpace}
)

// loggedIn drives the login form to the Select screen
func loggedIn(t *testing.T, env *testutil.TestEnv, loop *testLoop) AppModel {
	t.Helper()

	m := New(Deps{Auth: env.Auth, Logger: env.Logger, Host: "192.168.1.50", Token: env.Token}, loop.post)
	m, cmd := press(t, m, enter)
	require.NotNil(t, cmd)
	assert.True(t, m.login.busy)

	updated, _ := m.Update(cmd())
	m = updated.(AppModel)
	require.Equal(t, ScreenSelect, m.Screen, m.login.err)

	return loop.pump(t, m, func(m AppModel) bool { return !m.selects.ctrl.Loading() })
}

func TestLogin_EmptyFields(t *testing.T) {
	env := testutil.NewTestEnv("test_token")
	defer env.Cleanup()

	m := New(Deps{Auth: env.Auth, Logger: env.Logger}, newTestLoop().post)
	m, cmd := press(t, m, enter)

	assert.Nil(t, cmd)
	assert.Equal(t, ScreenLogin, m.Screen)
	assert.Equal(t, "please fill in all fields", m.login.err)
	assert.Contains(t, m.View(), "please fill in all fields")
}

func TestLogin_InvalidToken(t *testing.T) {
	env := testutil.NewTestEnv("test_token")
	defer env.Cleanup()

	m := New(Deps{Auth: env.Auth, Logger: env.Logger, Host: "192.168.1.50", Token: "wrong"}, newTestLoop().post)
	m, cmd := press(t, m, enter)
	require.NotNil(t, cmd)

	updated, _ := m.Update(cmd())
	m = updated.(AppModel)

	assert.Equal(t, ScreenLogin, m.Screen)
	assert.False(t, m.login.busy)
	assert.Equal(t, connectFailedText, m.login.err)
}

func TestLogin_PrefillsSavedCredential(t *testing.T) {
	env := testutil.NewTestEnv("test_token")
	defer env.Cleanup()

	require.NoError(t, storage.SaveCredential(env.Store, storage.Credential{Host: "10.0.0.9", Token: "saved"}))

	m := New(Deps{Auth: env.Auth, Logger: env.Logger}, newTestLoop().post)
	assert.Equal(t, "10.0.0.9", m.login.inputs[fieldHost].Value())
	assert.Equal(t, "saved", m.login.inputs[fieldToken].Value())
}

func TestSelect_ConfirmRequiresSelection(t *testing.T) {
	env := testutil.NewTestEnv("test_token")
	defer env.Cleanup()

	loop := newTestLoop()
	m := loggedIn(t, env, loop)
	assert.Len(t, m.selects.ctrl.Entities(), 2)

	m, _ = press(t, m, enter)
	assert.Equal(t, ScreenSelect, m.Screen)
	assert.Equal(t, "please select at least one device", m.selects.err)
}

func TestFlow_SelectDisplayControlLogout(t *testing.T) {
	env := testutil.NewTestEnv("test_token")
	defer env.Cleanup()

	loop := newTestLoop()
	m := loggedIn(t, env, loop)

	// select light.a and confirm
	m, _ = press(t, m, space)
	m, _ = press(t, m, enter)
	require.Equal(t, ScreenDisplay, m.Screen)

	m = loop.pump(t, m, func(m AppModel) bool { return !m.display.ctrl.Loading() })
	require.Len(t, m.display.ctrl.Entities(), 1)
	assert.Contains(t, m.View(), "Lamp A")
	assert.Contains(t, m.View(), "Connected")

	env.Server.ClearServiceCalls()
	m, _ = press(t, m, space)

	m = loop.pump(t, m, func(m AppModel) bool {
		e := m.display.ctrl.Entity("light.a")
		return e != nil && e.State == "off"
	})
	calls := env.Server.GetServiceCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "turn_off", calls[0].Service)
	assert.Equal(t, "light.a", calls[0].EntityID)
	assert.Contains(t, m.View(), "OFF")

	m, _ = press(t, m, runes("L"))
	assert.Equal(t, ScreenLogin, m.Screen)
	assert.Nil(t, env.Auth.Session())
	assert.Empty(t, m.login.inputs[fieldHost].Value())

	_, ok, err := env.Store.Get(storage.KeySelection)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDisplay_BrightnessKeys(t *testing.T) {
	env := testutil.NewTestEnv("test_token")
	defer env.Cleanup()

	loop := newTestLoop()
	m := loggedIn(t, env, loop)
	m, _ = press(t, m, space)
	m, _ = press(t, m, enter)
	m = loop.pump(t, m, func(m AppModel) bool { return !m.display.ctrl.Loading() })

	env.Server.ClearServiceCalls()
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyLeft})

	m = loop.pump(t, m, func(m AppModel) bool {
		return len(env.Server.GetServiceCalls()) == 1
	})
	call := env.Server.GetServiceCalls()[0]
	assert.Equal(t, "turn_on", call.Service)
	assert.Equal(t, float64(230), call.ServiceData["brightness"])
	assert.Empty(t, m.display.err)
}

func TestNavigate_DisplayWithoutSelectionRedirects(t *testing.T) {
	env := testutil.NewTestEnv("test_token")
	defer env.Cleanup()

	m := loggedIn(t, env, newTestLoop())
	updated, _ := m.navigate(ScreenDisplay)
	assert.Equal(t, ScreenSelect, updated.(AppModel).Screen)
}

func TestNavigate_WithoutSessionRedirects(t *testing.T) {
	env := testutil.NewTestEnv("test_token")
	defer env.Cleanup()

	m := New(Deps{Auth: env.Auth, Logger: env.Logger}, newTestLoop().post)
	updated, _ := m.navigate(ScreenSelect)
	assert.Equal(t, ScreenLogin, updated.(AppModel).Screen)
}

type fakeScanner struct {
	instances []*discovery.Instance
}

func (f fakeScanner) Scan(ctx context.Context) ([]*discovery.Instance, error) {
	return f.instances, nil
}

func TestLogin_DiscoveryFillsHost(t *testing.T) {
	env := testutil.NewTestEnv("test_token")
	defer env.Cleanup()

	scanner := fakeScanner{instances: []*discovery.Instance{{Name: "Cottage", IP: "192.168.1.77"}}}
	m := New(Deps{Auth: env.Auth, Logger: env.Logger, Scanner: scanner}, newTestLoop().post)

	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyCtrlF})
	require.NotNil(t, cmd)
	assert.True(t, m.login.scanning)

	updated, _ := m.Update(cmd())
	m = updated.(AppModel)
	assert.Equal(t, "192.168.1.77", m.login.inputs[fieldHost].Value())
	assert.True(t, strings.Contains(m.login.info, "Cottage"))
}

func TestLoopQueue_PreservesOrder(t *testing.T) {
	q := newLoopQueue()
	got := make(chan int, 100)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go q.forward(ctx, func(msg tea.Msg) { msg.(runMsg)() })

	for i := 0; i < 100; i++ {
		i := i
		q.Post(func() { got <- i })
	}

	for want := 0; want < 100; want++ {
		select {
		case v := <-got:
			assert.Equal(t, want, v)
		case <-time.After(2 * time.Second):
			t.Fatal("queue stalled")
		}
	}
}
