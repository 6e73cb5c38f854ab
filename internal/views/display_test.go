package views

import (
	"testing"

	"halights/internal/ha"
	"halights/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newDisplay(t *testing.T, selection ...string) (*DisplayController, *ha.MockChannel) {
	t.Helper()
	logger, _ := zap.NewDevelopment()
	ch := ha.NewMockChannel()
	store := storage.NewMemoryStore()
	if len(selection) > 0 {
		require.NoError(t, storage.SaveSelection(store, selection))
	}
	return NewDisplayController(ch, store, Immediate, logger), ch
}

// mountDisplay mounts c and answers the snapshot with testStates
func mountDisplay(t *testing.T, c *DisplayController, ch *ha.MockChannel) {
	t.Helper()
	require.NoError(t, c.Mount())
	ch.DeliverResult(1, testStates())
	ch.DeliverResult(2, nil)
}

func TestDisplay_Guards(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	store := storage.NewMemoryStore()

	c := NewDisplayController(nil, store, Immediate, logger)
	assert.ErrorIs(t, c.Mount(), ErrNoSession)

	ch := ha.NewMockChannel()
	c = NewDisplayController(ch, store, Immediate, logger)
	assert.ErrorIs(t, c.Mount(), ErrNoSelection)
	assert.Empty(t, ch.Sent())
	assert.Equal(t, 0, ch.ObserverCount())
}

func TestDisplay_MountSendsSnapshotThenSubscribe(t *testing.T) {
	c, ch := newDisplay(t, "light.a")
	require.NoError(t, c.Mount())

	sent := ch.Sent()
	require.Len(t, sent, 2)

	get, ok := sent[0].(*ha.GetStatesRequest)
	require.True(t, ok)
	sub, ok := sent[1].(*ha.SubscribeEventsRequest)
	require.True(t, ok)

	assert.Equal(t, 1, get.ID)
	assert.Equal(t, 2, sub.ID)
	assert.Equal(t, ha.EventStateChanged, sub.EventType)
	assert.Equal(t, 2, ch.ObserverCount())
	assert.True(t, c.Connected())
}

func TestDisplay_FiltersToSelection(t *testing.T) {
	c, ch := newDisplay(t, "light.c", "switch.b")
	mountDisplay(t, c, ch)

	assert.False(t, c.Loading())
	require.Len(t, c.Entities(), 2)
	// server order, not selection order
	assert.Equal(t, "switch.b", c.Entities()[0].EntityID)
	assert.Equal(t, "light.c", c.Entities()[1].EntityID)
}

func TestDisplay_StateChangedReplacesSelectedEntity(t *testing.T) {
	c, ch := newDisplay(t, "light.a")
	mountDisplay(t, c, ch)

	changes := 0
	c.SetOnChange(func() { changes++ })

	ch.DeliverStateChanged(&ha.State{
		EntityID:   "light.a",
		State:      "off",
		Attributes: map[string]interface{}{"friendly_name": "Lamp A"},
	})

	require.Len(t, c.Entities(), 1)
	e := c.Entity("light.a")
	require.NotNil(t, e)
	assert.Equal(t, "off", e.State)
	// whole object replaced, old brightness gone
	_, hasBrightness := e.Attributes["brightness"]
	assert.False(t, hasBrightness)
	assert.Equal(t, 1, changes)
}

func TestDisplay_StateChangedForUnselectedEntity(t *testing.T) {
	c, ch := newDisplay(t, "light.a")
	mountDisplay(t, c, ch)

	changes := 0
	c.SetOnChange(func() { changes++ })

	ch.DeliverStateChanged(&ha.State{EntityID: "light.c", State: "on"})

	assert.Equal(t, 0, changes)
	require.Len(t, c.Entities(), 1)
	assert.Equal(t, "on", c.Entity("light.a").State)
	assert.Nil(t, c.Entity("light.c"))
}

func TestDisplay_StateChangedWithoutNewState(t *testing.T) {
	c, ch := newDisplay(t, "light.a")
	mountDisplay(t, c, ch)

	ch.Deliver(&ha.Message{
		Type: ha.TypeEvent,
		Event: &ha.Event{
			EventType: ha.EventStateChanged,
			Data:      []byte(`{"entity_id":"light.a","new_state":null}`),
		},
	})

	require.NotNil(t, c.Entity("light.a"))
	assert.Equal(t, "on", c.Entity("light.a").State)
}

func TestDisplay_TogglePower(t *testing.T) {
	c, ch := newDisplay(t, "light.a", "light.c")
	mountDisplay(t, c, ch)

	require.NoError(t, c.TogglePower("light.a"))
	call := ch.LastCallService()
	require.NotNil(t, call)
	assert.Equal(t, "light", call.Domain)
	assert.Equal(t, "turn_off", call.Service)
	assert.Equal(t, "light.a", call.Target.EntityID)

	require.NoError(t, c.TogglePower("light.c"))
	call = ch.LastCallService()
	assert.Equal(t, "turn_on", call.Service)
	assert.Equal(t, "light.c", call.Target.EntityID)

	// no optimistic update
	assert.Equal(t, "on", c.Entity("light.a").State)
}

func TestDisplay_SetBrightness(t *testing.T) {
	c, ch := newDisplay(t, "light.a")
	mountDisplay(t, c, ch)

	require.NoError(t, c.SetBrightness("light.a", 50))
	call := ch.LastCallService()
	require.NotNil(t, call)
	assert.Equal(t, "turn_on", call.Service)
	assert.Equal(t, 128, call.ServiceData["brightness"])

	require.NoError(t, c.SetBrightness("light.a", 150))
	assert.Equal(t, 255, ch.LastCallService().ServiceData["brightness"])
}

func TestDisplay_SetColorTemp(t *testing.T) {
	c, ch := newDisplay(t, "light.a")
	mountDisplay(t, c, ch)

	require.NoError(t, c.SetColorTemp("light.a", 4000))
	assert.Equal(t, 250, ch.LastCallService().ServiceData["color_temp"])

	require.NoError(t, c.SetColorTemp("light.a", 1000))
	assert.Equal(t, 400, ch.LastCallService().ServiceData["color_temp"])
}

func TestDisplay_FailedServiceCall(t *testing.T) {
	c, ch := newDisplay(t, "light.a")
	mountDisplay(t, c, ch)

	require.NoError(t, c.TogglePower("light.a"))
	success := false
	ch.Deliver(&ha.Message{
		ID:      3,
		Type:    ha.TypeResult,
		Success: &success,
		Error:   &ha.Error{Code: "not_found", Message: "Service not found"},
	})

	require.Error(t, c.Err())
	assert.Contains(t, c.Err().Error(), "light.turn_off")
}

func TestDisplay_RemountForgetsUnansweredCalls(t *testing.T) {
	c, ch := newDisplay(t, "light.a")
	mountDisplay(t, c, ch)

	require.NoError(t, c.TogglePower("light.a"))
	assert.Len(t, c.pending, 1)

	c.Unmount()
	require.NoError(t, c.Mount())
	assert.Empty(t, c.pending)
	ch.DeliverResult(4, testStates())
	ch.DeliverResult(5, nil)

	// A late answer to the call made before the remount is not ours anymore
	success := false
	ch.Deliver(&ha.Message{
		ID:      3,
		Type:    ha.TypeResult,
		Success: &success,
		Error:   &ha.Error{Code: "not_found", Message: "Service not found"},
	})

	assert.NoError(t, c.Err())
	assert.False(t, c.Loading())
}

func TestDisplay_ConnectivityIndicator(t *testing.T) {
	c, ch := newDisplay(t, "light.a")
	mountDisplay(t, c, ch)

	changes := 0
	c.SetOnChange(func() { changes++ })

	ch.SetStatus(ha.StatusClosed)
	assert.False(t, c.Connected())
	assert.Equal(t, 1, changes)

	err := c.TogglePower("light.a")
	assert.ErrorIs(t, err, ha.ErrNotOpen)
}

func TestDisplay_UnmountRemovesObservers(t *testing.T) {
	c, ch := newDisplay(t, "light.a")
	mountDisplay(t, c, ch)
	assert.Equal(t, 2, ch.ObserverCount())

	c.Unmount()
	assert.Equal(t, 0, ch.ObserverCount())

	ch.DeliverStateChanged(&ha.State{EntityID: "light.a", State: "off"})
	assert.Equal(t, "on", c.Entity("light.a").State)
}
