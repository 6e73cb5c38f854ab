package views

import (
	"fmt"

	"halights/internal/ha"
	"halights/internal/lights"
	"halights/internal/storage"

	"go.uber.org/zap"
)

// DisplayController mirrors the selected lights and turns control input into
// service calls. It never updates an entity optimistically: cards change only
// when Home Assistant pushes the new state.
type DisplayController struct {
	ch     ha.Channel
	store  storage.Store
	post   Poster
	logger *zap.Logger

	mounted   bool
	unsubMsg  func()
	unsubStat func()
	onChange  func()

	snapshotID  int
	subscribeID int
	pending     map[int]string

	selection map[string]bool
	loading   bool
	connected bool
	err       error
	entities  []*ha.State
}

// NewDisplayController creates a controller; ch may be nil when there is no
// session, in which case Mount fails with ErrNoSession.
func NewDisplayController(ch ha.Channel, store storage.Store, post Poster, logger *zap.Logger) *DisplayController {
	return &DisplayController{
		ch:      ch,
		store:   store,
		post:    post,
		logger:  logger,
		pending: make(map[int]string),
	}
}

// SetOnChange registers fn to run after every visible state change
func (c *DisplayController) SetOnChange(fn func()) {
	c.onChange = fn
}

// Mount checks the guards, registers observers and issues the snapshot and
// state_changed subscription requests.
func (c *DisplayController) Mount() error {
	if c.ch == nil || c.ch.Status() != ha.StatusOpen {
		return ErrNoSession
	}

	ids, err := storage.LoadSelection(c.store)
	if err != nil {
		return fmt.Errorf("failed to load selection: %w", err)
	}
	if len(ids) == 0 {
		return ErrNoSelection
	}

	c.selection = make(map[string]bool, len(ids))
	for _, id := range ids {
		c.selection[id] = true
	}
	c.loading = true
	c.err = nil
	c.entities = nil
	c.pending = make(map[int]string)
	c.connected = true
	c.mounted = true

	c.unsubStat = c.ch.OnStatusChange(func(status ha.Status) {
		c.post(func() { c.handleStatus(status) })
	})
	c.unsubMsg = c.ch.OnMessage(func(msg *ha.Message) {
		c.post(func() { c.handleMessage(msg) })
	})

	if c.snapshotID, err = c.ch.Send(ha.NewGetStates()); err != nil {
		c.Unmount()
		return fmt.Errorf("failed to request states: %w", err)
	}
	if c.subscribeID, err = c.ch.Send(ha.NewSubscribeEvents(ha.EventStateChanged)); err != nil {
		c.Unmount()
		return fmt.Errorf("failed to subscribe to state changes: %w", err)
	}

	c.logger.Debug("Display mounted",
		zap.Int("snapshot_id", c.snapshotID),
		zap.Int("subscribe_id", c.subscribeID),
		zap.Int("selected", len(ids)))
	return nil
}

// Unmount removes both observers. Safe to call when not mounted.
func (c *DisplayController) Unmount() {
	c.mounted = false
	if c.unsubMsg != nil {
		c.unsubMsg()
		c.unsubMsg = nil
	}
	if c.unsubStat != nil {
		c.unsubStat()
		c.unsubStat = nil
	}
}

func (c *DisplayController) handleStatus(status ha.Status) {
	if !c.mounted {
		return
	}
	c.connected = status == ha.StatusOpen
	c.changed()
}

func (c *DisplayController) handleMessage(msg *ha.Message) {
	if !c.mounted {
		return
	}

	if msg.IsResult() {
		c.handleResult(msg)
		return
	}

	event, ok := msg.StateChanged()
	if !ok || !c.selection[event.EntityID] || event.NewState == nil {
		return
	}

	for i, e := range c.entities {
		if e.EntityID == event.EntityID {
			c.entities[i] = event.NewState
			c.changed()
			return
		}
	}
}

func (c *DisplayController) handleResult(msg *ha.Message) {
	switch msg.ID {
	case c.snapshotID:
		c.loading = false
		if !msg.Succeeded() {
			c.err = resultError("get_states", msg)
			c.changed()
			return
		}
		states, err := msg.States()
		if err != nil {
			c.err = fmt.Errorf("failed to decode states: %w", err)
			c.changed()
			return
		}
		c.entities = c.entities[:0]
		for _, s := range states {
			if s != nil && c.selection[s.EntityID] {
				c.entities = append(c.entities, s)
			}
		}
		c.changed()

	case c.subscribeID:
		if !msg.Succeeded() {
			c.err = resultError("subscribe_events", msg)
			c.changed()
		}

	default:
		command, ok := c.pending[msg.ID]
		if !ok {
			return
		}
		delete(c.pending, msg.ID)
		if !msg.Succeeded() {
			c.err = resultError(command, msg)
			c.logger.Warn("Service call failed", zap.String("command", command), zap.Error(c.err))
			c.changed()
		}
	}
}

func (c *DisplayController) changed() {
	if c.onChange != nil {
		c.onChange()
	}
}

// Loading reports whether the snapshot is still outstanding
func (c *DisplayController) Loading() bool { return c.loading }

// Connected reports the live connectivity indicator. It is informational
// only and does not gate commands.
func (c *DisplayController) Connected() bool { return c.connected }

// Err returns the last request failure, if any
func (c *DisplayController) Err() error { return c.err }

// Entities returns the selected entities in server order
func (c *DisplayController) Entities() []*ha.State { return c.entities }

// Entity returns the current state of id, or nil
func (c *DisplayController) Entity(id string) *ha.State {
	for _, e := range c.entities {
		if e.EntityID == id {
			return e
		}
	}
	return nil
}

// TogglePower switches the light off when it is on and on otherwise
func (c *DisplayController) TogglePower(id string) error {
	current := ""
	if e := c.Entity(id); e != nil {
		current = e.State
	}
	return c.send(lights.ToggleCommand(id, current))
}

// SetBrightness sets brightness in percent; input is clamped to [0,100]
func (c *DisplayController) SetBrightness(id string, percent int) error {
	return c.send(lights.BrightnessCommand(id, percent))
}

// SetColorTemp sets color temperature in Kelvin; input is clamped to
// [2500,6500]
func (c *DisplayController) SetColorTemp(id string, kelvin int) error {
	return c.send(lights.ColorTempCommand(id, kelvin))
}

func (c *DisplayController) send(cmd *ha.CallServiceRequest) error {
	id, err := c.ch.Send(cmd)
	if err != nil {
		return fmt.Errorf("failed to call %s.%s: %w", cmd.Domain, cmd.Service, err)
	}
	c.pending[id] = cmd.Domain + "." + cmd.Service
	c.logger.Debug("Service called",
		zap.Int("id", id),
		zap.String("service", cmd.Service),
		zap.String("entity_id", cmd.Target.EntityID),
		zap.Any("service_data", cmd.ServiceData))
	return nil
}
