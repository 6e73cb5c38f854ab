package views

import (
	"fmt"

	"halights/internal/ha"
	"halights/internal/lights"
	"halights/internal/storage"

	"go.uber.org/zap"
)

// SelectController lists the lights of the instance and collects the user's
// selection.
type SelectController struct {
	ch     ha.Channel
	store  storage.Store
	post   Poster
	logger *zap.Logger

	mounted     bool
	unsubscribe func()
	onChange    func()

	requestID int
	loading   bool
	err       error
	entities  []*ha.State
	selected  []string
}

// NewSelectController creates a controller; ch may be nil when there is no
// session, in which case Mount fails with ErrNoSession.
func NewSelectController(ch ha.Channel, store storage.Store, post Poster, logger *zap.Logger) *SelectController {
	return &SelectController{
		ch:     ch,
		store:  store,
		post:   post,
		logger: logger,
	}
}

// SetOnChange registers fn to run after every state change
func (c *SelectController) SetOnChange(fn func()) {
	c.onChange = fn
}

// Mount registers the message observer and requests a snapshot
func (c *SelectController) Mount() error {
	if c.ch == nil || c.ch.Status() != ha.StatusOpen {
		return ErrNoSession
	}

	prior, err := storage.LoadSelection(c.store)
	if err != nil {
		c.logger.Warn("Ignoring unreadable selection", zap.Error(err))
		prior = nil
	}
	c.selected = append([]string(nil), prior...)
	c.loading = true
	c.err = nil
	c.mounted = true

	c.unsubscribe = c.ch.OnMessage(func(msg *ha.Message) {
		c.post(func() { c.handleMessage(msg) })
	})

	id, err := c.ch.Send(ha.NewGetStates())
	if err != nil {
		c.Unmount()
		return fmt.Errorf("failed to request states: %w", err)
	}
	c.requestID = id
	c.logger.Debug("Requested states", zap.Int("id", id))
	return nil
}

// Unmount removes the observer. Safe to call when not mounted.
func (c *SelectController) Unmount() {
	c.mounted = false
	if c.unsubscribe != nil {
		c.unsubscribe()
		c.unsubscribe = nil
	}
}

func (c *SelectController) handleMessage(msg *ha.Message) {
	if !c.mounted || !msg.IsResult() || msg.ID != c.requestID {
		return
	}

	if !msg.Succeeded() {
		c.err = resultError("get_states", msg)
		c.loading = false
		c.changed()
		return
	}

	states, err := msg.States()
	if err != nil {
		c.err = fmt.Errorf("failed to decode states: %w", err)
		c.loading = false
		c.changed()
		return
	}

	c.entities = lights.Filter(states)
	c.loading = false

	// Drop remembered ids that are no longer lights on this instance
	known := make(map[string]bool, len(c.entities))
	for _, e := range c.entities {
		known[e.EntityID] = true
	}
	kept := c.selected[:0]
	for _, id := range c.selected {
		if known[id] {
			kept = append(kept, id)
		}
	}
	c.selected = kept

	c.logger.Debug("Lights loaded", zap.Int("lights", len(c.entities)), zap.Int("states", len(states)))
	c.changed()
}

func (c *SelectController) changed() {
	if c.onChange != nil {
		c.onChange()
	}
}

// Loading reports whether the snapshot is still outstanding
func (c *SelectController) Loading() bool { return c.loading }

// Err returns the last request failure, if any
func (c *SelectController) Err() error { return c.err }

// Entities returns the light entities in server order
func (c *SelectController) Entities() []*ha.State { return c.entities }

// Selected returns the selection in the order entries were checked
func (c *SelectController) Selected() []string {
	return append([]string(nil), c.selected...)
}

// IsSelected reports whether id is checked
func (c *SelectController) IsSelected(id string) bool {
	return indexOf(c.selected, id) >= 0
}

// Toggle adds id to the selection or removes it
func (c *SelectController) Toggle(id string) {
	if i := indexOf(c.selected, id); i >= 0 {
		c.selected = append(c.selected[:i:i], c.selected[i+1:]...)
	} else {
		c.selected = append(c.selected, id)
	}
	c.changed()
}

// ToggleAll clears the selection when it is as large as the entity list and
// selects every entity otherwise.
func (c *SelectController) ToggleAll() {
	if len(c.selected) == len(c.entities) {
		c.selected = nil
	} else {
		c.selected = make([]string, 0, len(c.entities))
		for _, e := range c.entities {
			c.selected = append(c.selected, e.EntityID)
		}
	}
	c.changed()
}

// Confirm persists a non-empty selection. The caller navigates to Display
// only when it returns nil.
func (c *SelectController) Confirm() error {
	if len(c.selected) == 0 {
		return ErrEmptySelection
	}
	if err := storage.SaveSelection(c.store, c.selected); err != nil {
		return fmt.Errorf("failed to save selection: %w", err)
	}
	c.logger.Info("Selection saved", zap.Strings("entities", c.selected))
	return nil
}

func indexOf(ids []string, id string) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}

func resultError(command string, msg *ha.Message) error {
	if msg.Error != nil {
		return fmt.Errorf("%s failed: %s - %s", command, msg.Error.Code, msg.Error.Message)
	}
	return fmt.Errorf("%s failed", command)
}
