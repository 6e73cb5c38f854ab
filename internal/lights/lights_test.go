package lights

import (
	"testing"

	"halights/internal/ha"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilter(t *testing.T) {
	states := []*ha.State{
		{EntityID: "light.a"},
		{EntityID: "switch.b"},
		{EntityID: "light.c"},
		{EntityID: "lightning.d"},
		nil,
	}

	got := Filter(states)
	require.Len(t, got, 2)
	assert.Equal(t, "light.a", got[0].EntityID)
	assert.Equal(t, "light.c", got[1].EntityID)
}

func TestPercentToBrightness(t *testing.T) {
	assert.Equal(t, 0, PercentToBrightness(0))
	assert.Equal(t, 128, PercentToBrightness(50))
	assert.Equal(t, 255, PercentToBrightness(100))
	assert.Equal(t, 0, PercentToBrightness(-20), "clamped to 0")
	assert.Equal(t, 255, PercentToBrightness(150), "clamped to 100")
}

func TestBrightnessRoundTrip(t *testing.T) {
	for p := MinPercent; p <= MaxPercent; p++ {
		back := BrightnessToPercent(float64(PercentToBrightness(p)))
		assert.InDelta(t, p, back, 1, "percent %d came back as %d", p, back)
	}
}

func TestKelvinToMireds(t *testing.T) {
	assert.Equal(t, 400, KelvinToMireds(2500))
	assert.Equal(t, 154, KelvinToMireds(6500))
	assert.Equal(t, 250, KelvinToMireds(4000))
	assert.Equal(t, 400, KelvinToMireds(1000), "clamped to 2500")
	assert.Equal(t, 154, KelvinToMireds(9000), "clamped to 6500")
}

func TestColorTempRoundTrip(t *testing.T) {
	for k := MinKelvin; k <= MaxKelvin; k++ {
		back := ColorTempToKelvin(float64(KelvinToMireds(k)))
		assert.InDelta(t, k, back, 25, "kelvin %d came back as %d", k, back)
	}
}

func TestColorTempToKelvin(t *testing.T) {
	assert.Equal(t, 2500, ColorTempToKelvin(400))
	assert.Equal(t, 4000, ColorTempToKelvin(250))
	assert.Equal(t, 3000, ColorTempToKelvin(3000), "values >= 1000 are already Kelvin")
	assert.Equal(t, 1000, ColorTempToKelvin(1000))
	assert.Equal(t, DefaultKelvin, ColorTempToKelvin(0))
}

func TestEntityDisplayValues(t *testing.T) {
	s := &ha.State{
		EntityID: "light.kitchen",
		State:    "on",
		Attributes: map[string]interface{}{
			"brightness": float64(255),
			"color_temp": float64(370),
		},
	}
	assert.True(t, IsOn(s))
	assert.True(t, HasBrightness(s))
	assert.True(t, HasColorTemp(s))
	assert.Equal(t, 100, BrightnessPercent(s))
	assert.Equal(t, 2703, Kelvin(s))

	bare := &ha.State{EntityID: "light.hall", State: "off", Attributes: map[string]interface{}{}}
	assert.False(t, IsOn(bare))
	assert.False(t, HasBrightness(bare))
	assert.False(t, HasColorTemp(bare))
	assert.Equal(t, 0, BrightnessPercent(bare))
	assert.Equal(t, DefaultKelvin, Kelvin(bare))
}

func TestCommands(t *testing.T) {
	t.Run("toggle", func(t *testing.T) {
		off := ToggleCommand("light.a", "on")
		assert.Equal(t, "light", off.Domain)
		assert.Equal(t, "turn_off", off.Service)
		assert.Equal(t, "light.a", off.Target.EntityID)
		assert.Nil(t, off.ServiceData)

		on := ToggleCommand("light.a", "off")
		assert.Equal(t, "turn_on", on.Service)

		unavailable := ToggleCommand("light.a", "unavailable")
		assert.Equal(t, "turn_on", unavailable.Service)
	})

	t.Run("brightness", func(t *testing.T) {
		cmd := BrightnessCommand("light.a", 50)
		assert.Equal(t, "call_service", cmd.Type)
		assert.Equal(t, "light", cmd.Domain)
		assert.Equal(t, "turn_on", cmd.Service)
		assert.Equal(t, 128, cmd.ServiceData["brightness"])
	})

	t.Run("color temperature", func(t *testing.T) {
		cmd := ColorTempCommand("light.a", 2000)
		assert.Equal(t, "turn_on", cmd.Service)
		assert.Equal(t, 400, cmd.ServiceData["color_temp"])
	})
}
