// Package lights holds the light-domain rules shared by the view
// controllers: which entities count as lights, how UI values map onto the
// Home Assistant scales and which service calls the controls issue.
package lights

import (
	"math"
	"strings"

	"halights/internal/ha"
)

// Domain is the Home Assistant domain of controllable lights
const Domain = "light"

const (
	ServiceTurnOn  = "turn_on"
	ServiceTurnOff = "turn_off"

	AttrBrightness = "brightness"
	AttrColorTemp  = "color_temp"
	AttrMinMireds  = "min_mireds"
	AttrMaxMireds  = "max_mireds"
)

// Control ranges exposed to the user
const (
	MinPercent = 0
	MaxPercent = 100

	MinKelvin     = 2500
	MaxKelvin     = 6500
	DefaultKelvin = MinKelvin

	// Stored color_temp values below this are mireds, at or above it Kelvin
	miredThreshold = 1000
)

// IsLight reports whether entityID belongs to the light domain
func IsLight(entityID string) bool {
	return strings.HasPrefix(entityID, Domain+".")
}

// Filter keeps the states whose entity id is a light, preserving order
func Filter(states []*ha.State) []*ha.State {
	out := make([]*ha.State, 0, len(states))
	for _, s := range states {
		if s != nil && IsLight(s.EntityID) {
			out = append(out, s)
		}
	}
	return out
}

// IsOn reports whether the entity state is "on"
func IsOn(s *ha.State) bool {
	return s != nil && s.State == "on"
}

// round matches JavaScript's Math.round: halves go towards +Inf
func round(v float64) int {
	return int(math.Floor(v + 0.5))
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// PercentToBrightness clamps percent to [0,100] and converts it to the 0-255
// brightness scale.
func PercentToBrightness(percent int) int {
	p := clamp(percent, MinPercent, MaxPercent)
	return round(float64(p) * 255 / 100)
}

// BrightnessToPercent converts a 0-255 brightness to percent
func BrightnessToPercent(brightness float64) int {
	return round(brightness * 100 / 255)
}

// KelvinToMireds clamps kelvin to [2500,6500] and converts it to mireds
func KelvinToMireds(kelvin int) int {
	k := clamp(kelvin, MinKelvin, MaxKelvin)
	return round(1000000 / float64(k))
}

// ColorTempToKelvin interprets a stored color_temp attribute. Values under
// 1000 are mireds, anything else is already Kelvin.
func ColorTempToKelvin(colorTemp float64) int {
	if colorTemp <= 0 {
		return DefaultKelvin
	}
	if colorTemp < miredThreshold {
		return round(1000000 / colorTemp)
	}
	return round(colorTemp)
}

// BrightnessPercent returns the displayed brightness of an entity, 0 when the
// attribute is absent.
func BrightnessPercent(s *ha.State) int {
	b, ok := s.Number(AttrBrightness)
	if !ok {
		return 0
	}
	return BrightnessToPercent(b)
}

// Kelvin returns the displayed color temperature of an entity, 2500 when the
// attribute is absent.
func Kelvin(s *ha.State) int {
	ct, ok := s.Number(AttrColorTemp)
	if !ok {
		return DefaultKelvin
	}
	return ColorTempToKelvin(ct)
}

// HasBrightness reports whether the entity exposes a brightness attribute
func HasBrightness(s *ha.State) bool {
	_, ok := s.Attributes[AttrBrightness]
	return ok
}

// HasColorTemp reports whether the entity exposes a color_temp attribute
func HasColorTemp(s *ha.State) bool {
	_, ok := s.Attributes[AttrColorTemp]
	return ok
}

// ToggleCommand switches the light off when its current state is "on" and on
// otherwise.
func ToggleCommand(entityID, currentState string) *ha.CallServiceRequest {
	service := ServiceTurnOn
	if currentState == "on" {
		service = ServiceTurnOff
	}
	return ha.NewCallService(Domain, service, entityID, nil)
}

// BrightnessCommand sets brightness from a percent value
func BrightnessCommand(entityID string, percent int) *ha.CallServiceRequest {
	return ha.NewCallService(Domain, ServiceTurnOn, entityID, map[string]interface{}{
		AttrBrightness: PercentToBrightness(percent),
	})
}

// ColorTempCommand sets color temperature from a Kelvin value
func ColorTempCommand(entityID string, kelvin int) *ha.CallServiceRequest {
	return ha.NewCallService(Domain, ServiceTurnOn, entityID, map[string]interface{}{
		AttrColorTemp: KelvinToMireds(kelvin),
	})
}
