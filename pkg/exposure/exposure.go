package exposure

import (
	"fmt"
	"strconv"
)

// Tier is the exposure control mode of a camera.
type Tier int

const (
	// TierAuto is completely controlled by the camera. Darkest.
	TierAuto Tier = 0
	// TierAGC uses the longest exposure. Gain is controlled by the camera.
	TierAGC Tier = 1
	// TierManual uses the longest exposure and gain controlled by us.
	TierManual Tier = 2

	TierMin = TierAuto
	TierMax = TierManual
)

const (
	// DarkMedian and below means the scene is too dark.
	DarkMedian = 50
	// BrightMedian and above means the scene is too bright.
	BrightMedian = 200

	MinGain = 0
	MaxGain = 31
)

func (t Tier) String() string {
	switch t {
	case TierAuto:
		return "auto"
	case TierAGC:
		return "agc"
	case TierManual:
		return "manual"
	default:
		return "tier(" + strconv.Itoa(int(t)) + ")"
	}
}

// State is the exposure setting we believe the camera is using.
// Gain is only used in TierManual.
type State struct {
	Tier Tier `json:"tier"`
	Gain int  `json:"gain"`
}

// DefaultState matches the default of the ESP32-CAM firmware.
func DefaultState() State {
	return State{Tier: TierAGC, Gain: 1}
}

func (s State) String() string {
	return fmt.Sprintf("%s/%d", s.Tier, s.Gain)
}

// Valid reports whether s is within the supported tier and gain range.
func (s State) Valid() error {
	if s.Tier < TierMin || s.Tier > TierMax {
		return fmt.Errorf("tier must be between %d and %d, got %d", TierMin, TierMax, s.Tier)
	}
	if s.Gain < MinGain || s.Gain > MaxGain {
		return fmt.Errorf("gain must be between %d and %d, got %d", MinGain, MaxGain, s.Gain)
	}
	return nil
}

// Decide returns the next state given the median brightness of the latest
// capture. It moves at most one step: gain is exhausted before crossing a
// tier boundary at the top tier.
func Decide(s State, brightness float64) State {
	switch {
	case brightness >= BrightMedian:
		if s.Tier == TierMin {
			// Scene too bright. Nothing we can do.
			return s
		}
		if s.Tier == TierManual && s.Gain > MinGain {
			return State{Tier: s.Tier, Gain: s.Gain - 1}
		}
		return State{Tier: s.Tier - 1, Gain: 1}
	case brightness <= DarkMedian:
		if s.Tier == TierMax && s.Gain >= MaxGain {
			// Scene too dark. Nothing we can do.
			return s
		}
		if s.Tier < TierMax {
			return State{Tier: s.Tier + 1, Gain: 1}
		}
		return State{Tier: s.Tier, Gain: s.Gain + 1}
	}

	return s
}
