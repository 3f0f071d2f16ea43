package stealth

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"
)

// DelayProfile names how long the transport pauses between requests.
type DelayProfile string

const (
	ProfileOff        DelayProfile = "off"
	ProfileCautious   DelayProfile = "cautious"
	ProfileNormal     DelayProfile = "normal"
	ProfileAggressive DelayProfile = "aggressive"
)

// delayRanges holds [min, max) per profile. ProfileOff has no entry.
var delayRanges = map[DelayProfile][2]time.Duration{
	ProfileCautious:   {2 * time.Second, 5 * time.Second},
	ProfileNormal:     {500 * time.Millisecond, 2 * time.Second},
	ProfileAggressive: {200 * time.Millisecond, 800 * time.Millisecond},
}

// ParseDelayProfile maps a flag or env value to a profile. Empty means normal.
func ParseDelayProfile(s string) (DelayProfile, error) {
	p := DelayProfile(s)
	if p == "" {
		return ProfileNormal, nil
	}
	if _, ok := delayRanges[p]; ok || p == ProfileOff {
		return p, nil
	}
	return "", fmt.Errorf("unknown delay profile %q (want off, cautious, normal or aggressive)", s)
}

// HumanDelay pauses for a random duration in [Min, Max) before each request.
type HumanDelay struct {
	Min time.Duration
	Max time.Duration
}

// NewHumanDelay returns nil for ProfileOff, which the transport skips.
// Unknown profiles behave like normal.
func NewHumanDelay(profile DelayProfile) *HumanDelay {
	if profile == ProfileOff {
		return nil
	}
	r, ok := delayRanges[profile]
	if !ok {
		r = delayRanges[ProfileNormal]
	}
	return &HumanDelay{Min: r[0], Max: r[1]}
}

// Wait blocks for one RequestDelay or until ctx is done.
func (h *HumanDelay) Wait(ctx context.Context) error {
	return sleepCtx(ctx, h.RequestDelay())
}

func (h *HumanDelay) RequestDelay() time.Duration {
	if h.Min >= h.Max {
		return h.Min
	}
	return h.Min + rand.N(h.Max-h.Min)
}
