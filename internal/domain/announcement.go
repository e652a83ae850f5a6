package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// RawFragment is a single unit of scraped text believed to describe one analyst action.
type RawFragment struct {
	Text string
}

// Direction tells whether a price target was raised or lowered.
type Direction int

const (
	Lowered Direction = iota
	Raised
)

// String returns the presenter label of the direction.
func (d Direction) String() string {
	if d == Raised {
		return "Raised"
	}
	return "Lowered"
}

// MarshalText renders the direction as "Raised" or "Lowered".
func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText accepts the labels produced by MarshalText.
func (d *Direction) UnmarshalText(text []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(text))) {
	case "raised":
		*d = Raised
	case "lowered":
		*d = Lowered
	default:
		return fmt.Errorf("unknown direction %q", string(text))
	}
	return nil
}

// Announcement is the structured form of one analyst price-target action.
type Announcement struct {
	CompanyName string    `json:"CompanyName"`
	Direction   Direction `json:"UpgradeDowngrade"`
	Analyst     string    `json:"Analyst"`
	PriceTarget *string   `json:"PriceTarget"`
}

// Target returns the price target and whether one was extracted.
func (a Announcement) Target() (string, bool) {
	if a.PriceTarget == nil {
		return "", false
	}
	return *a.PriceTarget, true
}

// Key identifies an announcement for deduplication across runs.
func (a Announcement) Key() string {
	target, ok := a.Target()
	if !ok {
		target = "\x00"
	}
	h := sha256.New()
	for _, part := range []string{a.CompanyName, a.Direction.String(), a.Analyst, target} {
		h.Write([]byte(part))
		h.Write([]byte{0x1f})
	}
	return hex.EncodeToString(h.Sum(nil))
}
