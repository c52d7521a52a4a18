package state

import (
	"errors"
	"fmt"
	"strings"
)

// DeviceType is the category tag of a device. Unrecognized values are kept
// as-is and handled by the default branches.
type DeviceType string

const (
	TypeLight         DeviceType = "light"
	TypeWindow        DeviceType = "window"
	TypeDoor          DeviceType = "door"
	TypeCoffeeMachine DeviceType = "coffee_machine"
)

const (
	StateOn     = "on"
	StateOff    = "off"
	StateOpen   = "open"
	StateClosed = "closed"
)

// Family is the pair of states a device type switches between.
type Family int

const (
	FamilyOnOff Family = iota
	FamilyOpenClosed
)

func (f Family) String() string {
	switch f {
	case FamilyOnOff:
		return "on/off"
	case FamilyOpenClosed:
		return "open/closed"
	default:
		return fmt.Sprintf("family(%d)", int(f))
	}
}

// Active returns the "on"/"open" side of the family.
func (f Family) Active() string {
	if f == FamilyOnOff {
		return StateOn
	}
	return StateOpen
}

// Inactive returns the "off"/"closed" side of the family.
func (f Family) Inactive() string {
	if f == FamilyOnOff {
		return StateOff
	}
	return StateClosed
}

var (
	ErrInvalidState   = errors.New("invalid device state")
	ErrDeviceNotFound = errors.New("device not found")
)

type Device struct {
	ID    string     `mapstructure:"id" json:"id"`
	Type  DeviceType `mapstructure:"type" json:"type"`
	State string     `mapstructure:"state" json:"state"`
	Label string     `mapstructure:"label" json:"label,omitempty"`
}

// IsActive reports whether state is one of the "active" values.
func IsActive(state string) bool {
	return state == StateOn || state == StateOpen
}

// Toggler decides which types belong to the on/off family. Every other type
// toggles between open and closed. The zero value knows no on/off types;
// use NewToggler or DefaultToggler.
type Toggler struct {
	onOff map[DeviceType]struct{}
}

// DefaultToggler treats light and coffee_machine as binary-power devices.
var DefaultToggler = NewToggler()

// NewToggler returns a Toggler with light and coffee_machine plus any extra
// binary-power types.
func NewToggler(extra ...DeviceType) Toggler {
	t := Toggler{onOff: map[DeviceType]struct{}{
		TypeLight:         {},
		TypeCoffeeMachine: {},
	}}
	for _, e := range extra {
		if e != "" {
			t.onOff[e] = struct{}{}
		}
	}
	return t
}

func (t Toggler) FamilyOf(dt DeviceType) Family {
	if _, ok := t.onOff[dt]; ok {
		return FamilyOnOff
	}
	return FamilyOpenClosed
}

// Toggle returns a copy of d with its state flipped. A state outside the
// family's pair goes to the active value.
func (t Toggler) Toggle(d Device) Device {
	f := t.FamilyOf(d.Type)
	if d.State == f.Active() {
		d.State = f.Inactive()
	} else {
		d.State = f.Active()
	}
	return d
}

// Set returns a copy of d in the requested state. Input is matched case
// insensitively and "close" is accepted for "closed".
func (t Toggler) Set(d Device, s string) (Device, error) {
	s = normalizeState(s)
	f := t.FamilyOf(d.Type)
	if s != f.Active() && s != f.Inactive() {
		return d, fmt.Errorf("%w: %q for %s device %q", ErrInvalidState, s, f, d.ID)
	}
	d.State = s
	return d, nil
}

func normalizeState(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "close" {
		return StateClosed
	}
	return s
}

func FamilyOf(dt DeviceType) Family {
	return DefaultToggler.FamilyOf(dt)
}

// ToggleDeviceState flips d using the default on/off types.
func ToggleDeviceState(d Device) Device {
	return DefaultToggler.Toggle(d)
}

func SetDeviceState(d Device, s string) (Device, error) {
	return DefaultToggler.Set(d, s)
}
