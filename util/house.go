package util

import (
	"fmt"
	"sync"

	"github.com/elijahnyp/house_hub/state"
)

// DeviceChange describes a single device state transition.
type DeviceChange struct {
	RoomID string
	Before state.Device
	After  state.Device
}

// House holds the current room snapshot. Every change swaps in a new
// snapshot built by the state package; snapshots are never modified in
// place, so callers may keep the slices returned by Rooms.
type House struct {
	mu        sync.RWMutex
	rooms     []state.Room
	toggler   state.Toggler
	listeners []func(DeviceChange)
}

func NewHouse() *House {
	return &House{toggler: state.DefaultToggler}
}

// Load replaces the snapshot and the on/off type set.
func (h *House) Load(rooms []state.Room, toggler state.Toggler) {
	h.mu.Lock()
	h.rooms = rooms
	h.toggler = toggler
	h.mu.Unlock()
	Logger.Debug().Msgf("house loaded with %d rooms", len(rooms))
}

// Reload swaps in a freshly configured house but keeps the live state of
// devices that still exist with the same type. rooms must not be shared; it
// is adjusted in place before being stored.
func (h *House) Reload(rooms []state.Room, toggler state.Toggler) {
	h.mu.Lock()
	for i, room := range rooms {
		for j, d := range room.Devices {
			if live, ok := state.FindDevice(h.rooms, room.ID, d.ID); ok && live.Type == d.Type && live.State != "" {
				rooms[i].Devices[j].State = live.State
			}
		}
	}
	h.rooms = rooms
	h.toggler = toggler
	h.mu.Unlock()
	Logger.Debug().Msgf("house reloaded with %d rooms", len(rooms))
}

func (h *House) Rooms() []state.Room {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.rooms
}

func (h *House) Room(id string) (state.Room, bool) {
	for _, room := range h.Rooms() {
		if room.ID == id {
			return room, true
		}
	}
	return state.Room{}, false
}

func (h *House) Device(roomID, deviceID string) (state.Device, bool) {
	return state.FindDevice(h.Rooms(), roomID, deviceID)
}

func (h *House) Toggler() state.Toggler {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.toggler
}

// OnChange registers a listener called after every successful change.
func (h *House) OnChange(listener func(DeviceChange)) {
	h.mu.Lock()
	h.listeners = append(h.listeners, listener)
	h.mu.Unlock()
}

// Toggle flips one device and returns its new value.
func (h *House) Toggle(roomID, deviceID string) (state.Device, error) {
	return h.apply(roomID, deviceID, func(rooms []state.Room, t state.Toggler) ([]state.Room, error) {
		return t.ToggleInRooms(rooms, roomID, deviceID), nil
	})
}

// Set moves one device into the given state.
func (h *House) Set(roomID, deviceID, s string) (state.Device, error) {
	return h.apply(roomID, deviceID, func(rooms []state.Room, t state.Toggler) ([]state.Room, error) {
		return t.SetInRooms(rooms, roomID, deviceID, s)
	})
}

func (h *House) apply(roomID, deviceID string, fn func([]state.Room, state.Toggler) ([]state.Room, error)) (state.Device, error) {
	h.mu.Lock()
	before, ok := state.FindDevice(h.rooms, roomID, deviceID)
	if !ok {
		h.mu.Unlock()
		return state.Device{}, fmt.Errorf("%w: %s/%s", state.ErrDeviceNotFound, roomID, deviceID)
	}
	next, err := fn(h.rooms, h.toggler)
	if err != nil {
		h.mu.Unlock()
		return before, err
	}
	h.rooms = next
	after, _ := state.FindDevice(next, roomID, deviceID)
	listeners := h.listeners
	h.mu.Unlock()

	Logger.Info().Msgf("%s/%s: %s -> %s", roomID, deviceID, before.State, after.State)
	change := DeviceChange{RoomID: roomID, Before: before, After: after}
	for _, listener := range listeners {
		listener(change)
	}
	return after, nil
}
