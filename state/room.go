package state

import "fmt"

type Room struct {
	ID      string   `mapstructure:"id" json:"id"`
	Name    string   `mapstructure:"name" json:"name,omitempty"`
	Devices []Device `mapstructure:"devices" json:"devices"`
}

// UpdateDeviceInRooms returns a new room slice where the device deviceID in
// room roomID is replaced by fn(device). Untouched rooms are copied as-is
// and keep sharing their Devices array with the input. The input is never
// modified. found is false when the room or device does not exist, in which
// case the result is equal to rooms.
func UpdateDeviceInRooms(rooms []Room, roomID, deviceID string, fn func(Device) Device) (out []Room, found bool) {
	if rooms == nil {
		return nil, false
	}
	out = make([]Room, len(rooms))
	for i, room := range rooms {
		out[i] = room
		if room.ID != roomID || found {
			continue
		}
		idx := -1
		for j, d := range room.Devices {
			if d.ID == deviceID {
				idx = j
				break
			}
		}
		if idx < 0 {
			continue
		}
		devices := make([]Device, len(room.Devices))
		copy(devices, room.Devices)
		devices[idx] = fn(devices[idx])
		out[i].Devices = devices
		found = true
	}
	return out, found
}

// FindDevice looks up a device by room and device id.
func FindDevice(rooms []Room, roomID, deviceID string) (Device, bool) {
	for _, room := range rooms {
		if room.ID != roomID {
			continue
		}
		for _, d := range room.Devices {
			if d.ID == deviceID {
				return d, true
			}
		}
		return Device{}, false
	}
	return Device{}, false
}

// ToggleInRooms flips one device. Unknown room or device ids are a no-op.
func (t Toggler) ToggleInRooms(rooms []Room, roomID, deviceID string) []Room {
	out, _ := UpdateDeviceInRooms(rooms, roomID, deviceID, t.Toggle)
	return out
}

func (t Toggler) SetInRooms(rooms []Room, roomID, deviceID, s string) ([]Room, error) {
	d, ok := FindDevice(rooms, roomID, deviceID)
	if !ok {
		return rooms, fmt.Errorf("%w: %s/%s", ErrDeviceNotFound, roomID, deviceID)
	}
	next, err := t.Set(d, s)
	if err != nil {
		return rooms, err
	}
	out, _ := UpdateDeviceInRooms(rooms, roomID, deviceID, func(Device) Device { return next })
	return out, nil
}

// ToggleDeviceInRooms flips one device using the default on/off types.
func ToggleDeviceInRooms(rooms []Room, roomID, deviceID string) []Room {
	return DefaultToggler.ToggleInRooms(rooms, roomID, deviceID)
}

func SetDeviceInRooms(rooms []Room, roomID, deviceID, s string) ([]Room, error) {
	return DefaultToggler.SetInRooms(rooms, roomID, deviceID, s)
}
