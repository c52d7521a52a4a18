package util

import (
	"fmt"
	"strings"

	"github.com/elijahnyp/house_hub/state"
)

const ( // topic types
	COMMAND = iota
	STATE   = iota
)

type Model struct {
	Rooms      []RoomConfig `mapstructure:"rooms"`
	OnOffTypes []string     `mapstructure:"on_off_types"`
}

type RoomConfig struct {
	ID      string         `mapstructure:"id"`
	Name    string         `mapstructure:"name"`
	Devices []DeviceConfig `mapstructure:"devices"`
}

type DeviceConfig struct {
	ID          string `mapstructure:"id"`
	Type        string `mapstructure:"type"`
	State       string `mapstructure:"state"`
	Label       string `mapstructure:"label"`
	Gateway_url string `mapstructure:"gateway_url"`
}

func (m *Model) BuildModel() error {
	var next Model
	if err := Config.UnmarshalKey("house", &next); err != nil {
		Logger.Error().Msgf("error unmarshaling house model: %v", err)
		return fmt.Errorf("unmarshal house model: %w", err)
	}
	next.warnDuplicates()
	*m = next
	return nil
}

// ids are assumed unique; duplicates are only reported
func (m Model) warnDuplicates() {
	rooms := make(map[string]bool)
	for _, room := range m.Rooms {
		if rooms[room.ID] {
			Logger.Warn().Msgf("duplicate room id %q in house model", room.ID)
		}
		rooms[room.ID] = true
		devices := make(map[string]bool)
		for _, d := range room.Devices {
			if devices[d.ID] {
				Logger.Warn().Msgf("duplicate device id %q in room %q", d.ID, room.ID)
			}
			devices[d.ID] = true
		}
	}
}

// Snapshot converts the configured rooms into a fresh room collection.
func (m Model) Snapshot() []state.Room {
	rooms := make([]state.Room, 0, len(m.Rooms))
	for _, rc := range m.Rooms {
		room := state.Room{ID: rc.ID, Name: rc.Name, Devices: make([]state.Device, 0, len(rc.Devices))}
		for _, dc := range rc.Devices {
			room.Devices = append(room.Devices, state.Device{
				ID:    dc.ID,
				Type:  state.DeviceType(dc.Type),
				State: dc.State,
				Label: dc.Label,
			})
		}
		rooms = append(rooms, room)
	}
	return rooms
}

func (m Model) Toggler() state.Toggler {
	extra := make([]state.DeviceType, 0, len(m.OnOffTypes))
	for _, t := range m.OnOffTypes {
		extra = append(extra, state.DeviceType(t))
	}
	return state.NewToggler(extra...)
}

func (m Model) FindGatewayURL(roomID, deviceID string) string {
	for _, room := range m.Rooms {
		if room.ID != roomID {
			continue
		}
		for _, d := range room.Devices {
			if d.ID == deviceID {
				return d.Gateway_url
			}
		}
	}
	return ""
}

func topicBase() string {
	return strings.TrimSuffix(Config.GetString("topic_base"), "/")
}

func (m Model) StateTopic(roomID, deviceID string) string {
	return fmt.Sprintf("%s/%s/%s/state", topicBase(), roomID, deviceID)
}

func (m Model) CommandTopic(roomID, deviceID string) string {
	return fmt.Sprintf("%s/%s/%s/set", topicBase(), roomID, deviceID)
}

// FindDeviceByTopic resolves a state or command topic back to its room and
// device. kind is -1 when the topic does not belong to the model.
func (m Model) FindDeviceByTopic(topic string) (roomID, deviceID string, kind int) {
	for _, room := range m.Rooms {
		for _, d := range room.Devices {
			if m.CommandTopic(room.ID, d.ID) == topic {
				return room.ID, d.ID, COMMAND
			}
			if m.StateTopic(room.ID, d.ID) == topic {
				return room.ID, d.ID, STATE
			}
		}
	}
	return "", "", -1
}

func (m Model) SubscribeTopics() []string {
	var topics []string
	for _, room := range m.Rooms {
		for _, d := range room.Devices {
			topics = append(topics, m.CommandTopic(room.ID, d.ID))
		}
	}
	return topics
}
