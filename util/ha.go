package util

import (
	"encoding/json"
	"fmt"

	MQTT "github.com/eclipse/paho.mqtt.golang"
	"github.com/elijahnyp/house_hub/state"
)

type HAAvdvertisementAvailability struct {
	Topic               string `json:"topic"`                 // : "house/online"
	PayloadAvailable    string `json:"payload_available"`     // : "online"
	PayloadNotAvailable string `json:"payload_not_available"` // : "offline"
}

type HADeviceSpec struct {
	Name        string   `json:"name"` // : "house_hub"
	Identifiers []string `json:"ids"`  // : ["house_hub"]
}

// HAAdvertisement is a Home Assistant MQTT discovery payload. Switch fields
// and cover fields are mutually exclusive.
type HAAdvertisement struct { //nolint:govet // struct layout optimized for JSON field order
	HAAvdvertisementAvailability []HAAvdvertisementAvailability `json:"availability"`
	Device                       HADeviceSpec                   `json:"device"`
	UniqueID                     string                         `json:"uniq_id"`       // "house_hub-kitchen_light1"
	Name                         string                         `json:"name"`          // : "Kitchen Light"
	StateTopic                   string                         `json:"state_topic"`   // : "house/kitchen/light1/state"
	CommandTopic                 string                         `json:"command_topic"` // : "house/kitchen/light1/set"
	PayloadOn                    string                         `json:"payload_on,omitempty"`
	PayloadOff                   string                         `json:"payload_off,omitempty"`
	StateOn                      string                         `json:"state_on,omitempty"`
	StateOff                     string                         `json:"state_off,omitempty"`
	PayloadOpen                  string                         `json:"payload_open,omitempty"`
	PayloadClose                 string                         `json:"payload_close,omitempty"`
	StateOpen                    string                         `json:"state_open,omitempty"`
	StateClosed                  string                         `json:"state_closed,omitempty"`
	DeviceClass                  string                         `json:"device_class,omitempty"` // : "door"
	Icon                         string                         `json:"icon,omitempty"`         // : "mdi:lightbulb"
	Platform                     string                         `json:"platform"`               // "switch" or "cover"
	Qos                          int                            `json:"qos"`
}

func (ha HAAdvertisement) ToJson() string {
	data, err := json.Marshal(ha)
	if err != nil {
		Logger.Error().Msgf("Error marshalling HAAdvertisement: %v", err)
		return ""
	}
	return string(data)
}

// ConstructHAAdvertisement builds the discovery payload for one device. ok
// is false for device types Home Assistant has no sensible entity for.
func ConstructHAAdvertisement(m Model, toggler state.Toggler, roomID string, d state.Device) (ha HAAdvertisement, ok bool) {
	name := d.Label
	if name == "" {
		name = roomID + " " + d.ID
	}
	ha = HAAdvertisement{
		Name:         name,
		StateTopic:   m.StateTopic(roomID, d.ID),
		CommandTopic: m.CommandTopic(roomID, d.ID),
		HAAvdvertisementAvailability: []HAAvdvertisementAvailability{
			{
				Topic:               availabilityTopic(),
				PayloadAvailable:    "online",
				PayloadNotAvailable: "offline",
			},
		},
		Qos:      0,
		UniqueID: "house_hub-" + roomID + "_" + d.ID,
		Icon:     "mdi:" + state.GetDeviceIconDetails(d.Type, state.StateOn, 1).Name,
		Device: HADeviceSpec{
			Name:        "house_hub",
			Identifiers: []string{"house_hub"},
		},
	}

	switch {
	case toggler.FamilyOf(d.Type) == state.FamilyOnOff:
		ha.Platform = "switch"
		ha.PayloadOn = state.StateOn
		ha.PayloadOff = state.StateOff
		ha.StateOn = state.StateOn
		ha.StateOff = state.StateOff
	case d.Type == state.TypeDoor || d.Type == state.TypeWindow:
		ha.Platform = "cover"
		ha.DeviceClass = string(d.Type)
		ha.PayloadOpen = state.StateOpen
		ha.PayloadClose = state.StateClosed
		ha.StateOpen = state.StateOpen
		ha.StateClosed = state.StateClosed
	default:
		return ha, false
	}
	return ha, true
}

func HADiscoveryTopic(ha HAAdvertisement, roomID, deviceID string) string {
	return fmt.Sprintf("homeassistant/%s/%s_%s/config", ha.Platform, roomID, deviceID)
}

func AdvertiseHA(m Model, h *House, client MQTT.Client) {
	toggler := h.Toggler()
	for _, room := range h.Rooms() {
		for _, d := range room.Devices {
			ha, ok := ConstructHAAdvertisement(m, toggler, room.ID, d)
			if !ok {
				Logger.Debug().Msgf("no discovery entity for %s/%s of type %q", room.ID, d.ID, d.Type)
				continue
			}
			if token := client.Publish(HADiscoveryTopic(ha, room.ID, d.ID), 0, false, ha.ToJson()); token.Wait() && token.Error() != nil {
				Logger.Error().Msgf("Error Publishing: %v", token.Error())
			}
		}
	}
}
