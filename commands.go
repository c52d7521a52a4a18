package main

import (
	"errors"
	"fmt"
	"strings"

	MQTT "github.com/eclipse/paho.mqtt.golang"
	"github.com/elijahnyp/house_hub/state"
	. "github.com/elijahnyp/house_hub/util"
)

var errNotBrewable = errors.New("device cannot brew")

// handleCommand applies a toggle, brew or explicit state command to one
// device and returns the device afterwards. Anything else, including an
// empty payload, is treated as a state and rejected if invalid.
func handleCommand(roomID, deviceID, payload string) (state.Device, error) {
	switch strings.ToLower(strings.TrimSpace(payload)) {
	case "toggle":
		return house.Toggle(roomID, deviceID)
	case "brew":
		if _, _, err := startBrew(roomID, deviceID); err != nil {
			return state.Device{}, err
		}
		d, _ := house.Device(roomID, deviceID)
		return d, nil
	default:
		return house.Set(roomID, deviceID, payload)
	}
}

func startBrew(roomID, deviceID string) (jobID string, started bool, err error) {
	d, ok := house.Device(roomID, deviceID)
	if !ok {
		return "", false, fmt.Errorf("%w: %s/%s", state.ErrDeviceNotFound, roomID, deviceID)
	}
	if d.Type != state.TypeCoffeeMachine {
		return "", false, fmt.Errorf("%w: %s/%s is a %s", errNotBrewable, roomID, deviceID, d.Type)
	}
	jobID, started = brewer.Start(BrewKey(roomID, deviceID))
	return jobID, started, nil
}

func receiver(client MQTT.Client, message MQTT.Message) {
	roomID, deviceID, kind := currentModel().FindDeviceByTopic(message.Topic())
	if kind != COMMAND {
		Logger.Debug().Msgf("topic %s not found in model.  Fix subscription or add to model", message.Topic())
		return
	}
	Logger.Debug().Msgf("command %q received for %s/%s", string(message.Payload()), roomID, deviceID)
	if _, err := handleCommand(roomID, deviceID, string(message.Payload())); err != nil {
		Logger.Warn().Msgf("command on %s failed: %v", message.Topic(), err)
	}
}

func subscribeDeviceTopics() {
	ClearMQTTSubscriptions()
	for _, topic := range currentModel().SubscribeTopics() {
		RegisterMQTTSubscription(topic, receiver)
	}
}

func publishDeviceState(roomID string, d state.Device) {
	if Client == nil || !Client.IsConnected() {
		return
	}
	if err := Publish(currentModel().StateTopic(roomID, d.ID), true, d.State); err != nil {
		Logger.Warn().Msgf("unable to publish state of %s/%s: %v", roomID, d.ID, err)
	}
}

// publishAllStates seeds the retained state topics after a connect.
func publishAllStates(client MQTT.Client) {
	m := currentModel()
	for _, room := range house.Rooms() {
		for _, d := range room.Devices {
			if d.State == "" {
				continue
			}
			if token := client.Publish(m.StateTopic(room.ID, d.ID), 0, true, d.State); token.Wait() && token.Error() != nil {
				Logger.Error().Msgf("Error publishing state of %s/%s: %v", room.ID, d.ID, token.Error())
			}
		}
	}
}

func onDeviceChange(c DeviceChange) {
	publishDeviceState(c.RoomID, c.After)
	gateway.Forward(GatewayJob{
		Url:    currentModel().FindGatewayURL(c.RoomID, c.After.ID),
		Room:   c.RoomID,
		Device: c.After.ID,
		State:  c.After.State,
	})
	if wsHub != nil {
		wsHub.BroadcastUpdate("device_state", viewDevice(c.RoomID, c.After))
	}
}

func onBrewProgress(key, jobID string, progress int) {
	if wsHub == nil {
		return
	}
	roomID, deviceID, _ := strings.Cut(key, "/")
	d, ok := house.Device(roomID, deviceID)
	if !ok {
		return
	}
	wsHub.BroadcastUpdate("brew_progress", BrewProgress{
		Room:     roomID,
		Device:   deviceID,
		JobID:    jobID,
		Progress: progress,
		Icon:     d.Icon(float64(progress)),
	})
}
