package util

import (
	"fmt"
	"sync"

	MQTT "github.com/eclipse/paho.mqtt.golang"
)

var Client MQTT.Client

var (
	registryMu      sync.Mutex
	subscriptions   map[string]MQTT.MessageHandler
	connectHandlers map[string]func(MQTT.Client)
)

func availabilityTopic() string {
	return Config.GetString("availability_topic")
}

var connectHandler MQTT.OnConnectHandler = func(client MQTT.Client) {
	Logger.Info().Msg("Connected")
	subscribe(client)
	client.Publish(availabilityTopic(), 0, false, "online").Wait()
	registryMu.Lock()
	handlers := make([]func(MQTT.Client), 0, len(connectHandlers))
	for _, handler := range connectHandlers {
		handlers = append(handlers, handler)
	}
	registryMu.Unlock()
	for _, handler := range handlers {
		handler(client)
	}
}

// RegisterMQTTConnectHook runs handler on every (re)connect. A nil handler
// removes the hook.
func RegisterMQTTConnectHook(name string, handler func(MQTT.Client)) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if connectHandlers == nil {
		connectHandlers = make(map[string]func(client MQTT.Client))
	}
	if handler == nil {
		delete(connectHandlers, name)
	} else {
		connectHandlers[name] = handler
	}
}

func subscribe(client MQTT.Client) {
	registryMu.Lock()
	subs := make(map[string]MQTT.MessageHandler, len(subscriptions))
	for topic, handler := range subscriptions {
		subs[topic] = handler
	}
	registryMu.Unlock()
	for topic, handler := range subs {
		if token := client.Subscribe(topic, 0, handler); token.Wait() && token.Error() != nil {
			Logger.Error().Msgf("Error Subscribing to %s: %v", topic, token.Error())
		}
	}
}

// RegisterMQTTSubscription records a subscription that is (re)applied on
// connect. When already connected it is applied immediately. A nil handler
// removes the subscription.
func RegisterMQTTSubscription(topic string, handler MQTT.MessageHandler) {
	registryMu.Lock()
	if subscriptions == nil {
		subscriptions = make(map[string]MQTT.MessageHandler)
	}
	if handler == nil {
		delete(subscriptions, topic)
	} else {
		subscriptions[topic] = handler
	}
	registryMu.Unlock()

	if Client == nil || !Client.IsConnected() {
		return
	}
	if handler == nil {
		Client.Unsubscribe(topic).Wait()
		return
	}
	if token := Client.Subscribe(topic, 0, handler); token.Wait() && token.Error() != nil {
		Logger.Error().Msgf("Error Subscribing to %s: %v", topic, token.Error())
	}
}

// ClearMQTTSubscriptions drops every registered subscription, unsubscribing
// from the broker when connected.
func ClearMQTTSubscriptions() {
	registryMu.Lock()
	topics := make([]string, 0, len(subscriptions))
	for topic := range subscriptions {
		topics = append(topics, topic)
	}
	subscriptions = make(map[string]MQTT.MessageHandler)
	registryMu.Unlock()

	if Client != nil && Client.IsConnected() && len(topics) > 0 {
		Client.Unsubscribe(topics...).Wait()
	}
}

// Publish sends payload on topic, logging failures.
func Publish(topic string, retained bool, payload string) error {
	if Client == nil {
		return fmt.Errorf("mqtt client not initialized")
	}
	if token := Client.Publish(topic, 0, retained, payload); token.Wait() && token.Error() != nil {
		Logger.Error().Msgf("Error publishing to %s: %v", topic, token.Error())
		return token.Error()
	}
	return nil
}

func receiver(client MQTT.Client, message MQTT.Message) {
	Logger.Warn().Msgf("Received message on %v but no handler", message.Topic())
}

var connectLostHandler MQTT.ConnectionLostHandler = func(client MQTT.Client, err error) {
	Logger.Info().Msgf("Connect lost: %v", err)
}

func MqttInit() {
	opts := MQTT.NewClientOptions()
	opts.AddBroker(Config.GetString("broker_uri"))
	opts.SetClientID(Config.GetString("id_base") + "_" + GetRandString(6))
	opts.SetUsername(Config.GetString("username"))
	opts.SetPassword(Config.GetString("password"))
	opts.SetCleanSession(Config.GetBool("cleansess"))
	opts.SetAutoReconnect(true)
	opts.SetWill(availabilityTopic(), "offline", 0, false)
	opts.OnConnectionLost = connectLostHandler
	opts.OnConnect = connectHandler
	opts.SetDefaultPublishHandler(receiver)

	if Client != nil {
		Logger.Debug().Msg("Client exists - destroying")
		if Client.IsConnected() {
			Client.Disconnect(1000)
		}
		Client = nil
	}

	Client = MQTT.NewClient(opts)

	if token := Client.Connect(); token.Wait() && token.Error() != nil {
		panic(token.Error())
	}
}
