package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	MQTT "github.com/eclipse/paho.mqtt.golang"
	. "github.com/elijahnyp/house_hub/util"
	"github.com/spf13/pflag"
)

var (
	house   = NewHouse()
	brewer  = NewBrewer(5, 200*time.Millisecond, 2*time.Second)
	gateway GatewayForwarder
)

// the config-side model is swapped whole on reload and read from the MQTT,
// HTTP and ticker goroutines
var model atomic.Pointer[Model]

func currentModel() Model {
	if m := model.Load(); m != nil {
		return *m
	}
	return Model{}
}

func setModel(m Model) {
	model.Store(&m)
}

func reloadHouse() {
	next := currentModel()
	if err := next.BuildModel(); err != nil {
		Logger.Error().Msgf("Error building model: %v", err)
		return
	}
	setModel(next)
	house.Reload(next.Snapshot(), next.Toggler())
}

func main() {
	flags := NewFlagSet(os.Args[0])
	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	LogInit("info")
	SetupConfig(flags)
	LogInit(Config.GetString("log_level"))

	if Config.GetBool("list") {
		reloadHouse()
		printHouse(os.Stdout, viewHouse())
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	brewer = NewBrewerFromConfig()
	brewer.OnProgress(onBrewProgress)
	house.OnChange(onDeviceChange)

	wsHub = NewHub()
	go wsHub.Run()

	RegisterNewConfigListener(func() { LogInit(Config.GetString("log_level")) })
	RegisterNewConfigListener(reloadHouse)
	RegisterNewConfigListener(subscribeDeviceTopics)
	RegisterMQTTConnectHook("haadvertise", func(client MQTT.Client) {
		AdvertiseHA(currentModel(), house, client)
	})
	RegisterMQTTConnectHook("states", publishAllStates)
	RegisterNewConfigListener(MqttInit)
	if Config.GetBool("insecure_tls") {
		Logger.Debug().Msg("disabling tls verification")
		if transport, ok := http.DefaultTransport.(*http.Transport); ok {
			transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // intentional for testing environments
		} else {
			Logger.Warn().Msg("Failed to configure insecure TLS: transport type assertion failed")
		}
	}
	OnNewConfig()

	gateway.MakeGatewayForwarder()

	monitor := NewMonitorServer()
	registerHandlers(monitor)
	if err := monitor.Start(); err != nil {
		Logger.Error().Msgf("Error starting monitor server: %v", err)
	}
	RegisterNewConfigListener(func() { monitor.Restart() })

	Logger.Info().Msgf("ready with %d rooms", len(house.Rooms()))
	go OnlinePinger(ctx)
	go HAAdvertiser(ctx)

	<-ctx.Done()
	Logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := monitor.Shutdown(shutdownCtx); err != nil {
		Logger.Error().Msgf("Error stopping monitor server: %v", err)
	}
	brewer.Stop()
	gateway.Close()
	if Client != nil && Client.IsConnected() {
		if err := Publish(Config.GetString("availability_topic"), false, "offline"); err != nil {
			Logger.Warn().Msgf("unable to publish offline: %v", err)
		}
		Client.Disconnect(1000)
	}
}

// OnlinePinger publishes availability every 10 seconds
func OnlinePinger(ctx context.Context) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		if Client != nil && Client.IsConnected() {
			if err := Publish(Config.GetString("availability_topic"), false, "online"); err != nil {
				Logger.Error().Msgf("Error publishing online message: %v", err)
			}
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// HAAdvertiser - advertises Home Assistant discovery messages every 5 minutes
func HAAdvertiser(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if Client != nil && Client.IsConnected() {
				Logger.Debug().Msg("Advertising Home Assistant discovery messages")
				AdvertiseHA(currentModel(), house, Client)
			}
		}
	}
}
