/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package mqtt

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/walterneylp/voltdocs19022026-sub000/configuration"
	"github.com/walterneylp/voltdocs19022026-sub000/logs"
)

// MessageHandler represents a generic handler for MQTT messages
type MessageHandler func(topic string, payload []byte)

var (
	client       mqtt.Client
	handlers     = make(map[string]MessageHandler)
	handlerMutex sync.RWMutex

	// publishFunc is replaced in tests
	publishFunc = publish
)

// Init initializes the MQTT client with basic connection
func Init() bool {
	if !configuration.Config.MQTTEnabled {
		logs.Log("[INFO][MQTT] MQTT disabled - missing broker address")
		return false
	}

	// MQTT client options
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%s", configuration.Config.MQTTHost, configuration.Config.MQTTPort))
	opts.SetClientID("voltdocs-audit")
	opts.SetUsername(configuration.Config.MQTTUsername)
	opts.SetPassword(configuration.Config.MQTTPassword)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)

	// Connection lost handler
	opts.SetConnectionLostHandler(func(client mqtt.Client, err error) {
		logs.Log(fmt.Sprintf("[WARNING][MQTT] Connection lost: %v", err))
	})

	// On connect handler
	opts.SetOnConnectHandler(func(client mqtt.Client) {
		logs.Log("[INFO][MQTT] Connected to MQTT broker")

		// Re-subscribe to all registered topics after reconnection
		handlerMutex.RLock()
		defer handlerMutex.RUnlock()
		for topic := range handlers {
			subscribeToTopic(topic)
		}
	})

	client = mqtt.NewClient(opts)

	// The client retries in background thanks to SetAutoReconnect and SetConnectRetry
	token := client.Connect()
	go func() {
		if token.Wait() && token.Error() != nil {
			logs.Log(fmt.Sprintf("[ERROR][MQTT] Failed to connect to MQTT broker: %v", token.Error()))
			logs.Log("[INFO][MQTT] Will retry connection in background...")
		}
	}()

	logs.Log("[INFO][MQTT] MQTT client initialized - connecting in background")
	return true
}

// Topic joins the configured prefix with the given segments.
func Topic(segments ...string) string {
	parts := []string{strings.Trim(configuration.Config.MQTTTopicPrefix, "/")}
	parts = append(parts, segments...)
	return strings.Join(parts, "/")
}

// SubscribeToTopic registers a handler. The subscription is made now when the
// client is connected, otherwise on the next connection.
func SubscribeToTopic(topic string, handler MessageHandler) error {
	handlerMutex.Lock()
	handlers[topic] = handler
	handlerMutex.Unlock()

	if client == nil || !client.IsConnected() {
		return nil
	}
	return subscribeToTopic(topic)
}

// subscribeToTopic performs the actual subscription
func subscribeToTopic(topic string) error {
	token := client.Subscribe(topic, 1, func(client mqtt.Client, msg mqtt.Message) {
		handleMessage(topic, msg.Topic(), msg.Payload())
	})

	if token.Wait() && token.Error() != nil {
		logs.Log(fmt.Sprintf("[ERROR][MQTT] Failed to subscribe to %s: %v", topic, token.Error()))
		return token.Error()
	}

	logs.Log(fmt.Sprintf("[INFO][MQTT] Subscribed to topic: %s", topic))
	return nil
}

// handleMessage routes messages to the handler registered for the filter
func handleMessage(filter, topic string, payload []byte) {
	handlerMutex.RLock()
	handler, exists := handlers[filter]
	handlerMutex.RUnlock()

	if !exists {
		logs.Log(fmt.Sprintf("[WARNING][MQTT] No handler found for topic: %s", topic))
		return
	}
	handler(topic, payload)
}

// Publish sends a JSON payload. It is a no-op when MQTT is disabled.
func Publish(topic string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return publishFunc(topic, data)
}

func publish(topic string, data []byte) error {
	if client == nil {
		return nil
	}

	token := client.Publish(topic, 1, false, data)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish to %s timed out", topic)
	}
	return token.Error()
}

// Close closes the MQTT client
func Close() {
	if client != nil && client.IsConnected() {
		client.Disconnect(250)
		logs.Log("[INFO][MQTT] MQTT client disconnected")
	}
}
