// Package mqtt provides MQTT client connectivity for Home Core.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// MQTT is the message bus between the hardware (ESP firmware publishing
// sensor readings, camera events and status echoes) and the backend, and
// the channel on which external apps issue control commands.
//
//	ESP hardware / external apps ↔ MQTT Broker ↔ Home Core
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Subscribe to the primary sensor topic
//	err = client.Subscribe(mqtt.Topics{}.SensorData(), 1,
//	    func(topic string, payload []byte) error {
//	        log.Printf("Received: %s = %s", topic, payload)
//	        return nil
//	    })
//
//	// Publish a control command
//	client.Publish(mqtt.Topics{}.Control(), []byte("water-motor on"), 1, false)
package mqtt
