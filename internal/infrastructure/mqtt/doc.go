// Package mqtt provides MQTT client connectivity for Motion Core.
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
// Motion Core uses MQTT as the transport to the hardware gateway
// controllers. The broker decouples the daemon from controller firmware:
// commands go out on motion/command/{controller}/{device}, and the
// firmware acknowledges completion on motion/ack/{controller}/{device}.
//
//	Motion Core ↔ MQTT Broker ↔ Gateway Controllers
//
// # Security Considerations
//
//   - TLS is required for production deployments (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Anonymous access is only for local bench setups
//   - Message payloads are not encrypted beyond TLS transport
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Subscribe to all controller acks
//	err = client.Subscribe(mqtt.Topics{}.AllControllerAcks(), 1,
//	    func(topic string, payload []byte) error {
//	        log.Printf("Received: %s = %s", topic, payload)
//	        return nil
//	    })
//
//	// Publish command
//	topic := mqtt.Topics{}.ControllerCommand("gantry-01", "axis-x")
//	client.Publish(topic, []byte(`{"action":"moveTo","value":120}`), 1, false)
package mqtt
