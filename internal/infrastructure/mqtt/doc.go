// Package mqtt provides MQTT client connectivity for the Weathervane reading
// ingest bridge.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//
// # Architecture
//
// HTTP is Weathervane's primary write path. MQTT exists for field stations
// that batch readings over flaky links: a station publishes each reading to
// weathervane/readings/{device} and the ingest bridge stores it through the
// same repository the POST endpoint uses.
//
//	Weather Stations -> MQTT Broker -> Weathervane ingest
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.AllReadings(), 1,
//	    func(topic string, payload []byte) error {
//	        // payload is a reading in the HTTP wire format
//	        return nil
//	    })
package mqtt
