// Package mqtt provides MQTT client connectivity for eblu.
//
// It wraps paho.mqtt.golang with:
//   - Connection management with auto-reconnect and exponential backoff
//   - Last Will and Testament for offline detection
//   - Retained per-device presence topics
//   - Subscription restoration on reconnect
//   - Panic recovery in message handlers
//
// eblu publishes device presence to the broker so other home-automation
// services can react to Bluetooth devices appearing and disappearing
// without talking to the control tool themselves:
//
//	eblu ──▶ MQTT Broker ──▶ dashboards, automations
//
// # Topics
//
//   - eblu/device/{address}/state: retained canonical device state
//   - eblu/device/{address}/event: lifecycle events (paired, forgotten)
//   - eblu/device/{address}/command: inbound actions (connect, disconnect, toggle)
//   - eblu/discovered: latest discovery scan results
//   - eblu/system/status: service online/offline status (retained, LWT)
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	topic := mqtt.Topics{}.DeviceState("aa-bb-cc-dd-ee-ff")
//	err = client.PublishRetained(topic, payload)
//
// # Thread Safety
//
// All Client methods are safe for concurrent use.
package mqtt
