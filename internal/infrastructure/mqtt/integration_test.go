//go:build integration

package mqtt

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/sadesguy/eblu/internal/infrastructure/config"
)

// Integration tests require a broker at 127.0.0.1:1883:
//
//	go test -tags=integration ./internal/infrastructure/mqtt/...

func integrationConfig(clientID string) config.MQTTConfig {
	return config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: clientID,
		},
		QoS: 1,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
	}
}

func TestIntegration_CommandRoundtrip(t *testing.T) {
	client, err := Connect(integrationConfig("eblu-int-roundtrip"))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close() //nolint:errcheck // Test cleanup

	var received atomic.Int32
	topic := Topics{}.DeviceCommand("aa:bb:cc:dd:ee:ff")
	done := make(chan struct{})

	err = client.Subscribe(topic, 1, func(_ string, payload []byte) error {
		if string(payload) == "connect" {
			received.Add(1)
			close(done)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	if err := client.Publish(topic, []byte("connect"), 1, false); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("message not delivered within 5s")
	}
	if received.Load() != 1 {
		t.Errorf("received = %d, want 1", received.Load())
	}
}

func TestIntegration_SubscriptionTracking(t *testing.T) {
	client, err := Connect(integrationConfig("eblu-int-subs"))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close() //nolint:errcheck // Test cleanup

	handler := func(string, []byte) error { return nil }
	topics := []string{
		Topics{}.AllDeviceCommands(),
		Topics{}.AllDeviceStates(),
	}
	for _, topic := range topics {
		if err := client.Subscribe(topic, 1, handler); err != nil {
			t.Fatalf("Subscribe(%q) error = %v", topic, err)
		}
	}
	if got := client.SubscriptionCount(); got != len(topics) {
		t.Errorf("SubscriptionCount() = %d, want %d", got, len(topics))
	}

	if err := client.Unsubscribe(topics[0]); err != nil {
		t.Fatalf("Unsubscribe() error = %v", err)
	}
	if got := client.SubscriptionCount(); got != len(topics)-1 {
		t.Errorf("SubscriptionCount() after unsubscribe = %d, want %d", got, len(topics)-1)
	}
}

func TestIntegration_RetainedStatus(t *testing.T) {
	publisher, err := Connect(integrationConfig("eblu-int-status-pub"))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer publisher.Close() //nolint:errcheck // Test cleanup

	// The online status is published retained on connect, so a late
	// subscriber still sees it.
	subscriber, err := Connect(integrationConfig("eblu-int-status-sub"))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer subscriber.Close() //nolint:errcheck // Test cleanup

	got := make(chan []byte, 1)
	err = subscriber.Subscribe(Topics{}.SystemStatus(), 1, func(_ string, payload []byte) error {
		select {
		case got <- payload:
		default:
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	select {
	case payload := <-got:
		if len(payload) == 0 {
			t.Error("empty status payload")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no retained status within 5s")
	}
}
