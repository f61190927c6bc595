package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/nerrad567/qrauto/internal/infrastructure/config"
)

// testConfig targets a local Mosquitto at 127.0.0.1:1883.
func testConfig(clientID string) config.MQTTConfig {
	return config.MQTTConfig{
		Enabled: true,
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

// connectOrSkip skips the test when no broker is reachable.
func connectOrSkip(t *testing.T, clientID string) *Client {
	t.Helper()
	client, err := Connect(testConfig(clientID))
	if err != nil {
		t.Skipf("MQTT broker not available: %v", err)
	}
	t.Cleanup(func() { client.Close() }) //nolint:errcheck // test cleanup
	return client
}

// =============================================================================
// Unit Tests (no broker)
// =============================================================================

func TestTopics(t *testing.T) {
	topics := Topics{}
	tests := []struct {
		got, want string
	}{
		{topics.SystemStatus(), "qrauto/system/status"},
		{topics.RunStarted("abc"), "qrauto/run/abc/started"},
		{topics.RunCompleted("abc"), "qrauto/run/abc/completed"},
		{topics.AllRunEvents(), "qrauto/run/+/+"},
		{topics.CommandRun(), "qrauto/command/run"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("topic = %q, want %q", tt.got, tt.want)
		}
	}
}

func TestBuildClientOptions(t *testing.T) {
	cfg := testConfig("qrauto-opts")
	cfg.Auth.Username = "operator"
	cfg.Auth.Password = "secret"

	opts := buildClientOptions(cfg)

	if len(opts.Servers) != 1 || opts.Servers[0].String() != "tcp://127.0.0.1:1883" {
		t.Errorf("Servers = %v", opts.Servers)
	}
	if opts.ClientID != "qrauto-opts" {
		t.Errorf("ClientID = %q", opts.ClientID)
	}
	if opts.Username != "operator" || opts.Password != "secret" {
		t.Error("credentials not applied")
	}
	if !opts.WillEnabled || opts.WillTopic != "qrauto/system/status" || !opts.WillRetained {
		t.Errorf("LWT = enabled %v topic %q retained %v", opts.WillEnabled, opts.WillTopic, opts.WillRetained)
	}

	cfg.Broker.TLS = true
	if opts := buildClientOptions(cfg); opts.Servers[0].Scheme != "ssl" || opts.TLSConfig == nil {
		t.Error("TLS broker should use ssl:// with a TLS config")
	}
}

func TestStatusPayload(t *testing.T) {
	var msg statusMessage
	if err := json.Unmarshal(statusPayload("offline", "qrauto", "graceful_shutdown"), &msg); err != nil {
		t.Fatalf("status payload is not JSON: %v", err)
	}
	if msg.Status != "offline" || msg.ClientID != "qrauto" || msg.Reason != "graceful_shutdown" {
		t.Errorf("status = %+v", msg)
	}
	if _, err := time.Parse(time.RFC3339, msg.Timestamp); err != nil {
		t.Errorf("timestamp %q: %v", msg.Timestamp, err)
	}
}

func TestConnect_BrokerRefused(t *testing.T) {
	cfg := testConfig("qrauto-refused")
	cfg.Broker.Port = 19999

	if _, err := Connect(cfg); !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestCloseNil(t *testing.T) {
	var c *Client
	if err := c.Close(); err != nil {
		t.Errorf("Close() on nil client error = %v", err)
	}
}

// =============================================================================
// Broker Tests
// =============================================================================

func TestConnectAndHealthCheck(t *testing.T) {
	client := connectOrSkip(t, "qrauto-test-health")

	if !client.IsConnected() {
		t.Error("IsConnected() = false after Connect")
	}
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := client.HealthCheck(ctx); err == nil {
		t.Error("HealthCheck() with cancelled context succeeded")
	}
}

// Argument checks run before the connection check, so no broker is needed.
func TestPublishValidation(t *testing.T) {
	client := &Client{subscriptions: make(map[string]subscription)}

	for _, topic := range []string{"", "qrauto/run/+/completed", "qrauto/#"} {
		if err := client.Publish(topic, []byte("x"), 1, false); !errors.Is(err, ErrInvalidTopic) {
			t.Errorf("Publish(%q) error = %v, want ErrInvalidTopic", topic, err)
		}
	}
	if err := client.Publish("qrauto/test", []byte("x"), 3, false); !errors.Is(err, ErrInvalidQoS) {
		t.Errorf("QoS 3 error = %v", err)
	}
	big := make([]byte, maxPayloadSize+1)
	if err := client.Publish("qrauto/test", big, 1, false); !errors.Is(err, ErrPublishFailed) {
		t.Errorf("oversized payload error = %v", err)
	}
	if err := client.Subscribe("qrauto/test", 1, nil); !errors.Is(err, ErrSubscribeFailed) {
		t.Errorf("nil handler error = %v", err)
	}
	if err := client.Subscribe("", 1, func(string, []byte) error { return nil }); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("empty subscribe topic error = %v", err)
	}
	if client.HasSubscription("qrauto/test") {
		t.Error("rejected subscription was recorded")
	}
}

func TestPublishAfterClose(t *testing.T) {
	client := connectOrSkip(t, "qrauto-test-closed")
	client.Close() //nolint:errcheck // testing post-close behaviour

	if err := client.Publish("qrauto/test", []byte("x"), 1, false); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Publish() after Close error = %v, want ErrNotConnected", err)
	}
}

func TestRunEventRoundtrip(t *testing.T) {
	sub := connectOrSkip(t, "qrauto-test-sub")
	pub := connectOrSkip(t, "qrauto-test-pub")

	received := make(chan map[string]any, 1)
	err := sub.Subscribe(Topics{}.AllRunEvents(), 1, func(_ string, payload []byte) error {
		var body map[string]any
		if err := json.Unmarshal(payload, &body); err != nil {
			return err
		}
		received <- body
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	if !sub.HasSubscription(Topics{}.AllRunEvents()) {
		t.Error("subscription not tracked")
	}

	time.Sleep(100 * time.Millisecond)

	if err := pub.PublishJSON(Topics{}.RunCompleted("run-1"), map[string]any{"success": true}); err != nil {
		t.Fatalf("PublishJSON() error = %v", err)
	}

	select {
	case body := <-received:
		if body["success"] != true {
			t.Errorf("received %v", body)
		}
	case <-time.After(5 * time.Second):
		t.Error("timeout waiting for run event")
	}

	if err := sub.Unsubscribe(Topics{}.AllRunEvents()); err != nil {
		t.Errorf("Unsubscribe() error = %v", err)
	}
	if sub.HasSubscription(Topics{}.AllRunEvents()) {
		t.Error("subscription still tracked after Unsubscribe")
	}
}
