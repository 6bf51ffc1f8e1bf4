// Package mq moves notifications through RabbitMQ so delivery happens in a
// separate worker process.
package mq

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gdg-garage/medislot-api/internal/notifier"
)

const keyPrefix = "notify."

// Bindings matches every notification routing key.
var Bindings = []string{keyPrefix + "#"}

type Envelope struct {
	To      notifier.Recipient `json:"to"`
	Message notifier.Message   `json:"message"`
	SentAt  time.Time          `json:"sent_at"`
}

// RoutingKey is "notify.<kind>", e.g. notify.booking.confirmed.
func RoutingKey(kind notifier.Kind) string {
	return keyPrefix + string(kind)
}

func decode(key string, body []byte) (Envelope, error) {
	var env Envelope
	if !strings.HasPrefix(key, keyPrefix) {
		return env, fmt.Errorf("unexpected routing key %q", key)
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return env, fmt.Errorf("decode %s: %w", key, err)
	}
	if want := RoutingKey(env.Message.Kind); want != key {
		return env, fmt.Errorf("routing key %q does not match message kind %q", key, env.Message.Kind)
	}
	return env, nil
}
