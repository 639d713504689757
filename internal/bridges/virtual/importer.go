package virtual

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nerrad567/plantline/internal/infrastructure/mqtt"
)

// Import publishes the placements of s, then its variable declarations.
func Import(ctx context.Context, client MQTTClient, qos byte, s *Scene, logger Logger) error {
	if logger == nil {
		logger = noopLogger{}
	}
	if !client.IsConnected() {
		return ErrNotConnected
	}

	for _, msg := range []struct {
		topic   string
		payload any
		count   int
	}{
		{mqtt.Topics{}.SceneInsert(), s.Placements, len(s.Placements)},
		{mqtt.Topics{}.SceneVariables(), s.Variables, len(s.Variables)},
	} {
		if err := ctx.Err(); err != nil {
			return err
		}
		data, err := json.Marshal(msg.payload)
		if err != nil {
			return fmt.Errorf("marshal scene: %w", err)
		}
		if err := client.Publish(msg.topic, data, qos, false); err != nil {
			return fmt.Errorf("publish %s: %w", msg.topic, err)
		}
		logger.Info("twin scene published", "topic", msg.topic, "items", msg.count)
	}
	return nil
}
