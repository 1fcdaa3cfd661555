package config

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"os"
	"sync"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/joho/godotenv"
	"google.golang.org/api/option"
)

// UploadStatusEvent is published when an upload reaches a terminal state.
// Consumed by the notification service (email/webhook), which is outside
// this repo.
type UploadStatusEvent struct {
	TenantId   string `json:"tenant_id"`
	UploadId   int    `json:"upload_id"`
	Status     string `json:"status"`
	Total      int    `json:"total"`
	Inserted   int    `json:"inserted"`
	Duplicate  int    `json:"duplicate"`
	Failed     int    `json:"failed"`
	OccurredAt string `json:"occurred_at"`
}

var (
	pubsubClient   *pubsub.Client
	pubsubClientMu sync.Mutex
)

func init() {
	// Load env from .env
	godotenv.Load()
}

func getPubSubProjectID() string {
	if v := os.Getenv("PUBSUB_PROJECT_ID"); v != "" {
		return v
	}
	// Cloud Run/Cloud Functions often set this.
	if v := os.Getenv("GOOGLE_CLOUD_PROJECT"); v != "" {
		return v
	}
	if v := os.Getenv("GCP_PROJECT"); v != "" {
		return v
	}
	return ""
}

func getPubSubClient(ctx context.Context) (*pubsub.Client, error) {
	pubsubClientMu.Lock()
	if pubsubClient != nil {
		c := pubsubClient
		pubsubClientMu.Unlock()
		return c, nil
	}
	pubsubClientMu.Unlock()

	projectID := getPubSubProjectID()
	if projectID == "" {
		return nil, errors.New("PUBSUB_PROJECT_ID/GOOGLE_CLOUD_PROJECT not set")
	}

	var opts []option.ClientOption
	if credJSON := os.Getenv("PUBSUB_CREDENTIALS_JSON"); credJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(credJSON)))
	}

	client, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, err
	}

	pubsubClientMu.Lock()
	pubsubClient = client
	pubsubClientMu.Unlock()
	return client, nil
}

// PublishUploadStatus publishes the terminal status event. Best-effort:
// notification delivery never decides the fate of an upload, so errors are
// logged by the caller and otherwise swallowed.
func PublishUploadStatus(ctx context.Context, event UploadStatusEvent) error {
	topicID := os.Getenv("UPLOAD_STATUS_TOPIC")
	if topicID == "" {
		// Not configured (local/dev). Silently skip.
		return nil
	}

	client, err := getPubSubClient(ctx)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	publishCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	topic := client.Topic(topicID)
	result := topic.Publish(publishCtx, &pubsub.Message{
		Data: payload,
		Attributes: map[string]string{
			"tenant_id": event.TenantId,
			"status":    event.Status,
		},
	})
	if _, err := result.Get(publishCtx); err != nil {
		log.Printf("failed to publish upload status event (upload=%d): %v", event.UploadId, err)
		return err
	}
	return nil
}
