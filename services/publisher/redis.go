package publisher

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"strconv"

	"github.com/redis/go-redis/v9"

	"sjsage522/pricewatcher/internal/alert"
	"sjsage522/pricewatcher/internal/model"
)

// AlertField is the stream entry field holding the base64 encoded alert JSON
const AlertField = "b64_alert"

// AlertMessage is the payload consumers read from the alert streams
type AlertMessage struct {
	alert.Event
	Platform  model.Platform `json:"platform"`
	Title     string         `json:"title,omitempty"`
	URL       string         `json:"url,omitempty"`
	Currency  string         `json:"currency,omitempty"`
	ImageURL  string         `json:"image_url,omitempty"`
	Recipient string         `json:"recipient,omitempty"`
	UserID    string         `json:"user_id,omitempty"`
}

// NewAlertMessage joins an event with the target details a consumer needs to notify someone
func NewAlertMessage(event alert.Event, target model.Target) AlertMessage {
	return AlertMessage{
		Event:     event,
		Platform:  target.Platform,
		Title:     target.Title,
		URL:       target.URL,
		Currency:  target.Currency,
		ImageURL:  target.ImageURL,
		Recipient: target.Recipient,
		UserID:    target.UserID,
	}
}

// RedisPublisher implements Publisher using Redis streams. Alerts are spread over
// streamCount streams named <prefix>:0 .. <prefix>:N-1.
type RedisPublisher struct {
	client          *redis.Client
	streamPrefix    string
	streamCount     int
	streamMaxLength int
}

// NewRedisPublisher creates a new Redis publisher
func NewRedisPublisher(addr string, db int, streamPrefix string, streamCount int, streamMaxLength int) *RedisPublisher {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	if streamCount <= 0 {
		streamCount = 1
	}

	return &RedisPublisher{
		client:          client,
		streamPrefix:    streamPrefix,
		streamCount:     streamCount,
		streamMaxLength: streamMaxLength,
	}
}

// Ping checks the Redis connection
func (p *RedisPublisher) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

// Send publishes an alert event for target
func (p *RedisPublisher) Send(ctx context.Context, event alert.Event, target model.Target) error {
	data, err := json.Marshal(NewAlertMessage(event, target))
	if err != nil {
		return fmt.Errorf("failed to encode alert: %w", err)
	}
	return p.Publish(ctx, AlertField, data)
}

// Publish publishes a message to a Redis stream
// The message is base64 encoded before publishing
func (p *RedisPublisher) Publish(ctx context.Context, key string, message []byte) error {
	encodedMessage := base64.StdEncoding.EncodeToString(message)

	return p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.pickStream(),
		Values: map[string]interface{}{
			key: encodedMessage,
		},
	}).Err()
}

func (p *RedisPublisher) pickStream() string {
	if p.streamCount == 1 {
		return p.streamPrefix + ":0"
	}
	return p.streamPrefix + ":" + strconv.Itoa(rand.IntN(p.streamCount))
}

// TrimStreams trims all streams to the configured maximum length
func (p *RedisPublisher) TrimStreams(ctx context.Context) error {
	if p.streamMaxLength <= 0 {
		return nil
	}

	for i := 0; i < p.streamCount; i++ {
		stream := p.streamPrefix + ":" + strconv.Itoa(i)
		if err := p.client.XTrimMaxLen(ctx, stream, int64(p.streamMaxLength)).Err(); err != nil {
			return fmt.Errorf("trim %s: %w", stream, err)
		}
	}

	return nil
}

// Close closes the Redis connection
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
