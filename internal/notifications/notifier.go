// Package notifications publishes view revalidations and reconciliation signals over Redis
// and fans revalidations out to websocket clients.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"runtime/debug"

	"github.com/redis/go-redis/v9"
)

const (
	// ViewsChannel carries revalidate events for cached views.
	ViewsChannel = "views:revalidate"
	// ReconcileChannel announces newly queued reconciliation records.
	ReconcileChannel = "reconcile:events"

	EventRevalidate = "revalidate"
	EventReconcile  = "reconcile"
)

// Event is the envelope published on every channel.
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// RevalidatePayload names the view path whose render is stale.
type RevalidatePayload struct {
	Path string `json:"path"`
}

// Notifier provides helpers to publish events into Redis channels
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

func (n *Notifier) publish(ctx context.Context, channel string, ev Event) error {
	if n.rdb == nil {
		return nil
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	return n.rdb.Publish(ctx, channel, string(payload)).Err()
}

// PublishRevalidate announces that the view at path must be re-rendered.
func (n *Notifier) PublishRevalidate(ctx context.Context, path string) error {
	return n.publish(ctx, ViewsChannel, Event{Type: EventRevalidate, Payload: RevalidatePayload{Path: path}})
}

// PublishReconcile announces a queued reconciliation record.
func (n *Notifier) PublishReconcile(ctx context.Context, payload interface{}) error {
	return n.publish(ctx, ReconcileChannel, Event{Type: EventReconcile, Payload: payload})
}

// StartViewSubscriber subscribes to ViewsChannel and calls onMessage for each message
// until ctx is done. It returns once the subscription is confirmed.
func (n *Notifier) StartViewSubscriber(
	ctx context.Context, onMessage func(channel string, payload string),
) error {
	return n.subscribe(ctx, "ViewSubscriber", onMessage, ViewsChannel)
}

// StartReconcileSubscriber subscribes to ReconcileChannel.
func (n *Notifier) StartReconcileSubscriber(
	ctx context.Context, onMessage func(channel string, payload string),
) error {
	return n.subscribe(ctx, "ReconcileSubscriber", onMessage, ReconcileChannel)
}

func (n *Notifier) subscribe(
	ctx context.Context, name string, onMessage func(channel string, payload string), channels ...string,
) error {
	if n.rdb == nil {
		return nil
	}
	sub := n.rdb.Subscribe(ctx, channels...)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe %v: %w", channels, err)
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							log.Printf("PANIC in %s: %v\n%s", name, r, debug.Stack())
						}
					}()
					onMessage(msg.Channel, msg.Payload)
				}()
			}
		}
	}()

	return nil
}
