package mq

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/taskboard/apiserver/types"
)

// Attribute keys set on every todo event.
const (
	AttrEventType = "event_type"
	AttrUserID    = "user_id"
)

// TodoEventPublisher encodes todo events as JSON onto one channel.
type TodoEventPublisher struct {
	mq      *MQ
	channel string
}

func NewTodoEventPublisher(mq *MQ, channel string) *TodoEventPublisher {
	return &TodoEventPublisher{mq: mq, channel: channel}
}

// PublishTodoEvent sends event to the configured channel.
func (p *TodoEventPublisher) PublishTodoEvent(ctx context.Context, event types.TodoEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode todo event: %w", err)
	}
	_, err = p.mq.Publish(ctx, p.channel, data, map[string]string{
		AttrEventType: string(event.Type),
		AttrUserID:    event.UserID,
	})
	return err
}

// SubscribeTodoEvents decodes todo events from channel and passes them to handle.
// Messages that are not valid todo events are acknowledged and dropped.
func SubscribeTodoEvents(ctx context.Context, mq *MQ, channel string, handle func(context.Context, types.TodoEvent) error) error {
	return mq.Subscribe(ctx, channel, func(ctx context.Context, msg Message) error {
		var event types.TodoEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			return nil
		}
		return handle(ctx, event)
	})
}
