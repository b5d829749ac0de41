package handler

import (
	"context"
	"strings"
	"time"

	"github.com/staybook/staybook/internal/model"
	"github.com/staybook/staybook/internal/queue"
)

// Messenger appends messages to conversations and announces them on the
// broker so the worker can schedule the automated host reply.
type Messenger struct {
	Conversations ConversationStore
	Events        EventPublisher
	AutoReply     bool
}

func NewMessenger(convs ConversationStore, events EventPublisher, autoReply bool) *Messenger {
	return &Messenger{Conversations: convs, Events: events, AutoReply: autoReply}
}

// Send stores content from sender in conv.
func (m *Messenger) Send(ctx context.Context, conv *model.Conversation, sender uint64, content string) (*model.Message, error) {
	msg := &model.Message{
		ConversationID: conv.ID,
		SenderID:       sender,
		Content:        strings.TrimSpace(content),
	}
	if err := m.Conversations.AddMessage(ctx, msg); err != nil {
		return nil, err
	}
	if m.AutoReply && m.Events != nil {
		m.Events.PublishAsync(queue.MessageSentQueue, queue.MessageSentEvent{
			MessageID:      msg.ID,
			ConversationID: conv.ID,
			ListingID:      conv.ListingID,
			SenderID:       sender,
			RecipientID:    conv.Other(sender),
			GuestID:        conv.GuestID,
			HostID:         conv.HostID,
			SentAt:         msg.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
	}
	return msg, nil
}
