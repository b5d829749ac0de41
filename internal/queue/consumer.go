package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/staybook/staybook/internal/config"
	"github.com/staybook/staybook/internal/model"
)

// MessageStore is the part of the conversation repository the auto-reply
// job needs.
type MessageStore interface {
	HasMessageSince(ctx context.Context, conversationID, senderID uint64, since time.Time) (bool, error)
	AddMessage(ctx context.Context, m *model.Message) error
}

// Consumer drains the booking.created and message.sent queues.  Bookings
// are appended to a log file; guest messages about a listing get one
// automated reply from the host when the host stays silent for the
// configured delay.
type Consumer struct {
	URL       string
	LogPath   string
	AutoReply config.AutoReplyConfig
	Messages  MessageStore

	mu sync.Mutex // serializes log file appends
}

func NewConsumer(url string, autoReply config.AutoReplyConfig, messages MessageStore) *Consumer {
	return &Consumer{
		URL:       url,
		LogPath:   filepath.Join("logs", "booking.log"),
		AutoReply: autoReply,
		Messages:  messages,
	}
}

// Run dials the broker and consumes until ctx is cancelled, reconnecting
// with exponential backoff when the connection drops.
func (c *Consumer) Run(ctx context.Context) error {
	if c.URL == "" {
		return errors.New("worker: no broker url configured")
	}
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.URL)
		if err != nil {
			log.Printf("worker: dial broker: %v; retrying in %s", err, backoff)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Printf("worker: consume loop ended: %v; reconnecting", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Printf("worker: set QoS: %v", err)
	}

	merged := make(chan amqp.Delivery)
	var wg sync.WaitGroup
	for _, name := range []string{BookingCreatedQueue, MessageSentQueue} {
		if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
			return fmt.Errorf("queue declare %s: %w", name, err)
		}
		deliveries, err := ch.Consume(name, "", false, false, false, false, nil)
		if err != nil {
			return fmt.Errorf("queue consume %s: %w", name, err)
		}
		wg.Add(1)
		go func(in <-chan amqp.Delivery) {
			defer wg.Done()
			for d := range in {
				select {
				case merged <- d:
				case <-ctx.Done():
					_ = d.Nack(false, true)
				}
			}
		}(deliveries)
	}
	go func() {
		wg.Wait()
		close(merged)
	}()

	var jobs sync.WaitGroup
	defer jobs.Wait()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-merged:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			// Auto-replies sleep until their deadline, so they must not
			// hold up the booking log.
			jobs.Add(1)
			go func(d amqp.Delivery) {
				defer jobs.Done()
				if err := c.Handle(ctx, d.RoutingKey, d.Body); err != nil {
					log.Printf("worker: %s: %v", d.RoutingKey, err)
					_ = d.Nack(false, false)
					return
				}
				_ = d.Ack(false)
			}(d)
		}
	}
}

// Handle processes one event body according to its queue.
func (c *Consumer) Handle(ctx context.Context, queue string, body []byte) error {
	switch queue {
	case BookingCreatedQueue:
		var ev BookingCreatedEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return fmt.Errorf("unmarshal: %w", err)
		}
		return c.logBooking(ev)
	case MessageSentQueue:
		var ev MessageSentEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return fmt.Errorf("unmarshal: %w", err)
		}
		return c.autoReply(ctx, ev)
	}
	return fmt.Errorf("unknown queue %q", queue)
}

func (c *Consumer) logBooking(ev BookingCreatedEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(c.LogPath), 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(c.LogPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	line := fmt.Sprintf("[%s] Booking created | booking_id=%d | listing_id=%d | listing=%q | guest_id=%d | host_id=%d | dates=%s..%s | nights=%d | guests=%d | total=%.2f\n",
		ev.CreatedAt, ev.BookingID, ev.ListingID, ev.ListingName, ev.GuestID, ev.HostID,
		ev.StartDate, ev.EndDate, ev.Nights, ev.Guests, ev.TotalPrice)
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

// autoReply waits until the delay after the guest's message has passed and
// then, unless the host has written since, posts the automated reply as the
// host.  Direct threads and messages sent by hosts are ignored.
func (c *Consumer) autoReply(ctx context.Context, ev MessageSentEvent) error {
	if !c.AutoReply.Enabled || c.Messages == nil {
		return nil
	}
	if ev.ListingID == nil || ev.SenderID != ev.GuestID || ev.RecipientID != ev.HostID {
		return nil
	}
	sentAt, err := time.Parse(time.RFC3339Nano, ev.SentAt)
	if err != nil {
		return fmt.Errorf("bad sent_at %q: %w", ev.SentAt, err)
	}
	if wait := time.Until(sentAt.Add(c.AutoReply.Delay)); wait > 0 {
		t := time.NewTimer(wait)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}

	dbCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	replied, err := c.Messages.HasMessageSince(dbCtx, ev.ConversationID, ev.HostID, sentAt)
	if err != nil {
		return fmt.Errorf("check host reply: %w", err)
	}
	if replied {
		return nil
	}
	msg := &model.Message{
		ConversationID: ev.ConversationID,
		SenderID:       ev.HostID,
		Content:        c.AutoReply.Text,
		Automated:      true,
	}
	if err := c.Messages.AddMessage(dbCtx, msg); err != nil {
		return fmt.Errorf("store auto-reply: %w", err)
	}
	log.Printf("worker: auto-reply %d posted in conversation %d", msg.ID, ev.ConversationID)
	return nil
}
