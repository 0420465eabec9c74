// Package notify delivers operator-facing Telegram messages for pipeline
// events. The core hands over structured payloads; all text formatting
// lives here.
package notify

import (
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/charleschow/edgeline/internal/events"
	"github.com/charleschow/edgeline/internal/telemetry"
)

// sendInterval spaces outgoing messages to stay under Telegram's ~30/min
// per-chat limit.
const sendInterval = 2 * time.Second

const queueSize = 100

// Notifier broadcasts formatted messages to one or more chats through a
// buffered queue drained by a single sender goroutine. A nil Notifier is
// valid and silently does nothing, which is how a missing token degrades.
type Notifier struct {
	bot     *tgbotapi.BotAPI
	chatIDs []int64

	queue    chan string
	stopOnce sync.Once
	stopCh   chan struct{}
	done     chan struct{}
}

// New builds a notifier from the bot token and a comma-separated chat ID
// list. Missing credentials return nil with a warning: the pipeline runs
// fine unnotified.
func New(token, chatIDs string) *Notifier {
	ids := parseChatIDs(chatIDs)
	if token == "" || len(ids) == 0 {
		telemetry.Warnf("notify: telegram token or chat ids missing, notifications disabled")
		return nil
	}

	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		telemetry.Errorf("notify: telegram auth failed, notifications disabled: %v", err)
		return nil
	}
	bot.Debug = false

	n := &Notifier{
		bot:     bot,
		chatIDs: ids,
		queue:   make(chan string, queueSize),
		stopCh:  make(chan struct{}),
		done:    make(chan struct{}),
	}
	go n.sender()
	telemetry.Infof("notify: telegram ready, broadcasting to %d chats", len(ids))
	return n
}

func parseChatIDs(raw string) []int64 {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			telemetry.Warnf("notify: bad chat id %q skipped", part)
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

// Send queues a message for broadcast. A full queue drops the message with
// a warning rather than blocking a pipeline job on Telegram.
func (n *Notifier) Send(text string) {
	if n == nil {
		return
	}
	select {
	case n.queue <- text:
	default:
		telemetry.Warnf("notify: queue full, message dropped")
		telemetry.Metrics.NotifyErrors.Inc()
	}
}

// sender drains the queue, pacing sends and broadcasting each message to
// every configured chat.
func (n *Notifier) sender() {
	defer close(n.done)
	for {
		select {
		case <-n.stopCh:
			// flush what is already queued before exiting
			for {
				select {
				case text := <-n.queue:
					n.broadcast(text)
				default:
					return
				}
			}
		case text := <-n.queue:
			n.broadcast(text)
			select {
			case <-time.After(sendInterval):
			case <-n.stopCh:
			}
		}
	}
}

func (n *Notifier) broadcast(text string) {
	for _, chatID := range n.chatIDs {
		msg := tgbotapi.NewMessage(chatID, text)
		msg.ParseMode = tgbotapi.ModeMarkdown
		if _, err := n.bot.Send(msg); err != nil {
			telemetry.Warnf("notify: send to %d: %v", chatID, err)
			telemetry.Metrics.NotifyErrors.Inc()
			continue
		}
		telemetry.Metrics.NotificationsSent.Inc()
	}
}

// Close stops the sender after flushing queued messages.
func (n *Notifier) Close() {
	if n == nil {
		return
	}
	n.stopOnce.Do(func() { close(n.stopCh) })
	<-n.done
}

// SubscribeAll wires the notifier to every event type it formats. Handlers
// only queue; the sender goroutine owns delivery.
func SubscribeAll(bus *events.Bus, n *Notifier) {
	if n == nil {
		return
	}
	bus.Subscribe(events.EventPicksGenerated, func(e events.Event) error {
		if p, ok := e.Payload.(events.PicksGeneratedEvent); ok {
			n.Send(FormatPicks(p))
		}
		return nil
	})
	bus.Subscribe(events.EventPickSettled, func(e events.Event) error {
		if p, ok := e.Payload.(events.PickSettledEvent); ok {
			n.Send(FormatPickSettled(p))
		}
		return nil
	})
	bus.Subscribe(events.EventBetSettled, func(e events.Event) error {
		if p, ok := e.Payload.(events.BetSettledEvent); ok {
			n.Send(FormatBetSettled(p))
		}
		return nil
	})
	bus.Subscribe(events.EventDriftFlagged, func(e events.Event) error {
		if p, ok := e.Payload.(events.DriftFlaggedEvent); ok {
			n.Send(FormatDrift(p))
		}
		return nil
	})
	bus.Subscribe(events.EventRunAlert, func(e events.Event) error {
		if p, ok := e.Payload.(events.RunAlertEvent); ok {
			n.Send(FormatAlert(p))
		}
		return nil
	})
}
