package standings

import (
	"context"
	"strconv"
	"sync"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/vocalia/internal/platform/logging"
	"github.com/riskibarqy/vocalia/internal/usecase"
	"github.com/streadway/amqp"
)

const (
	RoutingKeyMatchFinalized = "match.finalized"
	RoutingKeyMatchReverted  = "match.reverted"
)

type AMQPNotifierConfig struct {
	URL      string
	Exchange string
}

// AMQPNotifier publishes standings signals to a durable topic exchange. The
// channel is reopened lazily after the broker drops it.
type AMQPNotifier struct {
	url      string
	exchange string
	logger   *logging.Logger

	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
}

func NewAMQPNotifier(cfg AMQPNotifierConfig, logger *logging.Logger) (*AMQPNotifier, error) {
	if cfg.URL == "" {
		return nil, crerr.New("amqp url is required")
	}
	if cfg.Exchange == "" {
		cfg.Exchange = "vocalia.standings"
	}
	if logger == nil {
		logger = logging.Default()
	}

	n := &AMQPNotifier{url: cfg.URL, exchange: cfg.Exchange, logger: logger}
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.connectLocked(); err != nil {
		return nil, err
	}
	return n, nil
}

func (n *AMQPNotifier) MatchFinalized(ctx context.Context, result usecase.MatchResult) error {
	id := messageID(RoutingKeyMatchFinalized, result.MatchID, "v"+strconv.FormatInt(result.Version, 10))
	return n.publish(ctx, RoutingKeyMatchFinalized, result.MatchID, id, time.Now().UTC(), result)
}

func (n *AMQPNotifier) MatchReverted(ctx context.Context, matchID string) error {
	now := time.Now().UTC()
	id := messageID(RoutingKeyMatchReverted, matchID, strconv.FormatInt(now.UnixNano(), 10))
	return n.publish(ctx, RoutingKeyMatchReverted, matchID, id, now, map[string]any{"match_id": matchID})
}

// messageID is unique per commit so consumers deduplicating on it still see a
// refinalize after a revert.
func messageID(routingKey, matchID, commit string) string {
	return matchID + ":" + routingKey + ":" + commit
}

func (n *AMQPNotifier) publish(ctx context.Context, routingKey, matchID, id string, at time.Time, payload any) error {
	body, err := sonic.Marshal(payload)
	if err != nil {
		return crerr.Wrap(err, "marshal standings payload")
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    at,
		MessageId:    id,
		Body:         body,
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if n.channel == nil {
		if err := n.connectLocked(); err != nil {
			return err
		}
	}
	if err := n.channel.Publish(n.exchange, routingKey, false, false, msg); err != nil {
		n.logger.WarnContext(ctx, "amqp publish failed, reconnecting", "routing_key", routingKey, "match_id", matchID, "error", err)
		n.closeLocked()
		if err := n.connectLocked(); err != nil {
			return err
		}
		if err := n.channel.Publish(n.exchange, routingKey, false, false, msg); err != nil {
			return crerr.Wrapf(err, "publish %s match=%s", routingKey, matchID)
		}
	}

	n.logger.InfoContext(ctx, "standings signal published", "routing_key", routingKey, "match_id", matchID)
	return nil
}

func (n *AMQPNotifier) connectLocked() error {
	conn, err := amqp.DialConfig(n.url, amqp.Config{Heartbeat: 30 * time.Second, Locale: "en_US"})
	if err != nil {
		return crerr.Wrap(err, "dial amqp")
	}
	channel, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return crerr.Wrap(err, "open amqp channel")
	}
	if err := channel.ExchangeDeclare(n.exchange, "topic", true, false, false, false, nil); err != nil {
		_ = channel.Close()
		_ = conn.Close()
		return crerr.Wrapf(err, "declare exchange %s", n.exchange)
	}

	n.conn = conn
	n.channel = channel
	return nil
}

func (n *AMQPNotifier) closeLocked() {
	if n.channel != nil {
		_ = n.channel.Close()
		n.channel = nil
	}
	if n.conn != nil {
		_ = n.conn.Close()
		n.conn = nil
	}
}

func (n *AMQPNotifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.closeLocked()
	return nil
}
