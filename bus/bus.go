// Package bus is the thin NATS layer between the simulation process and the
// hardware bridge. Delivery is at-most-once and ordered per topic; both
// processes are built to survive lost or duplicated messages.
package bus

import (
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go"

	"hilbee/logging"
)

// Client wraps one NATS connection and its subscriptions.
type Client struct {
	conn *nats.Conn
	subs []*nats.Subscription
}

// Connect dials the broker. The connection keeps reconnecting in the
// background forever, so a broker restart does not take the rig down.
func Connect(url string) (*Client, error) {
	conn, err := nats.Connect(url,
		nats.Name("hilbee"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logging.Broadcast(fmt.Sprintf("bus disconnected: %v", err), "bus")
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logging.Broadcast("bus reconnected: "+c.ConnectedUrl(), "bus")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to bus at %s: %w", url, err)
	}
	return &Client{conn: conn}, nil
}

// Publish is fire-and-forget: failures are logged, never returned, so the
// simulation loop can not stall on bus I/O.
func (c *Client) Publish(topic string, payload []byte) {
	if err := c.conn.Publish(topic, payload); err != nil {
		log.Printf("publish on %q failed: %v", topic, err)
	}
}

// PublishString publishes an ASCII payload.
func (c *Client) PublishString(topic, payload string) {
	c.Publish(topic, []byte(payload))
}

// Subscribe registers fn for topic. fn runs on the bus client's own
// goroutine, asynchronously to the simulation and serial loops.
func (c *Client) Subscribe(topic string, fn func(payload []byte)) error {
	sub, err := c.conn.Subscribe(topic, func(msg *nats.Msg) {
		fn(msg.Data)
	})
	if err != nil {
		return fmt.Errorf("subscribe to %q: %w", topic, err)
	}
	c.subs = append(c.subs, sub)
	return nil
}

// Connected reports whether the broker is currently reachable.
func (c *Client) Connected() bool {
	return c.conn.IsConnected()
}

// Close drops all subscriptions and drains the connection.
func (c *Client) Close() {
	for _, sub := range c.subs {
		_ = sub.Unsubscribe()
	}
	if err := c.conn.Drain(); err != nil {
		c.conn.Close()
	}
}
