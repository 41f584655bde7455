package eventbus

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/goran-ethernal/DDOIndexor/internal/logger"
	"github.com/goran-ethernal/DDOIndexor/pkg/config"
	"github.com/goran-ethernal/DDOIndexor/pkg/indexer"
	"github.com/nats-io/nats.go"
)

// Publisher is the part of *nats.Conn the bridge uses.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Message is the JSON body published to NATS.
type Message struct {
	Type        indexer.EventKind  `json:"type"`
	ChainID     uint64             `json:"networkId"`
	DID         string             `json:"did,omitempty"`
	TxHash      string             `json:"txHash"`
	BlockNumber uint64             `json:"blockNumber"`
	Data        indexer.CrawlEvent `json:"data"`
	Timestamp   int64              `json:"timestamp"`
}

// ConnectNATS dials the server in cfg and reconnects forever.
func ConnectNATS(cfg config.NATSConfig, log *logger.Logger) (*nats.Conn, error) {
	url := cfg.URL
	if url == "" {
		url = nats.DefaultURL
	}

	conn, err := nats.Connect(url,
		nats.Name("ddoindexor"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(cfg.ReconnectWait.Duration),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warnf("disconnected from NATS: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Infow("reconnected to NATS", "url", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(*nats.Conn) {
			log.Info("NATS connection closed")
		}),
		nats.ErrorHandler(func(_ *nats.Conn, sub *nats.Subscription, err error) {
			if errors.Is(err, nats.ErrSlowConsumer) && sub != nil {
				log.Errorw("NATS slow consumer", "subject", sub.Subject, "error", err)
				return
			}
			log.Errorf("NATS error: %v", err)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}
	return conn, nil
}

// NATSBridge republishes bus notifications on <prefix>.<kind>.
type NATSBridge struct {
	pub          Publisher
	prefix       string
	log          *logger.Logger
	unsubscribes []func()
}

// NewNATSBridge creates a bridge that publishes through pub.
func NewNATSBridge(pub Publisher, prefix string, log *logger.Logger) *NATSBridge {
	return &NATSBridge{pub: pub, prefix: prefix, log: log}
}

// Attach subscribes the bridge to kinds on bus.
func (n *NATSBridge) Attach(bus *Bus, kinds ...indexer.EventKind) {
	for _, kind := range kinds {
		n.unsubscribes = append(n.unsubscribes, bus.Subscribe(kind, n.forward))
	}
}

// Subject returns the subject a notification of kind is published on.
func (n *NATSBridge) Subject(kind indexer.EventKind) string {
	return n.prefix + "." + string(kind)
}

func (n *NATSBridge) forward(ev indexer.WorkerEvent) {
	data, err := json.Marshal(Message{
		Type:        ev.Kind,
		ChainID:     ev.ChainID,
		DID:         ev.DID,
		TxHash:      ev.TxHash.Hex(),
		BlockNumber: ev.BlockNumber,
		Data:        ev.Payload,
		Timestamp:   time.Now().UTC().Unix(),
	})
	if err != nil {
		natsPublished.WithLabelValues("error").Inc()
		n.log.Errorw("failed to encode notification", "kind", ev.Kind, "error", err)
		return
	}

	if err := n.pub.Publish(n.Subject(ev.Kind), data); err != nil {
		natsPublished.WithLabelValues("error").Inc()
		n.log.Warnw("failed to publish notification to NATS", "kind", ev.Kind, "did", ev.DID, "error", err)
		return
	}

	natsPublished.WithLabelValues("ok").Inc()
}

// Detach removes the bridge from the bus.
func (n *NATSBridge) Detach() {
	for _, unsubscribe := range n.unsubscribes {
		unsubscribe()
	}
	n.unsubscribes = nil
}
