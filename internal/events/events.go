// Package events publishes task lifecycle events.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	dom "tasktracker/internal/domain"
)

// Event types; the NATS subject is SubjectPrefix + type.
const (
	TaskCreated = "task.created"
	TaskUpdated = "task.updated"
	TaskToggled = "task.toggled"
	TaskDeleted = "task.deleted"

	SubjectPrefix = "tasktracker."
)

// TaskEvent is the payload of every task event. Task is nil for deletions.
type TaskEvent struct {
	Type    string    `json:"type"`
	TaskID  int64     `json:"task_id"`
	OwnerID string    `json:"owner_id"`
	Task    *dom.Task `json:"task,omitempty"`
	At      time.Time `json:"at"`
}

// Publisher sends task events somewhere.
type Publisher interface {
	Publish(ctx context.Context, ev TaskEvent) error
}

// Nop drops every event. Used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, TaskEvent) error { return nil }

// NATSPublisher publishes events as JSON on core NATS subjects.
type NATSPublisher struct {
	nc *nats.Conn
}

// Connect dials NATS and returns a publisher owning the connection.
func Connect(url string) (*NATSPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("tasktracker"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(10),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &NATSPublisher{nc: nc}, nil
}

func (p *NATSPublisher) Publish(_ context.Context, ev TaskEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", ev.Type, err)
	}
	if err := p.nc.Publish(SubjectPrefix+ev.Type, data); err != nil {
		return fmt.Errorf("publish %s event: %w", ev.Type, err)
	}
	return nil
}

// Close flushes pending events and closes the connection.
func (p *NATSPublisher) Close() error {
	if err := p.nc.Drain(); err != nil {
		p.nc.Close()
		return err
	}
	return nil
}
