package events

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Event describes an audit event to store in the events table.
type Event struct {
	ProjectID snowflake.ID
	Type      string
	Payload   map[string]any
	// DedupeKey makes replayed webhook deliveries write the audit row at
	// most once. Empty means no dedupe.
	DedupeKey string
}

// Outbox inserts audit events into the events table.
type Outbox struct {
	db    *gorm.DB
	genID *snowflake.Node
}

func NewOutbox(db *gorm.DB, genID *snowflake.Node) *Outbox {
	return &Outbox{db: db, genID: genID}
}

// Publish stores an event using the default database connection.
func (o *Outbox) Publish(ctx context.Context, event Event) error {
	return o.publish(ctx, o.db, event)
}

// PublishTx stores an event using an existing transaction. Reconciliation
// writes always go through this path so an adjustment can never commit
// without its audit event.
func (o *Outbox) PublishTx(ctx context.Context, tx *gorm.DB, event Event) error {
	if tx == nil {
		return errors.New("missing_transaction")
	}
	return o.publish(ctx, tx, event)
}

func (o *Outbox) publish(ctx context.Context, db *gorm.DB, event Event) error {
	if o == nil || db == nil || o.genID == nil {
		return errors.New("outbox_unavailable")
	}
	if event.ProjectID == 0 {
		return errors.New("invalid_project_id")
	}
	name := strings.TrimSpace(event.Type)
	if name == "" {
		return errors.New("missing_event_type")
	}

	payload := datatypes.JSONMap{}
	for key, value := range event.Payload {
		if strings.TrimSpace(key) == "" {
			continue
		}
		payload[key] = value
	}

	record := EventRecord{
		ID:        o.genID.Generate(),
		ProjectID: event.ProjectID,
		Type:      name,
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
	}
	if dedupe := strings.TrimSpace(event.DedupeKey); dedupe != "" {
		record.DedupeKey = &dedupe
	}

	return db.WithContext(ctx).
		Exec(
			`INSERT INTO events (id, project_id, type, payload, dedupe_key, created_at)
			 VALUES (?, ?, ?, ?, ?, ?)
			 ON CONFLICT (dedupe_key) DO NOTHING`,
			record.ID,
			record.ProjectID,
			record.Type,
			record.Payload,
			record.DedupeKey,
			record.CreatedAt,
		).Error
}
