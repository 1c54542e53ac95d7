package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/rs/zerolog"
)

// NotifyChannel is the LISTEN/NOTIFY channel the documents trigger signals
// on. The payload is the collection name.
const NotifyChannel = "document_changes"

const schemaSQL = `
CREATE TABLE IF NOT EXISTS documents (
	collection TEXT NOT NULL,
	id         TEXT NOT NULL,
	data       JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (collection, id)
);

CREATE OR REPLACE FUNCTION notify_document_change() RETURNS trigger AS $$
BEGIN
	PERFORM pg_notify('document_changes', COALESCE(NEW.collection, OLD.collection));
	RETURN NULL;
END;
$$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS documents_notify ON documents;
CREATE TRIGGER documents_notify
	AFTER INSERT OR UPDATE OR DELETE ON documents
	FOR EACH ROW EXECUTE FUNCTION notify_document_change();
`

// Postgres stores documents as jsonb rows and drives live queries from
// LISTEN/NOTIFY.
type Postgres struct {
	db     *sql.DB
	dsn    string
	logger zerolog.Logger

	// ListenerPing is how often an idle listener connection is checked.
	ListenerPing time.Duration
}

// NewPostgres wraps an open database. dsn is used for the dedicated
// listener connection that live queries need.
func NewPostgres(db *sql.DB, dsn string, logger zerolog.Logger) *Postgres {
	return &Postgres{
		db:           db,
		dsn:          dsn,
		logger:       logger.With().Str("component", "docstore.postgres").Logger(),
		ListenerPing: 90 * time.Second,
	}
}

// Migrate creates the documents table and its change trigger.
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to create documents schema: %w", err)
	}
	return nil
}

func (p *Postgres) list(ctx context.Context, collection string) ([]Document, error) {
	query := `
		SELECT id, data
		FROM documents
		WHERE collection = $1
		ORDER BY created_at, id
	`

	rows, err := p.db.QueryContext(ctx, query, collection)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	docs := []Document{}
	for rows.Next() {
		var id string
		var raw []byte
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}

		data := map[string]interface{}{}
		if err := json.Unmarshal(raw, &data); err != nil {
			return nil, fmt.Errorf("failed to decode document %s: %w", id, err)
		}
		docs = append(docs, Document{ID: id, Data: data})
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating documents: %w", err)
	}

	return docs, nil
}

func (p *Postgres) Watch(ctx context.Context, collection string) (<-chan Snapshot, error) {
	listener := pq.NewListener(p.dsn, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			p.logger.Warn().Err(err).Int("event", int(ev)).Msg("listener connection event")
		}
	})
	if err := listener.Listen(NotifyChannel); err != nil {
		listener.Close()
		return nil, fmt.Errorf("failed to listen on %s: %w", NotifyChannel, err)
	}

	out := make(chan Snapshot)
	go func() {
		defer close(out)
		defer listener.Close()

		reload := func() bool {
			docs, err := p.list(ctx, collection)
			if err != nil {
				if ctx.Err() == nil {
					send(ctx, out, Snapshot{Err: err})
				}
				return false
			}
			return send(ctx, out, Snapshot{Documents: docs})
		}

		if !reload() {
			return
		}

		for {
			select {
			case <-ctx.Done():
				return
			case n := <-listener.Notify:
				// A nil notification follows a reconnect; changes may have
				// been missed, so reload unconditionally.
				if n != nil && n.Extra != collection {
					continue
				}
				if !reload() {
					return
				}
			case <-time.After(p.ListenerPing):
				go func() {
					if err := listener.Ping(); err != nil {
						p.logger.Warn().Err(err).Msg("listener ping failed")
					}
				}()
			}
		}
	}()

	return out, nil
}

func (p *Postgres) Add(ctx context.Context, collection string, data map[string]interface{}) (string, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("failed to encode document: %w", err)
	}

	id := uuid.New().String()
	now := time.Now()

	query := `
		INSERT INTO documents (collection, id, data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
	`
	if _, err := p.db.ExecContext(ctx, query, collection, id, raw, now); err != nil {
		return "", fmt.Errorf("failed to insert document: %w", err)
	}

	return id, nil
}

func (p *Postgres) Update(ctx context.Context, collection, id string, set map[string]interface{}, clear []string) error {
	if len(set) == 0 && len(clear) == 0 {
		return ErrEmptyUpdate
	}
	if set == nil {
		set = map[string]interface{}{}
	}
	if clear == nil {
		clear = []string{}
	}

	raw, err := json.Marshal(set)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}

	query := `
		UPDATE documents
		SET data = (data || $1::jsonb) - $2::text[], updated_at = $3
		WHERE collection = $4 AND id = $5
	`

	result, err := p.db.ExecContext(ctx, query, raw, pq.Array(clear), time.Now(), collection, id)
	if err != nil {
		return fmt.Errorf("failed to update document: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

func (p *Postgres) Delete(ctx context.Context, collection, id string) error {
	query := `
		DELETE FROM documents
		WHERE collection = $1 AND id = $2
	`

	result, err := p.db.ExecContext(ctx, query, collection, id)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

func (p *Postgres) Close() error {
	return p.db.Close()
}
