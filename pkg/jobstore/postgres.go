package jobstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/quatton/qsys/pkg/db/models"
	"github.com/uptrace/bun"
)

// PostgresStore keeps records in sysmgmt.jobs. Run db.Migrate before use.
type PostgresStore struct {
	db *bun.DB
}

func NewPostgresStore(db *bun.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Put(ctx context.Context, j *Job) error {
	doc, err := json.Marshal(j)
	if err != nil {
		return fmt.Errorf("encoding job %s: %w", j.Key(), err)
	}
	row := &models.Job{
		JID:       j.JID,
		SystemID:  j.SystemID,
		State:     string(j.State),
		Document:  doc,
		CreatedAt: j.CreatedTimestamp,
		UpdatedAt: time.Now().UTC(),
	}
	_, err = s.db.NewInsert().
		Model(row).
		On("CONFLICT (jid, system_id) DO UPDATE").
		Set("state = EXCLUDED.state").
		Set("document = EXCLUDED.document").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("storing job %s: %w", j.Key(), err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, jid, systemID string) (*Job, error) {
	var row models.Job
	err := s.db.NewSelect().
		Model(&row).
		Where("jid = ?", jid).
		Where("system_id = ?", systemID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeRow(&row)
}

func (s *PostgresStore) List(ctx context.Context) ([]*Job, error) {
	var rows []models.Job
	err := s.db.NewSelect().
		Model(&rows).
		Order("created_at DESC", "system_id ASC", "jid ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*Job, 0, len(rows))
	for i := range rows {
		j, err := decodeRow(&rows[i])
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	// created_at is truncated to microseconds; the document keeps the full
	// timestamp, so resort on that.
	SortNewestFirst(out)
	return out, nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func decodeRow(row *models.Job) (*Job, error) {
	j, err := decodeJob(row.Document)
	if err != nil {
		return nil, fmt.Errorf("decoding job %s: %w", Key(row.JID, row.SystemID), err)
	}
	return j, nil
}

var _ Store = (*PostgresStore)(nil)
