// internal/generator/sink.go
package generator

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
)

var (
	ErrSinkWriteFailed = errors.New("SINK_WRITE_FAILED")
)

// Sink persists generated samples.
type Sink interface {
	Write(ctx context.Context, samples []Sample) error
}

// JSONLSink writes one JSON object per line.
type JSONLSink struct {
	w io.Writer
}

func NewJSONLSink(w io.Writer) *JSONLSink {
	return &JSONLSink{w: w}
}

func (s *JSONLSink) Write(ctx context.Context, samples []Sample) error {
	bw := bufio.NewWriter(s.w)
	enc := json.NewEncoder(bw)
	enc.SetEscapeHTML(false)
	for i, sample := range samples {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := enc.Encode(sample); err != nil {
			return fmt.Errorf("%w: sample %d: %v", ErrSinkWriteFailed, i, err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("%w: flush: %v", ErrSinkWriteFailed, err)
	}
	return nil
}

const insertSampleQuery = `INSERT INTO nlu_training_samples (id, text, intent, entities, created_at) VALUES ($1, $2, $3, $4, $5)`

// PostgresSink stores samples in the nlu_training_samples table inside a
// single transaction.
type PostgresSink struct {
	db  *sql.DB
	now func() time.Time
}

func NewPostgresSink(db *sql.DB) *PostgresSink {
	return &PostgresSink{db: db, now: time.Now}
}

func (s *PostgresSink) Write(ctx context.Context, samples []Sample) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", ErrSinkWriteFailed, err)
	}

	stmt, err := tx.PrepareContext(ctx, insertSampleQuery)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("%w: prepare: %v", ErrSinkWriteFailed, err)
	}
	defer stmt.Close()

	createdAt := s.now().UTC()
	for i, sample := range samples {
		entities, err := json.Marshal(sample.record().Entities)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("%w: encode sample %d: %v", ErrSinkWriteFailed, i, err)
		}
		if _, err := stmt.ExecContext(ctx, uuid.NewString(), sample.Text, string(sample.Intent), entities, createdAt); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("%w: insert sample %d: %v", ErrSinkWriteFailed, i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", ErrSinkWriteFailed, err)
	}
	return nil
}

// MultiSink fans samples out to every sink in order and stops at the first
// failure.
type MultiSink []Sink

func (m MultiSink) Write(ctx context.Context, samples []Sample) error {
	for _, s := range m {
		if err := s.Write(ctx, samples); err != nil {
			return err
		}
	}
	return nil
}
