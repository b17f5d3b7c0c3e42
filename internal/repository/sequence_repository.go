package repository

import (
	"context"
)

// SequenceRepository owns the per-year case counter. The increment is a
// single upsert statement so the row lock is the only serialization point and
// is held just for the increment-and-read.
type SequenceRepository interface {
	NextSeq(ctx context.Context, eraYear int) (int, error)
}

type sequenceRepository struct {
	db DBTX
}

// NewSequenceRepository instantiates the repository.
func NewSequenceRepository(db DBTX) SequenceRepository {
	return &sequenceRepository{db: db}
}

func (r *sequenceRepository) NextSeq(ctx context.Context, eraYear int) (int, error) {
	const query = `
        INSERT INTO case_sequence (year, last_seq)
        VALUES ($1, 1)
        ON CONFLICT (year)
        DO UPDATE SET last_seq = case_sequence.last_seq + 1
        RETURNING last_seq`
	var seq int
	if err := r.db.QueryRow(ctx, query, eraYear).Scan(&seq); err != nil {
		return 0, err
	}
	return seq, nil
}
