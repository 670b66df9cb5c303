package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/varannot/internal/core/domain"
	"github.com/vietddude/varannot/internal/infra/storage"
)

// insertChunk bounds rows per INSERT to stay under the bind parameter limit.
const insertChunk = 500

type runRow struct {
	ID           uuid.UUID `db:"id"`
	InputPath    string    `db:"input_path"`
	OutputPath   string    `db:"output_path"`
	State        string    `db:"state"`
	Message      string    `db:"message"`
	DbsnpVersion string    `db:"dbsnp_version"`
	Total        int       `db:"total"`
	Resolved     int       `db:"resolved"`
	Partial      int       `db:"partial"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

type variantRow struct {
	RunID      uuid.UUID `db:"run_id"`
	Ordinal    int       `db:"ordinal"`
	Chrom      string    `db:"chrom"`
	Pos        int64     `db:"pos"`
	VcfID      string    `db:"vcf_id"`
	Ref        string    `db:"ref"`
	Alt        string    `db:"alt"`
	RSID       *string   `db:"rsid"`
	Gene       *string   `db:"gene"`
	Frequency  *float64  `db:"frequency"`
	Population *string   `db:"population"`
	DP         *int      `db:"dp"`
}

// VariantRepo implements storage.VariantSink and storage.RunStore using PostgreSQL.
type VariantRepo struct {
	db *DB
}

// NewVariantRepo creates a new PostgreSQL variant repository.
func NewVariantRepo(db *DB) *VariantRepo {
	return &VariantRepo{db: db}
}

const upsertRunQuery = `
	INSERT INTO annotation_runs (id, input_path, output_path, state, message, dbsnp_version,
		total, resolved, partial, created_at, updated_at)
	VALUES (:id, :input_path, :output_path, :state, :message, :dbsnp_version,
		:total, :resolved, :partial, :created_at, :updated_at)
	ON CONFLICT (id) DO UPDATE SET
		state = EXCLUDED.state,
		message = EXCLUDED.message,
		dbsnp_version = EXCLUDED.dbsnp_version,
		total = EXCLUDED.total,
		resolved = EXCLUDED.resolved,
		partial = EXCLUDED.partial,
		updated_at = EXCLUDED.updated_at
`

// Save creates or updates a run.
func (r *VariantRepo) Save(ctx context.Context, run *domain.Run) error {
	if _, err := r.db.NamedExecContext(ctx, upsertRunQuery, toRunRow(run)); err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

// Get retrieves a run by ID.
func (r *VariantRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Run, error) {
	var row runRow
	err := r.db.GetContext(ctx, &row, `SELECT * FROM annotation_runs WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return row.toDomain(), nil
}

// List returns the most recent runs, newest first.
func (r *VariantRepo) List(ctx context.Context, limit int) ([]*domain.Run, error) {
	if limit <= 0 {
		limit = 20
	}
	var rows []runRow
	err := r.db.SelectContext(ctx, &rows,
		`SELECT * FROM annotation_runs ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	out := make([]*domain.Run, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain())
	}
	return out, nil
}

// DeleteRunsOlderThan removes runs last updated before threshold. Stored
// records go with them.
func (r *VariantRepo) DeleteRunsOlderThan(ctx context.Context, threshold time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM annotation_runs WHERE updated_at < $1`, threshold)
	if err != nil {
		return 0, fmt.Errorf("failed to prune runs: %w", err)
	}
	return res.RowsAffected()
}

// SaveBatch stores the run and its records in a single transaction.
func (r *VariantRepo) SaveBatch(ctx context.Context, run *domain.Run, records []domain.AnnotatedVariant) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.NamedExecContext(ctx, upsertRunQuery, toRunRow(run)); err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM annotated_variants WHERE run_id = $1`, run.ID); err != nil {
		return fmt.Errorf("failed to clear previous records: %w", err)
	}

	rows := make([]variantRow, len(records))
	for i, rec := range records {
		rows[i] = toVariantRow(run.ID, i, rec)
	}

	for start := 0; start < len(rows); start += insertChunk {
		end := min(start+insertChunk, len(rows))
		_, err := tx.NamedExecContext(ctx, `
			INSERT INTO annotated_variants (run_id, ordinal, chrom, pos, vcf_id, ref, alt,
				rsid, gene, frequency, population, dp)
			VALUES (:run_id, :ordinal, :chrom, :pos, :vcf_id, :ref, :alt,
				:rsid, :gene, :frequency, :population, :dp)
		`, rows[start:end])
		if err != nil {
			return fmt.Errorf("failed to insert records %d-%d: %w", start, end, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

func toRunRow(run *domain.Run) runRow {
	return runRow{
		ID:           run.ID,
		InputPath:    run.Input,
		OutputPath:   run.Output,
		State:        string(run.State),
		Message:      run.Message,
		DbsnpVersion: run.DbsnpVersion,
		Total:        run.Total,
		Resolved:     run.Resolved,
		Partial:      run.Partial,
		CreatedAt:    run.CreatedAt,
		UpdatedAt:    run.UpdatedAt,
	}
}

func (r runRow) toDomain() *domain.Run {
	return &domain.Run{
		ID:           r.ID,
		Input:        r.InputPath,
		Output:       r.OutputPath,
		State:        domain.RunState(r.State),
		Message:      r.Message,
		DbsnpVersion: r.DbsnpVersion,
		Total:        r.Total,
		Completed:    r.Resolved + r.Partial,
		Resolved:     r.Resolved,
		Partial:      r.Partial,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

func toVariantRow(runID uuid.UUID, ordinal int, rec domain.AnnotatedVariant) variantRow {
	return variantRow{
		RunID:      runID,
		Ordinal:    ordinal,
		Chrom:      rec.Chrom,
		Pos:        int64(rec.Pos),
		VcfID:      rec.Variant.ID,
		Ref:        rec.Ref,
		Alt:        rec.Alt,
		RSID:       rec.RSID,
		Gene:       rec.Gene,
		Frequency:  rec.Frequency,
		Population: rec.Population,
		DP:         rec.DP,
	}
}
