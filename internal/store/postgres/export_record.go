package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	dberr "github.com/jarabaplatform/tenant-exporter/internal/errors"
	"github.com/jarabaplatform/tenant-exporter/internal/model"
)

type ExportRecordStore struct {
	storage *Store
}

const recordColumns = `
	id, tenant_id, tenant_ref_id, requested_by, export_type, status,
	progress, COALESCE(current_phase, ''), requested_sections, download_token,
	COALESCE(file_path, ''), COALESCE(file_size, 0), COALESCE(file_hash, ''),
	COALESCE(section_counts, '{}'::jsonb), download_count, created,
	completed_at, expires_at, COALESCE(error_message, '')`

func (s *ExportRecordStore) Create(ctx context.Context, input *model.NewExportRecord) (*model.ExportRecord, error) {
	db, err := s.storage.Database()
	if err != nil {
		return nil, dberr.NewDBInternalError("export_record.create", err)
	}

	sections, err := json.Marshal(input.RequestedSections)
	if err != nil {
		return nil, dberr.NewDBInternalError("export_record.create", err)
	}

	query := `
		INSERT INTO tenant_export.export_record
			(tenant_id, tenant_ref_id, requested_by, export_type, status,
			 progress, requested_sections, download_token, created, expires_at,
			 download_count)
		VALUES ($1, $2, $3, $4, 'queued', 0, $5, $6, now(), $7, 0)
		RETURNING ` + recordColumns

	row := db.QueryRow(ctx, query,
		input.TenantID,
		input.TenantRefID,
		input.RequestedBy,
		input.ExportType,
		sections,
		input.DownloadToken,
		input.ExpiresAt,
	)

	rec, err := scanRecord(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if dberr.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505": // unique_violation
				return nil, &dberr.DBUniqueViolationError{
					DBError: *dberr.NewDBError("export_record.create", pgErr.Message),
					Column:  pgErr.ConstraintName,
				}
			case "23503": // foreign_key_violation
				return nil, &dberr.DBForeignKeyViolationError{
					DBError:         *dberr.NewDBError("export_record.create", pgErr.Message),
					ForeignKeyTable: pgErr.TableName,
				}
			}
		}
		return nil, dberr.NewDBInternalError("export_record.create", err)
	}

	return rec, nil
}

func (s *ExportRecordStore) Get(ctx context.Context, id int64) (*model.ExportRecord, error) {
	return s.selectOne(ctx, "export_record.get", "id = $1", id)
}

func (s *ExportRecordStore) GetByToken(ctx context.Context, token string) (*model.ExportRecord, error) {
	return s.selectOne(ctx, "export_record.get_by_token", "download_token = $1", token)
}

func (s *ExportRecordStore) selectOne(ctx context.Context, op, cond string, arg any) (*model.ExportRecord, error) {
	db, err := s.storage.Database()
	if err != nil {
		return nil, dberr.NewDBInternalError(op, err)
	}

	query := `SELECT ` + recordColumns + ` FROM tenant_export.export_record WHERE ` + cond

	rec, err := scanRecord(db.QueryRow(ctx, query, arg))
	if err != nil {
		if dberr.Is(err, pgx.ErrNoRows) {
			return nil, dberr.NewDBNotFoundError(op, "export record not found")
		}
		return nil, dberr.NewDBInternalError(op, err)
	}
	return rec, nil
}

// Claim is the atomic worker guard: only queued or collecting records may be
// picked up, anything else reads as not found and the delivery is dropped.
func (s *ExportRecordStore) Claim(ctx context.Context, id int64) (*model.ExportRecord, error) {
	db, err := s.storage.Database()
	if err != nil {
		return nil, dberr.NewDBInternalError("export_record.claim", err)
	}

	query := `
		UPDATE tenant_export.export_record
		SET status = 'collecting'
		WHERE id = $1 AND status IN ('queued', 'collecting')
		RETURNING ` + recordColumns

	rec, err := scanRecord(db.QueryRow(ctx, query, id))
	if err != nil {
		if dberr.Is(err, pgx.ErrNoRows) {
			return nil, dberr.NewDBNotFoundError("export_record.claim", "record missing or not claimable")
		}
		return nil, dberr.NewDBInternalError("export_record.claim", err)
	}
	return rec, nil
}

// SetProgress keeps progress monotonic at the database level.
func (s *ExportRecordStore) SetProgress(ctx context.Context, id int64, progress int, phase string) error {
	return s.exec(ctx, "export_record.set_progress", `
		UPDATE tenant_export.export_record
		SET progress = GREATEST(progress, $2), current_phase = $3
		WHERE id = $1`, id, progress, phase)
}

func (s *ExportRecordStore) SetPackaging(ctx context.Context, id int64) error {
	return s.exec(ctx, "export_record.set_packaging", `
		UPDATE tenant_export.export_record
		SET status = 'packaging', progress = GREATEST(progress, 90), current_phase = 'packaging'
		WHERE id = $1 AND status = 'collecting'`, id)
}

func (s *ExportRecordStore) MarkCompleted(ctx context.Context, id int64, result *model.CompletedExport) error {
	counts, err := json.Marshal(result.SectionCounts)
	if err != nil {
		return dberr.NewDBInternalError("export_record.mark_completed", err)
	}
	return s.exec(ctx, "export_record.mark_completed", `
		UPDATE tenant_export.export_record
		SET status = 'completed', progress = 100, current_phase = 'complete',
		    file_path = $2, file_size = $3, file_hash = $4,
		    section_counts = $5, completed_at = now()
		WHERE id = $1 AND status = 'packaging'`,
		id, result.FilePath, result.FileSize, result.FileHash, counts)
}

func (s *ExportRecordStore) MarkFailed(ctx context.Context, id int64, message string) error {
	return s.exec(ctx, "export_record.mark_failed", `
		UPDATE tenant_export.export_record
		SET status = 'failed', error_message = $2
		WHERE id = $1 AND status NOT IN ('completed', 'expired')`, id, message)
}

func (s *ExportRecordStore) IncrementDownloadCount(ctx context.Context, id int64) error {
	return s.exec(ctx, "export_record.increment_downloads", `
		UPDATE tenant_export.export_record
		SET download_count = download_count + 1
		WHERE id = $1`, id)
}

func (s *ExportRecordStore) ListByTenant(ctx context.Context, tenantID int64, limit int) ([]*model.ExportRecord, error) {
	db, err := s.storage.Database()
	if err != nil {
		return nil, dberr.NewDBInternalError("export_record.list_by_tenant", err)
	}

	query := `SELECT ` + recordColumns + `
		FROM tenant_export.export_record
		WHERE tenant_id = $1
		ORDER BY created DESC
		LIMIT $2`

	rows, err := db.Query(ctx, query, tenantID, limit)
	if err != nil {
		return nil, dberr.NewDBInternalError("export_record.list_by_tenant", err)
	}
	defer rows.Close()

	return collectRecords(rows, "export_record.list_by_tenant")
}

func (s *ExportRecordStore) ListExpired(ctx context.Context, now time.Time) ([]*model.ExportRecord, error) {
	db, err := s.storage.Database()
	if err != nil {
		return nil, dberr.NewDBInternalError("export_record.list_expired", err)
	}

	query := `SELECT ` + recordColumns + `
		FROM tenant_export.export_record
		WHERE status = 'completed' AND expires_at < $1`

	rows, err := db.Query(ctx, query, now)
	if err != nil {
		return nil, dberr.NewDBInternalError("export_record.list_expired", err)
	}
	defer rows.Close()

	return collectRecords(rows, "export_record.list_expired")
}

func (s *ExportRecordStore) MarkExpired(ctx context.Context, id int64) error {
	return s.exec(ctx, "export_record.mark_expired", `
		UPDATE tenant_export.export_record
		SET status = 'expired', file_path = NULL
		WHERE id = $1 AND status = 'completed'`, id)
}

func (s *ExportRecordStore) exec(ctx context.Context, op, query string, args ...any) error {
	db, err := s.storage.Database()
	if err != nil {
		return dberr.NewDBInternalError(op, err)
	}

	cmd, err := db.Exec(ctx, query, args...)
	if err != nil {
		return dberr.NewDBInternalError(op, err)
	}
	if cmd.RowsAffected() == 0 {
		return dberr.NewDBNotFoundError(op, "no export record matched")
	}
	return nil
}

func scanRecord(row pgx.Row) (*model.ExportRecord, error) {
	var (
		rec      model.ExportRecord
		sections []byte
		counts   []byte
	)
	err := row.Scan(
		&rec.ID, &rec.TenantID, &rec.TenantRefID, &rec.RequestedBy,
		&rec.ExportType, &rec.Status, &rec.Progress, &rec.CurrentPhase,
		&sections, &rec.DownloadToken, &rec.FilePath, &rec.FileSize,
		&rec.FileHash, &counts, &rec.DownloadCount, &rec.Created,
		&rec.CompletedAt, &rec.ExpiresAt, &rec.ErrorMessage,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(sections, &rec.RequestedSections); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(counts, &rec.SectionCounts); err != nil {
		return nil, err
	}
	return &rec, nil
}

func collectRecords(rows pgx.Rows, op string) ([]*model.ExportRecord, error) {
	var out []*model.ExportRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, dberr.NewDBInternalError(op, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, dberr.NewDBInternalError(op, err)
	}
	return out, nil
}
