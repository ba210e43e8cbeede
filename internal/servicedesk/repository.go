package servicedesk

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-office/internal/platform/db"
	"github.com/odyssey-erp/odyssey-office/internal/shared"
)

// Repository persists service desk records.
type Repository interface {
	ListSystems(ctx context.Context) ([]SupportedSystem, error)
	SaveSystem(ctx context.Context, s SupportedSystem) (SupportedSystem, error)
	DeleteSystem(ctx context.Context, id int64) error

	ListServices(ctx context.Context, activityID int64) ([]SupportService, error)
	GetService(ctx context.Context, id int64) (SupportService, error)
	SaveService(ctx context.Context, s SupportService) (SupportService, error)
	DeleteService(ctx context.Context, id int64) error

	ListSubServices(ctx context.Context, serviceID int64) ([]SubService, error)
	GetSubService(ctx context.Context, id int64) (SubService, error)
	SaveSubService(ctx context.Context, s SubService) (SubService, error)
	DeleteSubService(ctx context.Context, id int64) error

	ListReporters(ctx context.Context) ([]ExternalReporter, error)
	SaveReporter(ctx context.Context, r ExternalReporter) (ExternalReporter, error)
	DeleteReporter(ctx context.Context, id int64) error

	ListTickets(ctx context.Context, f TicketFilter) ([]SupportTicket, int, error)
	GetTicket(ctx context.Context, id int64) (SupportTicket, error)
	SaveTicket(ctx context.Context, t SupportTicket) (SupportTicket, error)
	DeleteTicket(ctx context.Context, id int64) error

	ListStatisticTypes(ctx context.Context, activityID int64) ([]StatisticType, error)
	SaveStatisticType(ctx context.Context, t StatisticType) (StatisticType, error)
	DeleteStatisticType(ctx context.Context, id int64) error

	ListStatisticsRecords(ctx context.Context, typeID int64) ([]StatisticsRecord, error)
	GetStatisticsRecord(ctx context.Context, id int64) (StatisticsRecord, error)
	SaveStatisticsRecord(ctx context.Context, r StatisticsRecord) (StatisticsRecord, error)
	DeleteStatisticsRecord(ctx context.Context, id int64) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	db db.DBTX
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{db: pool}
}

func (r *PGRepository) ListSystems(ctx context.Context) ([]SupportedSystem, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, description FROM supported_systems ORDER BY name`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (SupportedSystem, error) {
		var s SupportedSystem
		err := row.Scan(&s.ID, &s.Name, &s.Description)
		return s, err
	})
}

func (r *PGRepository) SaveSystem(ctx context.Context, s SupportedSystem) (SupportedSystem, error) {
	if s.ID == 0 {
		err := r.db.QueryRow(ctx, `INSERT INTO supported_systems (name, description) VALUES ($1, $2) RETURNING id`, s.Name, s.Description).Scan(&s.ID)
		return s, err
	}
	tag, err := r.db.Exec(ctx, `UPDATE supported_systems SET name = $2, description = $3 WHERE id = $1`, s.ID, s.Name, s.Description)
	return s, affected(tag.RowsAffected(), err)
}

func (r *PGRepository) DeleteSystem(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM supported_systems WHERE id = $1`, id)
	return affected(tag.RowsAffected(), err)
}

const serviceColumns = `id, name, description, activity_id, is_related_to_system, supported_system_id`

func scanService(row pgx.Row) (SupportService, error) {
	var s SupportService
	err := row.Scan(&s.ID, &s.Name, &s.Description, &s.ActivityID, &s.IsRelatedToSystem, &s.SupportedSystemID)
	return s, err
}

func (r *PGRepository) ListServices(ctx context.Context, activityID int64) ([]SupportService, error) {
	query := `SELECT ` + serviceColumns + ` FROM support_services`
	var args []any
	if activityID > 0 {
		query += ` WHERE activity_id = $1`
		args = append(args, activityID)
	}
	rows, err := r.db.Query(ctx, query+` ORDER BY name`, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (SupportService, error) { return scanService(row) })
}

func (r *PGRepository) GetService(ctx context.Context, id int64) (SupportService, error) {
	s, err := scanService(r.db.QueryRow(ctx, `SELECT `+serviceColumns+` FROM support_services WHERE id = $1`, id))
	return s, notFound(err)
}

func (r *PGRepository) SaveService(ctx context.Context, s SupportService) (SupportService, error) {
	if s.ID == 0 {
		err := r.db.QueryRow(ctx, `INSERT INTO support_services (name, description, activity_id, is_related_to_system, supported_system_id)
VALUES ($1, $2, $3, $4, $5) RETURNING id`, s.Name, s.Description, s.ActivityID, s.IsRelatedToSystem, s.SupportedSystemID).Scan(&s.ID)
		return s, mapWriteError(err)
	}
	tag, err := r.db.Exec(ctx, `UPDATE support_services SET name = $2, description = $3, activity_id = $4, is_related_to_system = $5, supported_system_id = $6
WHERE id = $1`, s.ID, s.Name, s.Description, s.ActivityID, s.IsRelatedToSystem, s.SupportedSystemID)
	return s, affected(tag.RowsAffected(), mapWriteError(err))
}

func (r *PGRepository) DeleteService(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM support_services WHERE id = $1`, id)
	return affected(tag.RowsAffected(), err)
}

func (r *PGRepository) ListSubServices(ctx context.Context, serviceID int64) ([]SubService, error) {
	rows, err := r.db.Query(ctx, `SELECT id, service_id, name, description FROM sub_services WHERE service_id = $1 ORDER BY name`, serviceID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (SubService, error) {
		var s SubService
		err := row.Scan(&s.ID, &s.ServiceID, &s.Name, &s.Description)
		return s, err
	})
}

func (r *PGRepository) GetSubService(ctx context.Context, id int64) (SubService, error) {
	var s SubService
	err := r.db.QueryRow(ctx, `SELECT id, service_id, name, description FROM sub_services WHERE id = $1`, id).
		Scan(&s.ID, &s.ServiceID, &s.Name, &s.Description)
	return s, notFound(err)
}

func (r *PGRepository) SaveSubService(ctx context.Context, s SubService) (SubService, error) {
	if s.ID == 0 {
		err := r.db.QueryRow(ctx, `INSERT INTO sub_services (service_id, name, description) VALUES ($1, $2, $3) RETURNING id`,
			s.ServiceID, s.Name, s.Description).Scan(&s.ID)
		return s, mapWriteError(err)
	}
	tag, err := r.db.Exec(ctx, `UPDATE sub_services SET service_id = $2, name = $3, description = $4 WHERE id = $1`,
		s.ID, s.ServiceID, s.Name, s.Description)
	return s, affected(tag.RowsAffected(), mapWriteError(err))
}

func (r *PGRepository) DeleteSubService(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM sub_services WHERE id = $1`, id)
	return affected(tag.RowsAffected(), err)
}

func (r *PGRepository) ListReporters(ctx context.Context) ([]ExternalReporter, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, phone, email FROM external_reporters ORDER BY name`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (ExternalReporter, error) {
		var e ExternalReporter
		err := row.Scan(&e.ID, &e.Name, &e.Phone, &e.Email)
		return e, err
	})
}

func (r *PGRepository) SaveReporter(ctx context.Context, e ExternalReporter) (ExternalReporter, error) {
	if e.ID == 0 {
		err := r.db.QueryRow(ctx, `INSERT INTO external_reporters (name, phone, email) VALUES ($1, $2, $3) RETURNING id`,
			e.Name, e.Phone, e.Email).Scan(&e.ID)
		return e, err
	}
	tag, err := r.db.Exec(ctx, `UPDATE external_reporters SET name = $2, phone = $3, email = $4 WHERE id = $1`, e.ID, e.Name, e.Phone, e.Email)
	return e, affected(tag.RowsAffected(), err)
}

func (r *PGRepository) DeleteReporter(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM external_reporters WHERE id = $1`, id)
	return affected(tag.RowsAffected(), err)
}

const ticketColumns = `id, service_id, sub_service_id, user_type, internal_user_id, external_reporter_id, reporter_name,
    description, status, submitted_at, resolved_at, resolved_by_id`

func scanTicket(row pgx.Row) (SupportTicket, error) {
	var t SupportTicket
	err := row.Scan(&t.ID, &t.ServiceID, &t.SubServiceID, &t.UserType, &t.InternalUserID, &t.ExternalReporterID, &t.ReporterName,
		&t.Description, &t.Status, &t.SubmittedAt, &t.ResolvedAt, &t.ResolvedByID)
	return t, err
}

func (r *PGRepository) ListTickets(ctx context.Context, f TicketFilter) ([]SupportTicket, int, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if f.ServiceID > 0 {
		where = append(where, "service_id = "+arg(f.ServiceID))
	}
	if f.Status != "" {
		where = append(where, "status = "+arg(string(f.Status)))
	}
	if !f.From.IsZero() {
		where = append(where, "submitted_at >= "+arg(f.From))
	}
	if !f.To.IsZero() {
		where = append(where, "submitted_at < "+arg(f.To))
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM support_tickets`+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	page := shared.PageParams{Page: f.Page, PerPage: f.PerPage}
	rows, err := r.db.Query(ctx, `SELECT `+ticketColumns+` FROM support_tickets`+clause+
		` ORDER BY submitted_at DESC, id DESC LIMIT `+arg(page.Limit())+` OFFSET `+arg(page.Offset()), args...)
	if err != nil {
		return nil, 0, err
	}
	tickets, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (SupportTicket, error) { return scanTicket(row) })
	return tickets, total, err
}

func (r *PGRepository) GetTicket(ctx context.Context, id int64) (SupportTicket, error) {
	t, err := scanTicket(r.db.QueryRow(ctx, `SELECT `+ticketColumns+` FROM support_tickets WHERE id = $1`, id))
	return t, notFound(err)
}

func (r *PGRepository) SaveTicket(ctx context.Context, t SupportTicket) (SupportTicket, error) {
	if t.ID == 0 {
		err := r.db.QueryRow(ctx, `INSERT INTO support_tickets (service_id, sub_service_id, user_type, internal_user_id, external_reporter_id,
    reporter_name, description, status, submitted_at, resolved_at, resolved_by_id)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11) RETURNING id`,
			t.ServiceID, t.SubServiceID, string(t.UserType), t.InternalUserID, t.ExternalReporterID,
			t.ReporterName, t.Description, string(t.Status), t.SubmittedAt, t.ResolvedAt, t.ResolvedByID).Scan(&t.ID)
		return t, mapWriteError(err)
	}
	tag, err := r.db.Exec(ctx, `UPDATE support_tickets SET service_id = $2, sub_service_id = $3, user_type = $4, internal_user_id = $5,
    external_reporter_id = $6, reporter_name = $7, description = $8, status = $9, resolved_at = $10, resolved_by_id = $11
WHERE id = $1`,
		t.ID, t.ServiceID, t.SubServiceID, string(t.UserType), t.InternalUserID, t.ExternalReporterID,
		t.ReporterName, t.Description, string(t.Status), t.ResolvedAt, t.ResolvedByID)
	return t, affected(tag.RowsAffected(), mapWriteError(err))
}

func (r *PGRepository) DeleteTicket(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM support_tickets WHERE id = $1`, id)
	return affected(tag.RowsAffected(), err)
}

func (r *PGRepository) ListStatisticTypes(ctx context.Context, activityID int64) ([]StatisticType, error) {
	query := `SELECT id, name, activity_id FROM statistic_types`
	var args []any
	if activityID > 0 {
		query += ` WHERE activity_id = $1`
		args = append(args, activityID)
	}
	rows, err := r.db.Query(ctx, query+` ORDER BY name`, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (StatisticType, error) {
		var t StatisticType
		err := row.Scan(&t.ID, &t.Name, &t.ActivityID)
		return t, err
	})
}

func (r *PGRepository) SaveStatisticType(ctx context.Context, t StatisticType) (StatisticType, error) {
	if t.ID == 0 {
		err := r.db.QueryRow(ctx, `INSERT INTO statistic_types (name, activity_id) VALUES ($1, $2) RETURNING id`, t.Name, t.ActivityID).Scan(&t.ID)
		return t, mapWriteError(err)
	}
	tag, err := r.db.Exec(ctx, `UPDATE statistic_types SET name = $2, activity_id = $3 WHERE id = $1`, t.ID, t.Name, t.ActivityID)
	return t, affected(tag.RowsAffected(), mapWriteError(err))
}

func (r *PGRepository) DeleteStatisticType(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM statistic_types WHERE id = $1`, id)
	return affected(tag.RowsAffected(), err)
}

func scanRecord(row pgx.Row) (StatisticsRecord, error) {
	var s StatisticsRecord
	err := row.Scan(&s.ID, &s.StatisticTypeID, &s.Title, &s.Description, &s.StartDate, &s.EndDate)
	return s, err
}

func (r *PGRepository) ListStatisticsRecords(ctx context.Context, typeID int64) ([]StatisticsRecord, error) {
	query := `SELECT id, statistic_type_id, title, description, start_date, end_date FROM statistics_records`
	var args []any
	if typeID > 0 {
		query += ` WHERE statistic_type_id = $1`
		args = append(args, typeID)
	}
	rows, err := r.db.Query(ctx, query+` ORDER BY start_date DESC, id DESC`, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (StatisticsRecord, error) { return scanRecord(row) })
}

func (r *PGRepository) GetStatisticsRecord(ctx context.Context, id int64) (StatisticsRecord, error) {
	s, err := scanRecord(r.db.QueryRow(ctx, `SELECT id, statistic_type_id, title, description, start_date, end_date FROM statistics_records WHERE id = $1`, id))
	return s, notFound(err)
}

func (r *PGRepository) SaveStatisticsRecord(ctx context.Context, s StatisticsRecord) (StatisticsRecord, error) {
	if s.ID == 0 {
		err := r.db.QueryRow(ctx, `INSERT INTO statistics_records (statistic_type_id, title, description, start_date, end_date)
VALUES ($1, $2, $3, $4, $5) RETURNING id`, s.StatisticTypeID, s.Title, s.Description, s.StartDate, s.EndDate).Scan(&s.ID)
		return s, mapWriteError(err)
	}
	tag, err := r.db.Exec(ctx, `UPDATE statistics_records SET statistic_type_id = $2, title = $3, description = $4, start_date = $5, end_date = $6
WHERE id = $1`, s.ID, s.StatisticTypeID, s.Title, s.Description, s.StartDate, s.EndDate)
	return s, affected(tag.RowsAffected(), mapWriteError(err))
}

func (r *PGRepository) DeleteStatisticsRecord(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM statistics_records WHERE id = $1`, id)
	return affected(tag.RowsAffected(), err)
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func affected(rows int64, err error) error {
	switch {
	case db.IsForeignKeyViolation(err):
		return ErrInUse
	case err != nil:
		return err
	case rows == 0:
		return ErrNotFound
	}
	return nil
}

func mapWriteError(err error) error {
	switch {
	case err == nil:
		return nil
	case db.IsUniqueViolation(err, "uq_statistic_types_name"):
		return ErrDuplicateStatisticType
	case db.IsCheckViolation(err, "ck_statistics_records_range"):
		return ErrInvalidRecordRange
	case db.IsForeignKeyViolation(err):
		return ErrReferenceMissing
	}
	return err
}

var _ Repository = (*PGRepository)(nil)
