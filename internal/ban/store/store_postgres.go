package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/matiasgallardo196/multiPlatformVenue-back/internal/ban/models"
	"github.com/matiasgallardo196/multiPlatformVenue-back/pkg/platform/sentinel"
	txcontext "github.com/matiasgallardo196/multiPlatformVenue-back/pkg/platform/tx"
)

// Postgres persists the ban aggregate with raw SQL. Incident-number
// uniqueness is a database constraint; the active-ban conflict check runs
// inside RunInTx so concurrent creates for the same person serialize on the
// person's rows.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Postgres) q(ctx context.Context) querier {
	if t, ok := txcontext.From(ctx); ok {
		return t
	}
	return s.db
}

func (s *Postgres) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return txcontext.Run(ctx, s.db, fn)
}

const banColumns = `id, incident_number, person_id, starting_date, ending_date,
	howlong_years, howlong_months, howlong_days, motives,
	people_involved, incident_report, action_taken,
	police_notified, police_notified_date, police_notified_time, police_notified_event,
	created_by, last_modified_by, requires_approval,
	violations_count, violation_dates, created_at, updated_at`

func (s *Postgres) InsertBan(ctx context.Context, ban *models.Ban) error {
	dates, err := json.Marshal(ban.ViolationDates)
	if err != nil {
		return fmt.Errorf("marshal violation dates: %w", err)
	}
	_, err = s.q(ctx).ExecContext(ctx, `
		INSERT INTO bans (`+banColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23)`,
		ban.ID, ban.IncidentNumber, ban.PersonID,
		ban.StartingDate, nullTime(ban.EndingDate),
		ban.HowLong.Years, ban.HowLong.Months, ban.HowLong.Days,
		pq.Array(ban.Motives),
		nullStr(ban.PeopleInvolved), nullStr(ban.IncidentReport), nullStr(ban.ActionTaken),
		ban.Police.Notified, ban.Police.Date, nullStr(ban.Police.Time), nullStr(ban.Police.Event),
		ban.CreatedByUserID, nullStr(ban.LastModifiedByUserID), ban.RequiresApproval,
		ban.ViolationsCount, dates, ban.CreatedAt, ban.UpdatedAt,
	)
	if err != nil {
		return mapPQError(err, "insert ban")
	}
	return nil
}

func (s *Postgres) GetBan(ctx context.Context, id string) (*models.Ban, error) {
	row := s.q(ctx).QueryRowContext(ctx,
		`SELECT `+banColumns+` FROM bans WHERE id = $1`, id)
	ban, err := scanBan(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get ban: %w", err)
	}
	return ban, nil
}

func (s *Postgres) UpdateBan(ctx context.Context, ban *models.Ban) error {
	dates, err := json.Marshal(ban.ViolationDates)
	if err != nil {
		return fmt.Errorf("marshal violation dates: %w", err)
	}
	res, err := s.q(ctx).ExecContext(ctx, `
		UPDATE bans SET
			incident_number = $2, starting_date = $3, ending_date = $4,
			howlong_years = $5, howlong_months = $6, howlong_days = $7,
			motives = $8, people_involved = $9, incident_report = $10, action_taken = $11,
			police_notified = $12, police_notified_date = $13,
			police_notified_time = $14, police_notified_event = $15,
			last_modified_by = $16, requires_approval = $17,
			violations_count = $18, violation_dates = $19, updated_at = $20
		WHERE id = $1`,
		ban.ID, ban.IncidentNumber, ban.StartingDate, nullTime(ban.EndingDate),
		ban.HowLong.Years, ban.HowLong.Months, ban.HowLong.Days,
		pq.Array(ban.Motives),
		nullStr(ban.PeopleInvolved), nullStr(ban.IncidentReport), nullStr(ban.ActionTaken),
		ban.Police.Notified, ban.Police.Date, nullStr(ban.Police.Time), nullStr(ban.Police.Event),
		nullStr(ban.LastModifiedByUserID), ban.RequiresApproval,
		ban.ViolationsCount, dates, ban.UpdatedAt,
	)
	if err != nil {
		return mapPQError(err, "update ban")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update ban: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) DeleteBan(ctx context.Context, id string) error {
	// ban_places cascades via FK; ban_history has no FK on purpose
	res, err := s.q(ctx).ExecContext(ctx, `DELETE FROM bans WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete ban: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete ban: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) ListBans(ctx context.Context) ([]*models.Ban, error) {
	return s.listBans(ctx, `SELECT `+banColumns+` FROM bans ORDER BY id`)
}

func (s *Postgres) ListBansByPerson(ctx context.Context, personID string) ([]*models.Ban, error) {
	return s.listBans(ctx,
		`SELECT `+banColumns+` FROM bans WHERE person_id = $1 ORDER BY starting_date DESC`,
		personID)
}

func (s *Postgres) ListBansByCreatorWithPending(ctx context.Context, creatorID string) ([]*models.Ban, error) {
	return s.listBans(ctx, `
		SELECT `+banColumns+` FROM bans b
		WHERE b.created_by = $1
		  AND EXISTS (
			SELECT 1 FROM ban_places bp
			WHERE bp.ban_id = b.id AND bp.status = 'pending')
		ORDER BY b.starting_date DESC`,
		creatorID)
}

func (s *Postgres) ListBansPendingAtPlace(ctx context.Context, placeID string) ([]*models.Ban, error) {
	return s.listBans(ctx, `
		SELECT `+banColumns+` FROM bans b
		JOIN ban_places bp ON bp.ban_id = b.id
		WHERE bp.place_id = $1 AND bp.status = 'pending'
		ORDER BY b.id`,
		placeID)
}

func (s *Postgres) CountActiveBansByPerson(ctx context.Context, personID string, now time.Time) (int, error) {
	var n int
	err := s.q(ctx).QueryRowContext(ctx, `
		SELECT COUNT(*) FROM bans
		WHERE person_id = $1
		  AND starting_date <= $2
		  AND (ending_date IS NULL OR ending_date > $2)`,
		personID, now,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count active bans: %w", err)
	}
	return n, nil
}

func (s *Postgres) UpsertApproval(ctx context.Context, approval models.PlaceApproval) error {
	_, err := s.q(ctx).ExecContext(ctx, `
		INSERT INTO ban_places (ban_id, place_id, status, approved_by, approved_at, rejected_by, rejected_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (ban_id, place_id) DO UPDATE SET
			status = EXCLUDED.status,
			approved_by = EXCLUDED.approved_by,
			approved_at = EXCLUDED.approved_at,
			rejected_by = EXCLUDED.rejected_by,
			rejected_at = EXCLUDED.rejected_at`,
		approval.BanID, approval.PlaceID, string(approval.Status),
		nullStr(approval.ApprovedByUserID), approval.ApprovedAt,
		nullStr(approval.RejectedByUserID), approval.RejectedAt,
	)
	if err != nil {
		return mapPQError(err, "upsert approval")
	}
	return nil
}

func (s *Postgres) DeleteApproval(ctx context.Context, banID, placeID string) error {
	res, err := s.q(ctx).ExecContext(ctx,
		`DELETE FROM ban_places WHERE ban_id = $1 AND place_id = $2`, banID, placeID)
	if err != nil {
		return fmt.Errorf("delete approval: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete approval: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) ApprovalsByBan(ctx context.Context, banID string) ([]models.PlaceApproval, error) {
	rows, err := s.q(ctx).QueryContext(ctx, `
		SELECT ban_id, place_id, status, approved_by, approved_at, rejected_by, rejected_at
		FROM ban_places WHERE ban_id = $1 ORDER BY place_id`, banID)
	if err != nil {
		return nil, fmt.Errorf("approvals by ban: %w", err)
	}
	defer rows.Close()

	var out []models.PlaceApproval
	for rows.Next() {
		ap, err := scanApproval(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ap)
	}
	return out, rows.Err()
}

func (s *Postgres) ActiveApprovedBansAt(ctx context.Context, personID string, placeIDs []string, now time.Time) ([]models.ActiveBanRef, error) {
	if len(placeIDs) == 0 {
		return nil, nil
	}
	// FOR UPDATE OF bp serializes concurrent creates for the same person
	// when this runs inside RunInTx (check-then-act on shared rows).
	rows, err := s.q(ctx).QueryContext(ctx, `
		SELECT bp.ban_id, bp.place_id, COALESCE(pl.name, bp.place_id::text),
		       b.starting_date, b.ending_date, bp.status
		FROM ban_places bp
		JOIN bans b ON b.id = bp.ban_id
		LEFT JOIN places pl ON pl.id = bp.place_id
		WHERE b.person_id = $1
		  AND bp.place_id = ANY($2)
		  AND bp.status = 'approved'
		  AND b.starting_date <= $3
		  AND (b.ending_date IS NULL OR b.ending_date > $3)
		ORDER BY bp.place_id
		FOR UPDATE OF bp`,
		personID, pq.Array(placeIDs), now)
	if err != nil {
		return nil, fmt.Errorf("active approved bans: %w", err)
	}
	defer rows.Close()

	var out []models.ActiveBanRef
	for rows.Next() {
		var ref models.ActiveBanRef
		var ending sql.NullTime
		var status string
		if err := rows.Scan(&ref.BanID, &ref.PlaceID, &ref.PlaceName,
			&ref.StartingDate, &ending, &status); err != nil {
			return nil, fmt.Errorf("scan active ban ref: %w", err)
		}
		ref.EndingDate = ending.Time
		ref.Status = models.ApprovalStatus(status)
		out = append(out, ref)
	}
	return out, rows.Err()
}

func (s *Postgres) AppendHistory(ctx context.Context, entry models.HistoryEntry) error {
	details, err := json.Marshal(entry.Details)
	if err != nil {
		return fmt.Errorf("marshal history details: %w", err)
	}
	_, err = s.q(ctx).ExecContext(ctx, `
		INSERT INTO ban_history (id, ban_id, action, performed_by, performed_at, place_id, details)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		entry.ID, entry.BanID, string(entry.Action),
		entry.PerformedByUserID, entry.PerformedAt,
		nullStr(entry.PlaceID), details,
	)
	if err != nil {
		return mapPQError(err, "append history")
	}
	return nil
}

func (s *Postgres) HistoryByBan(ctx context.Context, banID string) ([]models.HistoryEntry, error) {
	rows, err := s.q(ctx).QueryContext(ctx, `
		SELECT id, ban_id, action, performed_by, performed_at, place_id, details
		FROM ban_history WHERE ban_id = $1
		ORDER BY performed_at DESC, seq DESC`, banID)
	if err != nil {
		return nil, fmt.Errorf("history by ban: %w", err)
	}
	defer rows.Close()

	var out []models.HistoryEntry
	for rows.Next() {
		var e models.HistoryEntry
		var action string
		var placeID sql.NullString
		var details []byte
		if err := rows.Scan(&e.ID, &e.BanID, &action, &e.PerformedByUserID,
			&e.PerformedAt, &placeID, &details); err != nil {
			return nil, fmt.Errorf("scan history entry: %w", err)
		}
		e.Action = models.HistoryAction(action)
		e.PlaceID = placeID.String
		if len(details) > 0 {
			if err := json.Unmarshal(details, &e.Details); err != nil {
				return nil, fmt.Errorf("unmarshal history details: %w", err)
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBan(row rowScanner) (*models.Ban, error) {
	var b models.Ban
	var ending, policeDate sql.NullTime
	var people, report, action, policeTime, policeEvent, lastModified sql.NullString
	var motives pq.StringArray
	var dates []byte
	err := row.Scan(
		&b.ID, &b.IncidentNumber, &b.PersonID, &b.StartingDate, &ending,
		&b.HowLong.Years, &b.HowLong.Months, &b.HowLong.Days, &motives,
		&people, &report, &action,
		&b.Police.Notified, &policeDate, &policeTime, &policeEvent,
		&b.CreatedByUserID, &lastModified, &b.RequiresApproval,
		&b.ViolationsCount, &dates, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	b.EndingDate = ending.Time
	b.Motives = motives
	b.PeopleInvolved = people.String
	b.IncidentReport = report.String
	b.ActionTaken = action.String
	if policeDate.Valid {
		d := policeDate.Time
		b.Police.Date = &d
	}
	b.Police.Time = policeTime.String
	b.Police.Event = policeEvent.String
	b.LastModifiedByUserID = lastModified.String
	if len(dates) > 0 {
		if err := json.Unmarshal(dates, &b.ViolationDates); err != nil {
			return nil, fmt.Errorf("unmarshal violation dates: %w", err)
		}
	}
	return &b, nil
}

func scanApproval(rows *sql.Rows) (models.PlaceApproval, error) {
	var ap models.PlaceApproval
	var status string
	var approvedBy, rejectedBy sql.NullString
	var approvedAt, rejectedAt sql.NullTime
	if err := rows.Scan(&ap.BanID, &ap.PlaceID, &status,
		&approvedBy, &approvedAt, &rejectedBy, &rejectedAt); err != nil {
		return ap, fmt.Errorf("scan approval: %w", err)
	}
	ap.Status = models.ApprovalStatus(status)
	ap.ApprovedByUserID = approvedBy.String
	if approvedAt.Valid {
		t := approvedAt.Time
		ap.ApprovedAt = &t
	}
	ap.RejectedByUserID = rejectedBy.String
	if rejectedAt.Valid {
		t := rejectedAt.Time
		ap.RejectedAt = &t
	}
	return ap, nil
}

func (s *Postgres) listBans(ctx context.Context, query string, args ...any) ([]*models.Ban, error) {
	rows, err := s.q(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list bans: %w", err)
	}
	defer rows.Close()

	var out []*models.Ban
	for rows.Next() {
		b, err := scanBan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ban: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func nullStr(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

// mapPQError translates unique violations (23505) into the conflict
// sentinel, mirroring the incident-number handling upstream callers expect.
func mapPQError(err error, op string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return fmt.Errorf("%s: %w", op, sentinel.ErrConflict)
	}
	return fmt.Errorf("%s: %w", op, err)
}
