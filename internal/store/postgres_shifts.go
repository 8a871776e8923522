package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

func (s *PostgresStore) GetGuard(ctx context.Context, id uuid.UUID) (*Guard, error) {
	g := &Guard{}
	err := s.pool.QueryRow(ctx, `
		SELECT guard_id, name, certifications, home_latitude, home_longitude,
			performance_rating, max_weekly_hours, active, created_at
		FROM guards WHERE guard_id = $1`, id,
	).Scan(&g.ID, &g.Name, &g.Certifications, &g.HomeLatitude, &g.HomeLongitude,
		&g.PerformanceRating, &g.MaxWeeklyHours, &g.Active, &g.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return g, nil
}

func (s *PostgresStore) ListActiveGuards(ctx context.Context) ([]*Guard, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT guard_id, name, certifications, home_latitude, home_longitude,
			performance_rating, max_weekly_hours, active, created_at
		FROM guards WHERE active`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var guards []*Guard
	for rows.Next() {
		g := &Guard{}
		if err := rows.Scan(&g.ID, &g.Name, &g.Certifications, &g.HomeLatitude, &g.HomeLongitude,
			&g.PerformanceRating, &g.MaxWeeklyHours, &g.Active, &g.CreatedAt); err != nil {
			return nil, err
		}
		guards = append(guards, g)
	}
	return guards, rows.Err()
}

func (s *PostgresStore) GetShift(ctx context.Context, id uuid.UUID) (*Shift, error) {
	sh := &Shift{}
	var certsJSON []byte
	err := s.pool.QueryRow(ctx, `
		SELECT shift_id, client_name, site_latitude, site_longitude,
			start_time, end_time, required_certifications, priority, hourly_rate, status, created_at
		FROM shifts WHERE shift_id = $1`, id,
	).Scan(&sh.ID, &sh.ClientName, &sh.SiteLatitude, &sh.SiteLongitude,
		&sh.StartTime, &sh.EndTime, &certsJSON, &sh.Priority, &sh.HourlyRate, &sh.Status, &sh.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if certsJSON != nil {
		_ = json.Unmarshal(certsJSON, &sh.RequiredCertifications)
	}
	return sh, nil
}

func (s *PostgresStore) ListOpenShifts(ctx context.Context) ([]*Shift, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT shift_id, client_name, site_latitude, site_longitude,
			start_time, end_time, required_certifications, priority, hourly_rate, status, created_at
		FROM shifts WHERE status = 'open'
		ORDER BY priority DESC, start_time ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var shifts []*Shift
	for rows.Next() {
		sh := &Shift{}
		var certsJSON []byte
		if err := rows.Scan(&sh.ID, &sh.ClientName, &sh.SiteLatitude, &sh.SiteLongitude,
			&sh.StartTime, &sh.EndTime, &certsJSON, &sh.Priority, &sh.HourlyRate, &sh.Status, &sh.CreatedAt); err != nil {
			return nil, err
		}
		if certsJSON != nil {
			_ = json.Unmarshal(certsJSON, &sh.RequiredCertifications)
		}
		shifts = append(shifts, sh)
	}
	return shifts, rows.Err()
}

func (s *PostgresStore) GetGuardAvailability(ctx context.Context, guardID uuid.UUID) ([]*GuardAvailability, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT availability_id, guard_id, window_start, window_end, type, priority
		FROM guard_availability WHERE guard_id = $1
		ORDER BY window_start ASC`, guardID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var windows []*GuardAvailability
	for rows.Next() {
		w := &GuardAvailability{}
		if err := rows.Scan(&w.ID, &w.GuardID, &w.Start, &w.End, &w.Type, &w.Priority); err != nil {
			return nil, err
		}
		windows = append(windows, w)
	}
	return windows, rows.Err()
}

const assignmentColumns = `assignment_id, shift_id, guard_id, status, method,
	match_score, conflicts,
	conflict_overridden, override_reason, override_by,
	response_notes, respond_by, responded_at,
	created_at, updated_at`

func (s *PostgresStore) CreateAssignment(ctx context.Context, a *ShiftAssignment) error {
	conflictsJSON, _ := json.Marshal(a.Conflicts)
	return s.pool.QueryRow(ctx, `
		INSERT INTO shift_assignments (shift_id, guard_id, status, method,
			match_score, conflicts, conflict_overridden, override_reason, override_by, respond_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING assignment_id, created_at, updated_at`,
		a.ShiftID, a.GuardID, a.Status, a.Method,
		a.MatchScore, conflictsJSON, a.ConflictOverridden, a.OverrideReason, a.OverrideBy, a.RespondBy,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
}

func (s *PostgresStore) GetAssignment(ctx context.Context, id uuid.UUID) (*ShiftAssignment, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+assignmentColumns+`
		FROM shift_assignments WHERE assignment_id = $1`, id)
	a, err := scanAssignment(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (s *PostgresStore) UpdateAssignment(ctx context.Context, a *ShiftAssignment) error {
	conflictsJSON, _ := json.Marshal(a.Conflicts)
	_, err := s.pool.Exec(ctx, `
		UPDATE shift_assignments SET
			status = $2, match_score = $3, conflicts = $4,
			conflict_overridden = $5, override_reason = $6, override_by = $7,
			response_notes = $8, respond_by = $9, responded_at = $10,
			updated_at = now()
		WHERE assignment_id = $1`,
		a.ID, a.Status, a.MatchScore, conflictsJSON,
		a.ConflictOverridden, a.OverrideReason, a.OverrideBy,
		a.ResponseNotes, a.RespondBy, a.RespondedAt,
	)
	return err
}

func (s *PostgresStore) GetActiveAssignmentsForGuard(ctx context.Context, guardID uuid.UUID, from, to time.Time) ([]*ShiftAssignment, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+assignmentColumns+`
		FROM shift_assignments a
		JOIN shifts sh ON sh.shift_id = a.shift_id
		WHERE a.guard_id = $1
		  AND a.status IN ('pending', 'accepted', 'confirmed')
		  AND sh.start_time < $3 AND sh.end_time > $2`, guardID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAssignments(rows)
}

func (s *PostgresStore) GetExpiredPendingAssignments(ctx context.Context, now time.Time) ([]*ShiftAssignment, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+assignmentColumns+`
		FROM shift_assignments
		WHERE status = 'pending' AND respond_by IS NOT NULL AND respond_by < $1`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAssignments(rows)
}

func (s *PostgresStore) CreateAssignmentEvent(ctx context.Context, e *AssignmentEvent) error {
	payloadJSON, _ := json.Marshal(e.Payload)
	return s.pool.QueryRow(ctx, `
		INSERT INTO shift_assignment_events (assignment_id, event, actor, payload)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`,
		e.AssignmentID, e.Event, e.Actor, payloadJSON,
	).Scan(&e.ID, &e.CreatedAt)
}

func scanAssignment(row pgx.Row) (*ShiftAssignment, error) {
	a := &ShiftAssignment{}
	var conflictsJSON []byte
	var overrideReason, overrideBy, responseNotes sql.NullString
	err := row.Scan(
		&a.ID, &a.ShiftID, &a.GuardID, &a.Status, &a.Method,
		&a.MatchScore, &conflictsJSON,
		&a.ConflictOverridden, &overrideReason, &overrideBy,
		&responseNotes, &a.RespondBy, &a.RespondedAt,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if overrideReason.Valid {
		a.OverrideReason = overrideReason.String
	}
	if overrideBy.Valid {
		a.OverrideBy = overrideBy.String
	}
	if responseNotes.Valid {
		a.ResponseNotes = responseNotes.String
	}
	if conflictsJSON != nil {
		_ = json.Unmarshal(conflictsJSON, &a.Conflicts)
	}
	return a, nil
}

func scanAssignments(rows pgx.Rows) ([]*ShiftAssignment, error) {
	var out []*ShiftAssignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
