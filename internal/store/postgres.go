package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

const leadColumns = `lead_id, name, email, phone,
	years_experience, has_security_experience, has_license, has_transportation,
	willing_to_relocate, salary_expectation, certification_count,
	full_time, part_time, weekends, nights,
	source, referred, distance_miles,
	status, recruiter_id,
	qualification_score, score_breakdown, application_probability, hire_probability, scored_at,
	created_at, updated_at`

func (s *PostgresStore) CreateLead(ctx context.Context, lead *Lead) error {
	return s.pool.QueryRow(ctx, `
		INSERT INTO guard_leads (name, email, phone,
			years_experience, has_security_experience, has_license, has_transportation,
			willing_to_relocate, salary_expectation, certification_count,
			full_time, part_time, weekends, nights,
			source, referred, distance_miles, status, recruiter_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		RETURNING lead_id, created_at, updated_at`,
		lead.Name, lead.Email, lead.Phone,
		lead.YearsExperience, lead.HasSecurityExperience, lead.HasLicense, lead.HasTransportation,
		lead.WillingToRelocate, lead.SalaryExpectation, lead.CertificationCount,
		lead.FullTime, lead.PartTime, lead.Weekends, lead.Nights,
		lead.Source, lead.Referred, lead.DistanceMiles, lead.Status, lead.RecruiterID,
	).Scan(&lead.ID, &lead.CreatedAt, &lead.UpdatedAt)
}

func (s *PostgresStore) GetLead(ctx context.Context, id uuid.UUID) (*Lead, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+leadColumns+`
		FROM guard_leads WHERE lead_id = $1`, id)
	lead, err := scanLead(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return lead, nil
}

func (s *PostgresStore) ListLeads(ctx context.Context, filter LeadFilter) ([]*Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM guard_leads WHERE 1=1`
	args := []interface{}{}
	n := 0

	if filter.Status != nil {
		n++
		query += fmt.Sprintf(" AND status = $%d", n)
		args = append(args, string(*filter.Status))
	}
	if filter.RecruiterID != "" {
		n++
		query += fmt.Sprintf(" AND recruiter_id = $%d", n)
		args = append(args, filter.RecruiterID)
	}

	query += " ORDER BY qualification_score DESC NULLS LAST, created_at ASC"

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	n++
	query += fmt.Sprintf(" LIMIT $%d", n)
	args = append(args, limit)

	if filter.Offset > 0 {
		n++
		query += fmt.Sprintf(" OFFSET $%d", n)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var leads []*Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, lead)
	}
	return leads, rows.Err()
}

func (s *PostgresStore) UpdateLeadCachedFields(ctx context.Context, leadID uuid.UUID, calc *ScoreCalculation) error {
	breakdownJSON, _ := json.Marshal(calc.Breakdown)
	_, err := s.pool.Exec(ctx, `
		UPDATE guard_leads SET
			qualification_score = $2, score_breakdown = $3,
			application_probability = $4, hire_probability = $5,
			scored_at = $6, updated_at = now()
		WHERE lead_id = $1`,
		leadID, calc.Normalized, breakdownJSON,
		calc.ApplicationProbability, calc.HireProbability, calc.CreatedAt,
	)
	return err
}

// --- Scoring configuration ---

func (s *PostgresStore) GetScoringConfig(ctx context.Context, id uuid.UUID) (*ScoringConfig, error) {
	cfg := &ScoringConfig{}
	err := s.pool.QueryRow(ctx, `
		SELECT config_id, name, version, active, qualification_threshold, high_priority_threshold, created_at
		FROM scoring_configs WHERE config_id = $1`, id,
	).Scan(&cfg.ID, &cfg.Name, &cfg.Version, &cfg.Active,
		&cfg.QualificationThreshold, &cfg.HighPriorityThreshold, &cfg.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := s.loadFactors(ctx, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (s *PostgresStore) GetActiveScoringConfig(ctx context.Context) (*ScoringConfig, error) {
	cfg := &ScoringConfig{}
	err := s.pool.QueryRow(ctx, `
		SELECT config_id, name, version, active, qualification_threshold, high_priority_threshold, created_at
		FROM scoring_configs WHERE active ORDER BY version DESC LIMIT 1`,
	).Scan(&cfg.ID, &cfg.Name, &cfg.Version, &cfg.Active,
		&cfg.QualificationThreshold, &cfg.HighPriorityThreshold, &cfg.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := s.loadFactors(ctx, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (s *PostgresStore) ListScoringConfigs(ctx context.Context) ([]*ScoringConfig, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT config_id, name, version, active, qualification_threshold, high_priority_threshold, created_at
		FROM scoring_configs ORDER BY version DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var configs []*ScoringConfig
	for rows.Next() {
		cfg := &ScoringConfig{}
		if err := rows.Scan(&cfg.ID, &cfg.Name, &cfg.Version, &cfg.Active,
			&cfg.QualificationThreshold, &cfg.HighPriorityThreshold, &cfg.CreatedAt); err != nil {
			return nil, err
		}
		configs = append(configs, cfg)
	}
	return configs, rows.Err()
}

func (s *PostgresStore) loadFactors(ctx context.Context, cfg *ScoringConfig) error {
	rows, err := s.pool.Query(ctx, `
		SELECT factor_id, config_id, name, category, weight
		FROM scoring_factors WHERE config_id = $1
		ORDER BY category ASC`, cfg.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		f := Factor{}
		if err := rows.Scan(&f.ID, &f.ConfigID, &f.Name, &f.Category, &f.Weight); err != nil {
			return err
		}
		cfg.Factors = append(cfg.Factors, f)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for i := range cfg.Factors {
		ruleRows, err := s.pool.Query(ctx, `
			SELECT rule_id, factor_id, condition, points, description
			FROM scoring_rules WHERE factor_id = $1
			ORDER BY points DESC`, cfg.Factors[i].ID)
		if err != nil {
			return err
		}
		for ruleRows.Next() {
			r := Rule{}
			var condJSON []byte
			if err := ruleRows.Scan(&r.ID, &r.FactorID, &condJSON, &r.Points, &r.Description); err != nil {
				ruleRows.Close()
				return err
			}
			r.Condition = condJSON
			cfg.Factors[i].Rules = append(cfg.Factors[i].Rules, r)
		}
		if err := ruleRows.Err(); err != nil {
			ruleRows.Close()
			return err
		}
		ruleRows.Close()
	}
	return nil
}

func (s *PostgresStore) CreateScoringConfig(ctx context.Context, cfg *ScoringConfig) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if cfg.Version == 0 {
		if err := tx.QueryRow(ctx,
			`SELECT COALESCE(MAX(version), 0) + 1 FROM scoring_configs`,
		).Scan(&cfg.Version); err != nil {
			return err
		}
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO scoring_configs (name, version, active, qualification_threshold, high_priority_threshold)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING config_id, created_at`,
		cfg.Name, cfg.Version, cfg.Active, cfg.QualificationThreshold, cfg.HighPriorityThreshold,
	).Scan(&cfg.ID, &cfg.CreatedAt)
	if err != nil {
		return err
	}

	for i := range cfg.Factors {
		f := &cfg.Factors[i]
		f.ConfigID = cfg.ID
		err = tx.QueryRow(ctx, `
			INSERT INTO scoring_factors (config_id, name, category, weight)
			VALUES ($1, $2, $3, $4)
			RETURNING factor_id`,
			f.ConfigID, f.Name, f.Category, f.Weight,
		).Scan(&f.ID)
		if err != nil {
			return err
		}
		for j := range f.Rules {
			r := &f.Rules[j]
			r.FactorID = f.ID
			err = tx.QueryRow(ctx, `
				INSERT INTO scoring_rules (factor_id, condition, points, description)
				VALUES ($1, $2, $3, $4)
				RETURNING rule_id`,
				r.FactorID, []byte(r.Condition), r.Points, r.Description,
			).Scan(&r.ID)
			if err != nil {
				return err
			}
		}
	}

	return tx.Commit(ctx)
}

// ActivateScoringConfig deactivates the current active config and activates
// the given one. Replaced configs are never hard-deleted.
func (s *PostgresStore) ActivateScoringConfig(ctx context.Context, id uuid.UUID) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `UPDATE scoring_configs SET active = false WHERE active`); err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, `UPDATE scoring_configs SET active = true WHERE config_id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return NotFound("scoring config", id.String())
	}
	return tx.Commit(ctx)
}

// --- Calculations ---

func (s *PostgresStore) CreateScoreCalculation(ctx context.Context, calc *ScoreCalculation) error {
	breakdownJSON, _ := json.Marshal(calc.Breakdown)
	return s.pool.QueryRow(ctx, `
		INSERT INTO score_calculations (lead_id, config_id, config_version,
			raw_score, max_possible, normalized_score, qualified, priority, breakdown,
			application_probability, hire_probability, probability_source)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING calculation_id, created_at`,
		calc.LeadID, calc.ConfigID, calc.ConfigVersion,
		calc.RawScore, calc.MaxPossible, calc.Normalized, calc.Qualified, calc.Priority, breakdownJSON,
		calc.ApplicationProbability, calc.HireProbability, calc.ProbabilitySource,
	).Scan(&calc.ID, &calc.CreatedAt)
}

func (s *PostgresStore) GetLatestCalculation(ctx context.Context, leadID uuid.UUID) (*ScoreCalculation, error) {
	calc := &ScoreCalculation{}
	var breakdownJSON []byte
	err := s.pool.QueryRow(ctx, `
		SELECT calculation_id, lead_id, config_id, config_version,
			raw_score, max_possible, normalized_score, qualified, priority, breakdown,
			application_probability, hire_probability, probability_source, created_at
		FROM score_calculations WHERE lead_id = $1
		ORDER BY created_at DESC LIMIT 1`, leadID,
	).Scan(&calc.ID, &calc.LeadID, &calc.ConfigID, &calc.ConfigVersion,
		&calc.RawScore, &calc.MaxPossible, &calc.Normalized, &calc.Qualified, &calc.Priority, &breakdownJSON,
		&calc.ApplicationProbability, &calc.HireProbability, &calc.ProbabilitySource, &calc.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if breakdownJSON != nil {
		_ = json.Unmarshal(breakdownJSON, &calc.Breakdown)
	}
	return calc, nil
}

func (s *PostgresStore) GetHistoricalOutcomes(ctx context.Context, minScore, maxScore float64) ([]*OutcomeRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT l.lead_id, l.qualification_score, l.status
		FROM guard_leads l
		WHERE l.qualification_score BETWEEN $1 AND $2
		  AND l.status <> 'lead_captured'`, minScore, maxScore)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var outcomes []*OutcomeRecord
	for rows.Next() {
		o := &OutcomeRecord{}
		if err := rows.Scan(&o.LeadID, &o.Score, &o.Status); err != nil {
			return nil, err
		}
		outcomes = append(outcomes, o)
	}
	return outcomes, rows.Err()
}

func (s *PostgresStore) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}
	err := s.pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM guard_leads),
			(SELECT COUNT(*) FROM guard_leads WHERE qualification_score >= 60),
			(SELECT COUNT(*) FROM shift_assignments WHERE status = 'pending'),
			(SELECT COUNT(*) FROM shift_assignments WHERE status = 'confirmed'),
			(SELECT COALESCE(AVG(qualification_score), 0) FROM guard_leads WHERE qualification_score IS NOT NULL)`,
	).Scan(&stats.TotalLeads, &stats.QualifiedLeads,
		&stats.PendingAssignments, &stats.ConfirmedAssignments, &stats.AvgNormalizedScore)
	return stats, err
}

func scanLead(row pgx.Row) (*Lead, error) {
	lead := &Lead{}
	var email, phone, source, recruiterID sql.NullString
	var breakdownJSON []byte
	err := row.Scan(
		&lead.ID, &lead.Name, &email, &phone,
		&lead.YearsExperience, &lead.HasSecurityExperience, &lead.HasLicense, &lead.HasTransportation,
		&lead.WillingToRelocate, &lead.SalaryExpectation, &lead.CertificationCount,
		&lead.FullTime, &lead.PartTime, &lead.Weekends, &lead.Nights,
		&source, &lead.Referred, &lead.DistanceMiles,
		&lead.Status, &recruiterID,
		&lead.QualificationScore, &breakdownJSON, &lead.ApplicationProbability, &lead.HireProbability, &lead.ScoredAt,
		&lead.CreatedAt, &lead.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if email.Valid {
		lead.Email = email.String
	}
	if phone.Valid {
		lead.Phone = phone.String
	}
	if source.Valid {
		lead.Source = source.String
	}
	if recruiterID.Valid {
		lead.RecruiterID = recruiterID.String
	}
	lead.ScoreBreakdown = breakdownJSON
	return lead, nil
}
