package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"solana-token-trader/internal/domain"
	"solana-token-trader/internal/storage"
)

// RiskAssessmentStore implements storage.RiskAssessmentStore using PostgreSQL.
type RiskAssessmentStore struct {
	pool *Pool
}

// NewRiskAssessmentStore creates a new RiskAssessmentStore.
func NewRiskAssessmentStore(pool *Pool) *RiskAssessmentStore {
	return &RiskAssessmentStore{pool: pool}
}

var _ storage.RiskAssessmentStore = (*RiskAssessmentStore)(nil)

// Insert appends an assessment. Checks are stored as JSONB.
func (s *RiskAssessmentStore) Insert(ctx context.Context, a *domain.RiskAssessment) (err error) {
	defer observe("risk_assessments.insert", time.Now(), &err)

	if a == nil || a.TokenAddress == "" {
		return storage.ErrInvalidInput
	}
	checks := a.Checks
	if checks == nil {
		checks = map[string]domain.CheckResult{}
	}
	checksJSON, err := json.Marshal(checks)
	if err != nil {
		return fmt.Errorf("marshal checks: %w", err)
	}

	query := `
		INSERT INTO risk_assessments (
			token_address, passes, reason, failed_check, risk_score, risk_level,
			liquidity_usd, holders_count, top_holders_concentration, liquidity_locked_usd,
			contract_verified, honeypot_risk, max_tax, age_hours, age_known,
			checks, safety_source, safety_simulated, assessed_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10,
			$11, $12, $13, $14, $15,
			$16, $17, $18, $19
		)
	`

	_, err = s.pool.Exec(ctx, query,
		a.TokenAddress, a.Passes, a.Reason, a.FailedCheck, a.RiskScore, string(a.RiskLevel),
		a.LiquidityUSD, a.HoldersCount, a.TopHoldersConcentration, a.LiquidityLockedUSD,
		a.ContractVerified, a.HoneypotRisk, a.MaxTax, a.AgeHours, a.AgeKnown,
		checksJSON, a.SafetySource, a.SafetySimulated, a.AssessedAt,
	)
	if err != nil {
		return fmt.Errorf("insert risk assessment: %w", err)
	}
	return nil
}

// GetLatest retrieves the newest assessment for a token. Returns ErrNotFound if none.
func (s *RiskAssessmentStore) GetLatest(ctx context.Context, address string) (_ *domain.RiskAssessment, err error) {
	defer observe("risk_assessments.get_latest", time.Now(), &err)

	query := `
		SELECT
			token_address, passes, reason, failed_check, risk_score, risk_level,
			liquidity_usd, holders_count, top_holders_concentration, liquidity_locked_usd,
			contract_verified, honeypot_risk, max_tax, age_hours, age_known,
			checks, safety_source, safety_simulated, assessed_at
		FROM risk_assessments
		WHERE token_address = $1
		ORDER BY assessed_at DESC, id DESC
		LIMIT 1
	`

	var a domain.RiskAssessment
	var level string
	var checksJSON []byte
	err = s.pool.QueryRow(ctx, query, address).Scan(
		&a.TokenAddress, &a.Passes, &a.Reason, &a.FailedCheck, &a.RiskScore, &level,
		&a.LiquidityUSD, &a.HoldersCount, &a.TopHoldersConcentration, &a.LiquidityLockedUSD,
		&a.ContractVerified, &a.HoneypotRisk, &a.MaxTax, &a.AgeHours, &a.AgeKnown,
		&checksJSON, &a.SafetySource, &a.SafetySimulated, &a.AssessedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get latest risk assessment: %w", err)
	}
	a.RiskLevel = domain.RiskLevel(level)
	a.AssessedAt = a.AssessedAt.UTC()
	if len(checksJSON) > 0 {
		if err := json.Unmarshal(checksJSON, &a.Checks); err != nil {
			return nil, fmt.Errorf("unmarshal checks: %w", err)
		}
	}
	return &a, nil
}

// AIAnalysisStore implements storage.AIAnalysisStore using PostgreSQL.
type AIAnalysisStore struct {
	pool *Pool
}

// NewAIAnalysisStore creates a new AIAnalysisStore.
func NewAIAnalysisStore(pool *Pool) *AIAnalysisStore {
	return &AIAnalysisStore{pool: pool}
}

var _ storage.AIAnalysisStore = (*AIAnalysisStore)(nil)

// Insert appends an evaluation.
func (s *AIAnalysisStore) Insert(ctx context.Context, e *domain.AIEvaluation) (err error) {
	defer observe("ai_analyses.insert", time.Now(), &err)

	if e == nil || e.TokenAddress == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO ai_analyses (
			token_address, ai_confidence, risk_score, recommendation, price_prediction,
			key_factors, trading_insights, confidence_reasons, risk_reasons,
			is_default, evaluated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err = s.pool.Exec(ctx, query,
		e.TokenAddress, e.AIConfidence, e.RiskScore, string(e.Recommendation), e.PricePrediction,
		nonNil(e.KeyFactors), nonNil(e.TradingInsights), nonNil(e.ConfidenceReasons), nonNil(e.RiskReasons),
		e.Default, e.EvaluatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert ai analysis: %w", err)
	}
	return nil
}

// GetByToken retrieves up to limit evaluations for a token, newest first.
func (s *AIAnalysisStore) GetByToken(ctx context.Context, address string, limit int) (_ []*domain.AIEvaluation, err error) {
	defer observe("ai_analyses.get_by_token", time.Now(), &err)

	query := `
		SELECT
			token_address, ai_confidence, risk_score, recommendation, price_prediction,
			key_factors, trading_insights, confidence_reasons, risk_reasons,
			is_default, evaluated_at
		FROM ai_analyses
		WHERE token_address = $1
		ORDER BY evaluated_at DESC, id DESC
		LIMIT $2
	`

	rows, err := s.pool.Query(ctx, query, address, limitOrAll(limit))
	if err != nil {
		return nil, fmt.Errorf("get ai analyses by token: %w", err)
	}
	defer rows.Close()

	var result []*domain.AIEvaluation
	for rows.Next() {
		var e domain.AIEvaluation
		var rec string
		err := rows.Scan(
			&e.TokenAddress, &e.AIConfidence, &e.RiskScore, &rec, &e.PricePrediction,
			&e.KeyFactors, &e.TradingInsights, &e.ConfidenceReasons, &e.RiskReasons,
			&e.Default, &e.EvaluatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan ai analysis row: %w", err)
		}
		e.Recommendation = domain.ParseRecommendation(rec)
		e.EvaluatedAt = e.EvaluatedAt.UTC()
		result = append(result, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ai analysis rows: %w", err)
	}
	return result, nil
}

// DecisionStore implements storage.DecisionStore using PostgreSQL.
type DecisionStore struct {
	pool *Pool
}

// NewDecisionStore creates a new DecisionStore.
func NewDecisionStore(pool *Pool) *DecisionStore {
	return &DecisionStore{pool: pool}
}

var _ storage.DecisionStore = (*DecisionStore)(nil)

const decisionColumns = `
	id, token_address, token_symbol, action, confidence, reasons, position_size,
	price_target, stop_loss, consensus, time_horizon, strategy_name, created_at
`

// Insert adds a decision. Returns ErrDuplicateKey if the ID exists.
func (s *DecisionStore) Insert(ctx context.Context, d *domain.TradingDecision) (err error) {
	defer observe("decisions.insert", time.Now(), &err)

	if d == nil || d.ID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO decisions (` + decisionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err = s.pool.Exec(ctx, query,
		d.ID, d.TokenAddress, d.TokenSymbol, string(d.Action), d.Confidence, nonNil(d.Reasons), d.PositionSize,
		d.PriceTarget, d.StopLoss, d.Consensus, d.TimeHorizon, d.StrategyName, d.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert decision: %w", err)
	}
	return nil
}

// GetByID retrieves a decision. Returns ErrNotFound if not exists.
func (s *DecisionStore) GetByID(ctx context.Context, id string) (_ *domain.TradingDecision, err error) {
	defer observe("decisions.get", time.Now(), &err)

	query := `SELECT ` + decisionColumns + ` FROM decisions WHERE id = $1`

	d, err := scanDecision(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get decision by id: %w", err)
	}
	return d, nil
}

// ListRecent retrieves up to limit decisions, newest first.
func (s *DecisionStore) ListRecent(ctx context.Context, limit int) (_ []*domain.TradingDecision, err error) {
	defer observe("decisions.list_recent", time.Now(), &err)

	query := `
		SELECT ` + decisionColumns + `
		FROM decisions
		ORDER BY created_at DESC, id ASC
		LIMIT $1
	`

	rows, err := s.pool.Query(ctx, query, limitOrAll(limit))
	if err != nil {
		return nil, fmt.Errorf("list recent decisions: %w", err)
	}
	defer rows.Close()

	var result []*domain.TradingDecision
	for rows.Next() {
		d, err := scanDecision(rows)
		if err != nil {
			return nil, fmt.Errorf("scan decision row: %w", err)
		}
		result = append(result, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate decision rows: %w", err)
	}
	return result, nil
}

func scanDecision(row pgx.Row) (*domain.TradingDecision, error) {
	var d domain.TradingDecision
	var action string

	err := row.Scan(
		&d.ID, &d.TokenAddress, &d.TokenSymbol, &action, &d.Confidence, &d.Reasons, &d.PositionSize,
		&d.PriceTarget, &d.StopLoss, &d.Consensus, &d.TimeHorizon, &d.StrategyName, &d.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	d.Action = domain.Action(action)
	d.CreatedAt = d.CreatedAt.UTC()
	return &d, nil
}

// nonNil keeps NOT NULL array columns from receiving NULL.
func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
