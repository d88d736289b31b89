package memory

import (
	"context"
	"sort"
	"sync"

	"solana-token-trader/internal/domain"
	"solana-token-trader/internal/storage"
)

// RiskAssessmentStore is an in-memory implementation of storage.RiskAssessmentStore.
type RiskAssessmentStore struct {
	mu   sync.RWMutex
	data map[string][]*domain.RiskAssessment // keyed by token address, insertion order
}

// NewRiskAssessmentStore creates a new in-memory risk assessment store.
func NewRiskAssessmentStore() *RiskAssessmentStore {
	return &RiskAssessmentStore{
		data: make(map[string][]*domain.RiskAssessment),
	}
}

// Insert appends an assessment.
func (s *RiskAssessmentStore) Insert(_ context.Context, a *domain.RiskAssessment) error {
	if a == nil || a.TokenAddress == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[a.TokenAddress] = append(s.data[a.TokenAddress], cloneAssessment(a))
	return nil
}

// GetLatest retrieves the newest assessment for a token. Returns ErrNotFound if none.
func (s *RiskAssessmentStore) GetLatest(_ context.Context, address string) (*domain.RiskAssessment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := s.data[address]
	if len(list) == 0 {
		return nil, storage.ErrNotFound
	}

	latest := list[0]
	for _, a := range list[1:] {
		if !a.AssessedAt.Before(latest.AssessedAt) {
			latest = a
		}
	}
	return cloneAssessment(latest), nil
}

var _ storage.RiskAssessmentStore = (*RiskAssessmentStore)(nil)

func cloneAssessment(a *domain.RiskAssessment) *domain.RiskAssessment {
	c := *a
	if a.Checks != nil {
		c.Checks = make(map[string]domain.CheckResult, len(a.Checks))
		for k, v := range a.Checks {
			c.Checks[k] = v
		}
	}
	return &c
}

// AIAnalysisStore is an in-memory implementation of storage.AIAnalysisStore.
type AIAnalysisStore struct {
	mu   sync.RWMutex
	data map[string][]*domain.AIEvaluation // keyed by token address
}

// NewAIAnalysisStore creates a new in-memory AI analysis store.
func NewAIAnalysisStore() *AIAnalysisStore {
	return &AIAnalysisStore{
		data: make(map[string][]*domain.AIEvaluation),
	}
}

// Insert appends an evaluation.
func (s *AIAnalysisStore) Insert(_ context.Context, e *domain.AIEvaluation) error {
	if e == nil || e.TokenAddress == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[e.TokenAddress] = append(s.data[e.TokenAddress], cloneEvaluation(e))
	return nil
}

// GetByToken retrieves up to limit evaluations for a token, newest first.
func (s *AIAnalysisStore) GetByToken(_ context.Context, address string, limit int) ([]*domain.AIEvaluation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := s.data[address]
	result := make([]*domain.AIEvaluation, 0, len(list))
	for _, e := range list {
		result = append(result, cloneEvaluation(e))
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].EvaluatedAt.After(result[j].EvaluatedAt)
	})

	return limitSlice(result, limit), nil
}

var _ storage.AIAnalysisStore = (*AIAnalysisStore)(nil)

func cloneEvaluation(e *domain.AIEvaluation) *domain.AIEvaluation {
	c := *e
	c.KeyFactors = append([]string(nil), e.KeyFactors...)
	c.TradingInsights = append([]string(nil), e.TradingInsights...)
	c.ConfidenceReasons = append([]string(nil), e.ConfidenceReasons...)
	c.RiskReasons = append([]string(nil), e.RiskReasons...)
	return &c
}

// DecisionStore is an in-memory implementation of storage.DecisionStore.
type DecisionStore struct {
	mu    sync.RWMutex
	data  map[string]*domain.TradingDecision // keyed by decision ID
	order []string                           // insertion order
}

// NewDecisionStore creates a new in-memory decision store.
func NewDecisionStore() *DecisionStore {
	return &DecisionStore{
		data: make(map[string]*domain.TradingDecision),
	}
}

// Insert adds a decision. Returns ErrDuplicateKey if the ID exists.
func (s *DecisionStore) Insert(_ context.Context, d *domain.TradingDecision) error {
	if d == nil || d.ID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[d.ID]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[d.ID] = cloneDecision(d)
	s.order = append(s.order, d.ID)
	return nil
}

// GetByID retrieves a decision. Returns ErrNotFound if not exists.
func (s *DecisionStore) GetByID(_ context.Context, id string) (*domain.TradingDecision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, exists := s.data[id]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return cloneDecision(d), nil
}

// ListRecent retrieves up to limit decisions, newest first.
func (s *DecisionStore) ListRecent(_ context.Context, limit int) ([]*domain.TradingDecision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.TradingDecision, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		result = append(result, cloneDecision(s.data[s.order[i]]))
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	return limitSlice(result, limit), nil
}

var _ storage.DecisionStore = (*DecisionStore)(nil)

func cloneDecision(d *domain.TradingDecision) *domain.TradingDecision {
	c := *d
	c.Reasons = append([]string(nil), d.Reasons...)
	c.PriceTarget = clonePtr(d.PriceTarget)
	c.StopLoss = clonePtr(d.StopLoss)
	return &c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
