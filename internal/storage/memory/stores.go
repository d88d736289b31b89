// Package memory provides in-memory implementations of the storage interfaces.
// They back paper trading runs without a database and every orchestrator test.
package memory

import "solana-token-trader/internal/storage"

// NewStores creates a full set of in-memory stores.
func NewStores() storage.Stores {
	return storage.Stores{
		Tokens:    NewTokenStore(),
		Risk:      NewRiskAssessmentStore(),
		AI:        NewAIAnalysisStore(),
		Decisions: NewDecisionStore(),
		Positions: NewPositionStore(),
		Trades:    NewTradeStore(),
		Prices:    NewPriceHistoryStore(),
		Stats:     NewStatisticsStore(),
		Snapshots: NewStatisticsSnapshotStore(),
	}
}
