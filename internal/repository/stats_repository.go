package repository

import (
	"context"

	"github.com/spec-kit/compliance-portal/internal/domain"
)

// StatsRepository computes dashboard counters.
type StatsRepository interface {
	ComplianceStats(ctx context.Context) (domain.ComplianceStats, error)
}

type statsRepository struct {
	db DBTX
}

// NewStatsRepository builds the repository.
func NewStatsRepository(db DBTX) StatsRepository {
	return &statsRepository{db: db}
}

func (r *statsRepository) ComplianceStats(ctx context.Context) (domain.ComplianceStats, error) {
	const query = `
        SELECT
            (SELECT COUNT(*) FROM compliance_rules),
            (SELECT COUNT(*) FROM compliance_rules WHERE confidence=$1),
            (SELECT COUNT(*) FROM compliance_states),
            (SELECT COUNT(*) FROM compliance_alerts WHERE status=$2)`
	var stats domain.ComplianceStats
	err := r.db.QueryRow(ctx, query, domain.ConfidenceHigh, domain.AlertStatusPending).Scan(
		&stats.TotalRules,
		&stats.HighConfidence,
		&stats.TotalStates,
		&stats.PendingAlerts,
	)
	return stats, err
}
