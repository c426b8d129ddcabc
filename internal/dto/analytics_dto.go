package dto

import "time"

// SecurityAnalyticsResponse aggregates violation and session counts for the
// reporting dashboard.
type SecurityAnalyticsResponse struct {
	TotalSessions      int64            `json:"total_sessions"`
	SessionsByStatus   map[string]int64 `json:"sessions_by_status"`
	ViolationsByType   map[string]int64 `json:"violations_by_type"`
	ViolationsBySev    map[string]int64 `json:"violations_by_severity"`
	TotalViolations    int64            `json:"total_violations"`
	ComplianceRate     float64          `json:"compliance_rate"`
	GeneratedAt        time.Time        `json:"generated_at"`
	CacheHit           bool             `json:"cache_hit"`
}
