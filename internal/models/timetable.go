package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// Timetable is a saved faculty schedule. Schedule holds the level-keyed
// bookings as JSONB.
type Timetable struct {
	ID            string         `db:"id" json:"id"`
	Faculty       string         `db:"faculty" json:"faculty"`
	Semester      string         `db:"semester" json:"semester"`
	Session       string         `db:"session" json:"session"`
	Schedule      types.JSONText `db:"schedule" json:"schedule"`
	Score         float64        `db:"score" json:"score"`
	ConflictCount int            `db:"conflict_count" json:"conflict_count"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updated_at"`
}

// TimetableSummary is the list projection without the schedule body.
type TimetableSummary struct {
	ID            string    `db:"id" json:"id"`
	Faculty       string    `db:"faculty" json:"faculty"`
	Semester      string    `db:"semester" json:"semester"`
	Session       string    `db:"session" json:"session"`
	Score         float64   `db:"score" json:"score"`
	ConflictCount int       `db:"conflict_count" json:"conflict_count"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// TimetableFilter narrows saved timetable listings.
type TimetableFilter struct {
	Faculty  string
	Semester string
	Session  string
	Page     int
	PageSize int
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}

// SystemMetrics is the JSON snapshot served next to the Prometheus endpoint.
type SystemMetrics struct {
	CacheHitRatio            float64          `json:"cache_hit_ratio"`
	CacheHits                uint64           `json:"cache_hits"`
	CacheMisses              uint64           `json:"cache_misses"`
	RequestsTotal            uint64           `json:"requests_total"`
	AverageRequestDurationMs float64          `json:"average_request_duration_ms"`
	DBQueryCount             uint64           `json:"db_query_count"`
	AverageDBQueryDurationMs float64          `json:"average_db_query_duration_ms"`
	MoveOutcomes             map[string]int64 `json:"move_outcomes"`
	ActiveSessions           int              `json:"active_sessions"`
	Goroutines               int              `json:"goroutines"`
	GeneratedAt              time.Time        `json:"generated_at"`
}
