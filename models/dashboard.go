package models

type GlobalStats struct {
	Users        CountPair `json:"users"`
	Competitions CountPair `json:"competitions"`
	Teams        CountPair `json:"teams"`
	Matches      CountPair `json:"matches"`
}

// CountPair: Total считает все записи, Subset только свежие, активные или предстоящие.
type CountPair struct {
	Total  int64 `json:"total"`
	Subset int64 `json:"subset"`
}

type SearchResults struct {
	Competitions []Competition `json:"competitions"`
	Teams        []Team        `json:"teams"`
	Users        []UserSummary `json:"users"`
}

const (
	HealthHealthy   = "healthy"
	HealthUnhealthy = "unhealthy"
)

type CollectionHealth struct {
	Name      string `json:"name"`
	Documents int64  `json:"documents"`
	Indexes   int    `json:"indexes"`
}

type HealthStatus struct {
	Status      string             `json:"status"`
	Collections []CollectionHealth `json:"collections"`
	Errors      []string           `json:"errors,omitempty"`
}
