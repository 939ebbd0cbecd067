package transport

import "time"

type ActivityResponse struct {
	ID           string    `json:"id"`
	CustomerID   string    `json:"customerId"`
	ActivityType string    `json:"activityType"`
	Description  string    `json:"description"`
	StageBefore  string    `json:"stageBefore"`
	StageAfter   string    `json:"stageAfter"`
	LabelBefore  string    `json:"labelBefore"`
	LabelAfter   string    `json:"labelAfter"`
	ScoreDelta   int       `json:"scoreDelta"`
	CreatedAt    time.Time `json:"createdAt"`
}

type ListActivitiesResponse struct {
	Activities []ActivityResponse `json:"activities"`
}

type LeadStateResponse struct {
	Stage string `json:"stage"`
	Label string `json:"label"`
	Score int    `json:"score"`
}

type ConsistencyResponse struct {
	CustomerID    string            `json:"customerId"`
	Consistent    bool              `json:"consistent"`
	Stored        LeadStateResponse `json:"stored"`
	Folded        LeadStateResponse `json:"folded"`
	ActivityCount int               `json:"activityCount"`
}
