package types

// InsightsRequest is the request body accepted by the insights endpoint.
// Days defaults to the standard 30-day window when omitted.
type InsightsRequest struct {
	Repos []string `json:"repos" binding:"required"`
	Days  int      `json:"days"`
}
