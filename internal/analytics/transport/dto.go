package transport

type AgentPerformanceRequest struct {
	AgentID string `form:"agentId"`
}

type LeadsByStatus struct {
	New       int `json:"New"`
	Contacted int `json:"Contacted"`
	Converted int `json:"Converted"`
	Lost      int `json:"Lost"`
}

type FollowUpStats struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Pending   int `json:"pending"`
}

type SummaryResponse struct {
	TotalLeads           int           `json:"totalLeads"`
	LeadsByStatus        LeadsByStatus `json:"leadsByStatus"`
	ConversionPercentage string        `json:"conversionPercentage"`
	FollowUpStats        FollowUpStats `json:"followUpStats"`
}

type AgentPerformanceResponse struct {
	AgentID string `json:"agentId"`
	SummaryResponse
}
