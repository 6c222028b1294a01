// Package service computes lead and follow-up analytics from current state.
package service

import (
	"context"
	"strconv"
	"strings"

	"crm_backend/internal/analytics/repository"
	"crm_backend/internal/analytics/transport"
	leaddomain "crm_backend/internal/leads/domain"
	"crm_backend/platform/apperr"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	msgAgentIDRequired = "agentId is required"
	msgInvalidAgentID  = "invalid agentId"
	msgAgentNotFound   = "Agent not found"
)

type Service struct {
	repo repository.Reader
}

func New(repo repository.Reader) *Service {
	return &Service{repo: repo}
}

func (s *Service) Summary(ctx context.Context) (transport.SummaryResponse, error) {
	return s.aggregate(ctx, nil)
}

// AgentPerformance is Summary restricted to leads assigned to, and follow-ups
// owned by, one agent.
func (s *Service) AgentPerformance(ctx context.Context, req transport.AgentPerformanceRequest) (transport.AgentPerformanceResponse, error) {
	raw := strings.TrimSpace(req.AgentID)
	if raw == "" {
		return transport.AgentPerformanceResponse{}, apperr.Validation(msgAgentIDRequired)
	}
	agentID, err := uuid.Parse(raw)
	if err != nil {
		return transport.AgentPerformanceResponse{}, apperr.Validation(msgInvalidAgentID)
	}

	exists, err := s.repo.AgentExists(ctx, agentID)
	if err != nil {
		return transport.AgentPerformanceResponse{}, err
	}
	if !exists {
		return transport.AgentPerformanceResponse{}, apperr.NotFound(msgAgentNotFound)
	}

	summary, err := s.aggregate(ctx, &agentID)
	if err != nil {
		return transport.AgentPerformanceResponse{}, err
	}
	return transport.AgentPerformanceResponse{AgentID: agentID.String(), SummaryResponse: summary}, nil
}

func (s *Service) aggregate(ctx context.Context, agentID *uuid.UUID) (transport.SummaryResponse, error) {
	var (
		byStatus  map[string]int
		followUps repository.FollowUpCounts
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		byStatus, err = s.repo.CountLeadsByStatus(gctx, agentID)
		return err
	})
	g.Go(func() error {
		var err error
		followUps, err = s.repo.CountFollowUps(gctx, agentID)
		return err
	})
	if err := g.Wait(); err != nil {
		return transport.SummaryResponse{}, err
	}

	return BuildSummary(byStatus, followUps), nil
}

// BuildSummary shapes raw counts into the response. Statuses missing from
// byStatus count as zero; unknown statuses still count toward the total.
func BuildSummary(byStatus map[string]int, followUps repository.FollowUpCounts) transport.SummaryResponse {
	total := 0
	for _, n := range byStatus {
		total += n
	}

	statuses := transport.LeadsByStatus{
		New:       byStatus[string(leaddomain.StatusNew)],
		Contacted: byStatus[string(leaddomain.StatusContacted)],
		Converted: byStatus[string(leaddomain.StatusConverted)],
		Lost:      byStatus[string(leaddomain.StatusLost)],
	}

	return transport.SummaryResponse{
		TotalLeads:           total,
		LeadsByStatus:        statuses,
		ConversionPercentage: ConversionPercentage(statuses.Converted, total),
		FollowUpStats: transport.FollowUpStats{
			Total:     followUps.Total,
			Completed: followUps.Completed,
			Pending:   followUps.Total - followUps.Completed,
		},
	}
}

// ConversionPercentage formats converted/total as "33.33%"; zero total yields "0.00%".
func ConversionPercentage(converted, total int) string {
	if total <= 0 {
		return "0.00%"
	}
	pct := float64(converted) / float64(total) * 100
	return strconv.FormatFloat(pct, 'f', 2, 64) + "%"
}
