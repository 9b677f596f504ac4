package service

import (
	"context"

	"github.com/talentgate/talentgate-backend/internal/model"
	"github.com/talentgate/talentgate-backend/internal/repository"
)

// DashboardData consolidates all metrics for the recruiter dashboard.
type DashboardData struct {
	TotalCandidates         int                             `json:"total_candidates"`
	TotalJobs               int                             `json:"total_jobs"`
	TotalApplications       int                             `json:"total_applications"`
	TotalSubmissions        int                             `json:"total_submissions"`
	ApplicationStatusCounts map[model.ApplicationStatus]int `json:"application_status_counts"`
	RecentJobResults        []repository.DashboardJobResult `json:"recent_job_results"`
}

// DashboardService handles recruiter dashboard business logic.
type DashboardService struct {
	repo *repository.DashboardRepository
}

// NewDashboardService creates a new DashboardService.
func NewDashboardService(repo *repository.DashboardRepository) *DashboardService {
	return &DashboardService{repo: repo}
}

// GetDashboardData fetches all dashboard metrics.
func (s *DashboardService) GetDashboardData(ctx context.Context) (*DashboardData, error) {
	candidates, jobs, applications, submissions, err := s.repo.GetSummaryCounts(ctx)
	if err != nil {
		return nil, err
	}

	statusCounts, err := s.repo.GetApplicationStatusCounts(ctx)
	if err != nil {
		return nil, err
	}

	recent, err := s.repo.GetRecentJobResults(ctx, 5)
	if err != nil {
		return nil, err
	}

	return &DashboardData{
		TotalCandidates:         candidates,
		TotalJobs:               jobs,
		TotalApplications:       applications,
		TotalSubmissions:        submissions,
		ApplicationStatusCounts: statusCounts,
		RecentJobResults:        recent,
	}, nil
}
