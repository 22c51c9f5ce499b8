package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"earnflow/internal/cache"
	"earnflow/internal/model"
	"earnflow/internal/repository"
)

var (
	ErrOpportunityNotFound = errors.New("opportunity not found")
	ErrInvalidSort         = errors.New("invalid sort key")
	ErrInvalidKind         = errors.New("invalid opportunity kind")
)

// Sort keys accepted by CatalogService.List
const (
	SortRewardHigh    = "reward-high"
	SortRewardLow     = "reward-low"
	SortTimeLow       = "time-low"
	SortTimeHigh      = "time-high"
	SortQuestionsLow  = "questions-low"
	SortQuestionsHigh = "questions-high"
)

// CatalogService lists and looks up tasks and surveys
type CatalogService struct {
	repo        repository.OpportunityRepo
	completions cache.CompletionCache
}

// NewCatalogService creates a new catalog service. completions may be nil,
// in which case nothing is marked completed.
func NewCatalogService(repo repository.OpportunityRepo, completions cache.CompletionCache) *CatalogService {
	return &CatalogService{repo: repo, completions: completions}
}

// List filters the catalog by category and search term and orders it by
// q.SortBy. Categories are collected before filtering, in first-seen order.
func (s *CatalogService) List(ctx context.Context, q model.CatalogQuery) (*model.CatalogPage, error) {
	if q.Kind != "" && q.Kind != model.KindTask && q.Kind != model.KindSurvey {
		return nil, fmt.Errorf("%w: %s", ErrInvalidKind, q.Kind)
	}
	less, err := sortFunc(q.SortBy)
	if err != nil {
		return nil, err
	}

	all, err := s.repo.List(ctx, q.Kind)
	if err != nil {
		return nil, fmt.Errorf("failed to list opportunities: %w", err)
	}

	categories := make([]string, 0)
	seen := make(map[string]bool)
	for _, o := range all {
		if !seen[o.Category] {
			seen[o.Category] = true
			categories = append(categories, o.Category)
		}
	}

	done, err := s.completedBy(ctx, q.UserID)
	if err != nil {
		return nil, err
	}

	search := strings.ToLower(strings.TrimSpace(q.Search))
	items := make([]model.OpportunitySummary, 0, len(all))
	for _, o := range all {
		if q.Category != "" && q.Category != "all" && o.Category != q.Category {
			continue
		}
		if search != "" && !matchesSearch(o, search) {
			continue
		}
		item := o.Summary()
		item.Completed = done[o.ID]
		items = append(items, item)
	}

	sort.SliceStable(items, func(i, j int) bool {
		return less(items[i], items[j])
	})

	return &model.CatalogPage{
		Items:      items,
		Categories: categories,
		Total:      len(items),
	}, nil
}

// Get returns one opportunity with its questions
func (s *CatalogService) Get(ctx context.Context, id string) (*model.Opportunity, error) {
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get opportunity: %w", err)
	}
	if o == nil {
		return nil, ErrOpportunityNotFound
	}
	return o, nil
}

// Count returns the catalog size
func (s *CatalogService) Count(ctx context.Context) (int64, error) {
	return s.repo.Count(ctx)
}

func (s *CatalogService) completedBy(ctx context.Context, userID string) (map[string]bool, error) {
	if userID == "" || s.completions == nil {
		return nil, nil
	}
	ids, err := s.completions.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list completions: %w", err)
	}
	done := make(map[string]bool, len(ids))
	for _, id := range ids {
		done[id] = true
	}
	return done, nil
}

func matchesSearch(o *model.Opportunity, term string) bool {
	return strings.Contains(strings.ToLower(o.Title), term) ||
		strings.Contains(strings.ToLower(o.Category), term) ||
		strings.Contains(strings.ToLower(o.Description), term)
}

func sortFunc(key string) (func(a, b model.OpportunitySummary) bool, error) {
	switch key {
	case "", SortRewardHigh:
		return func(a, b model.OpportunitySummary) bool { return a.Reward > b.Reward }, nil
	case SortRewardLow:
		return func(a, b model.OpportunitySummary) bool { return a.Reward < b.Reward }, nil
	case SortTimeLow:
		return func(a, b model.OpportunitySummary) bool { return a.EstimatedMinutes < b.EstimatedMinutes }, nil
	case SortTimeHigh:
		return func(a, b model.OpportunitySummary) bool { return a.EstimatedMinutes > b.EstimatedMinutes }, nil
	case SortQuestionsLow:
		return func(a, b model.OpportunitySummary) bool { return a.QuestionCount < b.QuestionCount }, nil
	case SortQuestionsHigh:
		return func(a, b model.OpportunitySummary) bool { return a.QuestionCount > b.QuestionCount }, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrInvalidSort, key)
}
