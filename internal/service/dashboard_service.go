package service

import (
	"context"
	"sort"

	"github.com/parisxmas/OxiDB/OxiSign/internal/models"
	"github.com/parisxmas/OxiDB/OxiSign/internal/store"
)

const (
	DefaultDashboardLimit = 50
	MaxDashboardLimit     = 100
)

type DashboardPage struct {
	Signatures []models.Signature `json:"signatures"`
	Total      int                `json:"total"`
	Limit      int                `json:"limit"`
	Offset     int                `json:"offset"`
}

type DashboardService struct {
	store store.Store
}

func NewDashboardService(st store.Store) *DashboardService {
	return &DashboardService{store: st}
}

// List pages through every record, newest first. Records created at the
// same instant come back in reverse insertion order.
func (s *DashboardService) List(ctx context.Context, limit, offset int) (*DashboardPage, error) {
	if limit == 0 {
		limit = DefaultDashboardLimit
	}
	if limit < 1 || limit > MaxDashboardLimit {
		return nil, invalid("limit must be between 1 and %d", MaxDashboardLimit)
	}
	if offset < 0 {
		return nil, invalid("offset must not be negative")
	}

	all, err := s.store.ListSignatures(ctx)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(all)-1; i < j; i, j = i+1, j-1 {
		all[i], all[j] = all[j], all[i]
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	page := &DashboardPage{Signatures: []models.Signature{}, Total: len(all), Limit: limit, Offset: offset}
	if offset < len(all) {
		end := offset + limit
		if end > len(all) {
			end = len(all)
		}
		page.Signatures = all[offset:end]
	}
	return page, nil
}
