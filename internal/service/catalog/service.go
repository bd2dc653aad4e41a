// Package catalog serves the read-mostly lab service reference data with a
// short-lived in-process cache in front of the store.
package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/quantalab/lims-api/internal/model"
	"github.com/quantalab/lims-api/internal/repository"
	apperrors "github.com/quantalab/lims-api/pkg/errors"
)

const (
	cacheTTL     = 5 * time.Minute
	cacheCleanup = 10 * time.Minute
)

type Service struct {
	repo  repository.ServiceRepository
	cache *gocache.Cache
}

func NewService(repo repository.ServiceRepository) *Service {
	return &Service{
		repo:  repo,
		cache: gocache.New(cacheTTL, cacheCleanup),
	}
}

func (s *Service) Create(ctx context.Context, req *model.CreateServiceRequest) (*model.Service, error) {
	service := &model.Service{
		Name:     req.Name,
		Category: req.Category,
		Price:    req.Price,
		Active:   true,
	}
	if err := s.repo.Create(ctx, service); err != nil {
		return nil, fmt.Errorf("failed to create service: %w", err)
	}
	s.cache.Set(service.ID.String(), service, gocache.DefaultExpiration)
	return service, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Service, error) {
	if cached, ok := s.cache.Get(id.String()); ok {
		return cached.(*model.Service), nil
	}

	service, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cache.Set(id.String(), service, gocache.DefaultExpiration)
	return service, nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, req *model.UpdateServiceRequest) (*model.Service, error) {
	service, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		service.Name = *req.Name
	}
	if req.Category != nil {
		service.Category = *req.Category
	}
	if req.Price != nil {
		service.Price = *req.Price
	}
	if req.Active != nil {
		service.Active = *req.Active
	}

	if err := s.repo.Update(ctx, service); err != nil {
		return nil, err
	}
	s.cache.Set(id.String(), service, gocache.DefaultExpiration)
	return service, nil
}

func (s *Service) List(ctx context.Context, activeOnly bool) ([]*model.Service, error) {
	return s.repo.List(ctx, activeOnly)
}

// TotalPrice sums the prices of the given services. Every id must resolve
// to an active catalog entry.
func (s *Service) TotalPrice(ctx context.Context, ids []uuid.UUID) (float64, error) {
	services, err := s.repo.GetMany(ctx, ids)
	if err != nil {
		return 0, err
	}

	byID := make(map[uuid.UUID]*model.Service, len(services))
	for _, svc := range services {
		byID[svc.ID] = svc
	}

	var total float64
	for _, id := range ids {
		svc, ok := byID[id]
		if !ok {
			return 0, apperrors.NewValidation(fmt.Sprintf("unknown service: %s", id))
		}
		if !svc.Active {
			return 0, apperrors.NewValidation(fmt.Sprintf("service %q is not active", svc.Name))
		}
		total += svc.Price
	}
	return total, nil
}
