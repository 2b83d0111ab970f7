package app

import (
	"context"

	"github.com/candelahq/booking-engine/internal/domain"
)

// ResourceRepository is the storage surface of the registry.
type ResourceRepository interface {
	CreateResource(ctx context.Context, res domain.Resource) error
	GetResource(ctx context.Context, tenantID, resourceID string) (domain.Resource, error)
	ListResources(ctx context.Context, tenantID string, kind domain.ResourceKind) ([]domain.Resource, error)
	UpdateResourceStatus(ctx context.Context, tenantID, resourceID string, status domain.ResourceStatus) error
}

// RegistryService manages the catalog of bookable resources.
type RegistryService struct {
	repo ResourceRepository
}

func NewRegistryService(repo ResourceRepository) *RegistryService {
	return &RegistryService{repo: repo}
}

type CreateResourceInput struct {
	Name               string
	Kind               domain.ResourceKind
	CapacityModel      domain.CapacityModel
	DailyCapacityUnits float64
}

func (s *RegistryService) CreateResource(ctx context.Context, tenantID string, in CreateResourceInput) (domain.Resource, error) {
	if in.Name == "" {
		return domain.Resource{}, domain.ErrResourceNameRequired
	}
	if !domain.ValidKind(in.Kind) {
		return domain.Resource{}, domain.ErrInvalidKind
	}
	if !domain.ValidCapacityModel(in.CapacityModel) {
		return domain.Resource{}, domain.ErrInvalidCapacityModel
	}

	units := in.DailyCapacityUnits
	switch in.CapacityModel {
	case domain.CapacityThroughput:
		if units <= 0 {
			return domain.Resource{}, domain.ErrInvalidCapacityUnits
		}
	case domain.CapacityExclusive:
		// Units carry no meaning for exclusive occupancy.
		units = 0
	}

	res := domain.Resource{
		ID:                 newID(),
		TenantID:           tenantID,
		Name:               in.Name,
		Kind:               in.Kind,
		CapacityModel:      in.CapacityModel,
		DailyCapacityUnits: units,
		Status:             domain.StatusAvailable,
	}

	if err := s.repo.CreateResource(ctx, res); err != nil {
		return domain.Resource{}, err
	}
	return res, nil
}

func (s *RegistryService) GetResource(ctx context.Context, tenantID, resourceID string) (domain.Resource, error) {
	return s.repo.GetResource(ctx, tenantID, resourceID)
}

func (s *RegistryService) ListResources(ctx context.Context, tenantID string, kind domain.ResourceKind) ([]domain.Resource, error) {
	if kind != "" && !domain.ValidKind(kind) {
		return nil, domain.ErrInvalidKind
	}
	return s.repo.ListResources(ctx, tenantID, kind)
}

// SetResourceStatus applies an administrative override. OCCUPIED is
// reserved for the lifecycle recompute and cannot be set here.
func (s *RegistryService) SetResourceStatus(ctx context.Context, tenantID, resourceID string, status domain.ResourceStatus) (domain.Resource, error) {
	if !domain.ValidResourceStatus(status) {
		return domain.Resource{}, domain.ErrInvalidStatus
	}
	if status == domain.StatusOccupied {
		return domain.Resource{}, domain.ErrStatusNotSettable
	}

	if _, err := s.repo.GetResource(ctx, tenantID, resourceID); err != nil {
		return domain.Resource{}, err
	}
	if err := s.repo.UpdateResourceStatus(ctx, tenantID, resourceID, status); err != nil {
		return domain.Resource{}, err
	}
	return s.repo.GetResource(ctx, tenantID, resourceID)
}
