package service

import (
	"fmt"
	"strings"

	"transparency-monitor/internal/models"
	"transparency-monitor/internal/repository"
)

// RequirementService manages the catalog of scored transparency
// criteria and their sub-items
type RequirementService struct {
	requirementRepo *repository.RequirementRepository
	orgRepo         *repository.OrganizationRepository
}

// NewRequirementService creates a new requirement service
func NewRequirementService(requirementRepo *repository.RequirementRepository, orgRepo *repository.OrganizationRepository) *RequirementService {
	return &RequirementService{requirementRepo: requirementRepo, orgRepo: orgRepo}
}

// CreateRequirement adds a criterion to the catalog. A nil organization
// ID makes it apply to every organization.
func (s *RequirementService) CreateRequirement(actor Actor, req *models.Requirement) error {
	if !actor.IsReviewer() {
		return fmt.Errorf("%w: only reviewers can manage the catalog", ErrForbidden)
	}
	if strings.TrimSpace(req.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	if req.PointValue <= 0 {
		return fmt.Errorf("%w: point value must be positive", ErrValidation)
	}
	if req.OrganizationID != nil {
		org, err := s.orgRepo.GetByID(*req.OrganizationID)
		if err != nil {
			return err
		}
		if org == nil {
			return fmt.Errorf("%w: organization %d", ErrNotFound, *req.OrganizationID)
		}
	}
	return s.requirementRepo.Create(req)
}

// CreateSubRequirement decomposes a requirement into a scored sub-item
func (s *RequirementService) CreateSubRequirement(actor Actor, sub *models.SubRequirement) error {
	if !actor.IsReviewer() {
		return fmt.Errorf("%w: only reviewers can manage the catalog", ErrForbidden)
	}
	if strings.TrimSpace(sub.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	parent, err := s.requirementRepo.GetByID(sub.RequirementID)
	if err != nil {
		return err
	}
	if parent == nil {
		return fmt.Errorf("%w: requirement %d", ErrNotFound, sub.RequirementID)
	}
	return s.requirementRepo.CreateSub(sub)
}

// GetCatalogForOrganization retrieves the criteria that apply to one
// organization: the global catalog plus its specific entries
func (s *RequirementService) GetCatalogForOrganization(orgID uint) ([]models.RequirementWithSubs, error) {
	org, err := s.orgRepo.GetByID(orgID)
	if err != nil {
		return nil, err
	}
	if org == nil {
		return nil, fmt.Errorf("%w: organization %d", ErrNotFound, orgID)
	}
	return s.requirementRepo.GetForOrganization(orgID)
}

// UpdateRequirement updates a catalog entry
func (s *RequirementService) UpdateRequirement(actor Actor, req *models.Requirement) error {
	if !actor.IsReviewer() {
		return fmt.Errorf("%w: only reviewers can manage the catalog", ErrForbidden)
	}
	existing, err := s.requirementRepo.GetByID(req.ID)
	if err != nil {
		return err
	}
	if existing == nil {
		return fmt.Errorf("%w: requirement %d", ErrNotFound, req.ID)
	}
	if req.PointValue <= 0 {
		return fmt.Errorf("%w: point value must be positive", ErrValidation)
	}
	return s.requirementRepo.Update(req)
}

// DeleteRequirement removes a catalog entry and its sub-items
func (s *RequirementService) DeleteRequirement(actor Actor, id uint) error {
	if !actor.IsReviewer() {
		return fmt.Errorf("%w: only reviewers can manage the catalog", ErrForbidden)
	}
	existing, err := s.requirementRepo.GetByID(id)
	if err != nil {
		return err
	}
	if existing == nil {
		return fmt.Errorf("%w: requirement %d", ErrNotFound, id)
	}
	return s.requirementRepo.Delete(id)
}
