package service

import (
	"fmt"
	"strings"

	"transparency-monitor/internal/models"
	"transparency-monitor/internal/repository"
)

// OrganizationService manages the directory of monitored organizations
type OrganizationService struct {
	orgRepo  *repository.OrganizationRepository
	userRepo *repository.UserRepository
}

// NewOrganizationService creates a new organization service
func NewOrganizationService(orgRepo *repository.OrganizationRepository, userRepo *repository.UserRepository) *OrganizationService {
	return &OrganizationService{orgRepo: orgRepo, userRepo: userRepo}
}

// CreateOrganization registers a new organization in the directory
func (s *OrganizationService) CreateOrganization(actor Actor, org *models.Organization) error {
	if !actor.IsReviewer() {
		return fmt.Errorf("%w: only reviewers can manage organizations", ErrForbidden)
	}
	if strings.TrimSpace(org.Name) == "" || strings.TrimSpace(org.Code) == "" {
		return fmt.Errorf("%w: name and code are required", ErrValidation)
	}

	existing, err := s.orgRepo.GetByCode(org.Code)
	if err != nil {
		return err
	}
	if existing != nil {
		return fmt.Errorf("%w: code %q is already in use", ErrValidation, org.Code)
	}
	return s.orgRepo.Create(org)
}

// GetOrganization retrieves one organization
func (s *OrganizationService) GetOrganization(id uint) (*models.Organization, error) {
	org, err := s.orgRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if org == nil {
		return nil, fmt.Errorf("%w: organization %d", ErrNotFound, id)
	}
	return org, nil
}

// ListOrganizations retrieves the full directory
func (s *OrganizationService) ListOrganizations() ([]models.Organization, error) {
	return s.orgRepo.GetAll()
}

// UpdateOrganization updates directory data for an organization
func (s *OrganizationService) UpdateOrganization(actor Actor, org *models.Organization) error {
	if !actor.IsReviewer() {
		return fmt.Errorf("%w: only reviewers can manage organizations", ErrForbidden)
	}
	existing, err := s.orgRepo.GetByID(org.ID)
	if err != nil {
		return err
	}
	if existing == nil {
		return fmt.Errorf("%w: organization %d", ErrNotFound, org.ID)
	}
	if strings.TrimSpace(org.Name) == "" || strings.TrimSpace(org.Code) == "" {
		return fmt.Errorf("%w: name and code are required", ErrValidation)
	}
	return s.orgRepo.Update(org)
}

// ListOrganizationUsers retrieves the accounts attached to an
// organization
func (s *OrganizationService) ListOrganizationUsers(actor Actor, orgID uint) ([]models.User, error) {
	if !actor.IsReviewer() && !actor.OwnsOrganization(orgID) {
		return nil, fmt.Errorf("%w: organization accounts are not visible to the caller", ErrForbidden)
	}
	return s.userRepo.GetByOrganizationID(orgID)
}
