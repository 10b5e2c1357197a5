package services

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"micro-crm/backend/projects-service/models"
	"micro-crm/backend/utils/logging"
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^[0-9\s\-\+]{10,15}$`)
)

func (s *ProjectService) ListCustomers(ctx context.Context) ([]models.Customer, error) {
	return s.customers.List(ctx)
}

func (s *ProjectService) GetCustomer(ctx context.Context, customerID string) (*models.Customer, error) {
	return s.customers.GetByID(ctx, customerID)
}

// CreateCustomer rejects an email already used by another customer, ignoring case.
func (s *ProjectService) CreateCustomer(ctx context.Context, req models.CustomerRequest) (*models.Customer, error) {
	name := strings.TrimSpace(req.Name)
	email := strings.TrimSpace(req.Email)
	phone := strings.TrimSpace(req.Phone)

	if name == "" {
		return nil, validationError("customer name is required")
	}
	if !emailPattern.MatchString(email) {
		return nil, validationError("invalid email address")
	}
	if phone != "" && !phonePattern.MatchString(phone) {
		return nil, validationError("phone must be 10-15 digits (may include +, -, spaces)")
	}

	_, err := s.customers.FindByEmail(ctx, email)
	if err == nil {
		return nil, models.ErrDuplicateEmail
	}
	if !errors.Is(err, models.ErrCustomerNotFound) {
		return nil, err
	}

	now := s.now().UTC()
	customer := &models.Customer{
		Name:      name,
		Email:     email,
		Phone:     phone,
		Notes:     strings.TrimSpace(req.Notes),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.customers.Create(ctx, customer); err != nil {
		return nil, err
	}
	return customer, nil
}

// DeleteCustomer removes the customer and every project that belongs to it.
// The caller must own all linked projects; otherwise nothing is deleted.
func (s *ProjectService) DeleteCustomer(ctx context.Context, userID, customerID string) (*models.CustomerDeleteResult, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	if _, err := s.customers.GetByID(ctx, customerID); err != nil {
		return nil, err
	}

	projects, err := s.projects.ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	for _, p := range projects {
		if p.CreatorID != userID {
			logging.Logger.Warnf("Event ID: CUSTOMER_DELETE_REFUSED, Description: User %s cannot delete customer %s, project %s belongs to %s",
				userID, customerID, p.ID.Hex(), p.CreatorID)
			return nil, models.ErrCustomerInUse
		}
	}
	for i := range projects {
		if err := s.deleteCascade(ctx, &projects[i]); err != nil {
			return nil, err
		}
	}

	if err := s.customers.Delete(ctx, customerID); err != nil {
		return nil, err
	}
	logging.Logger.Infof("Event ID: CUSTOMER_DELETED, Description: Customer %s deleted with %d projects", customerID, len(projects))
	return &models.CustomerDeleteResult{CustomerID: customerID, DeletedProjects: len(projects)}, nil
}
