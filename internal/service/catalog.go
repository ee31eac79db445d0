package service

import (
	"context"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/iliyamo/acdoc-booking/internal/apperr"
	"github.com/iliyamo/acdoc-booking/internal/model"
	"github.com/iliyamo/acdoc-booking/internal/repository"
	"github.com/iliyamo/acdoc-booking/internal/utils"
)

// ServiceInput is the body of a create or update catalogue request.
type ServiceInput struct {
	Name     string   `json:"name"`
	Price    *float64 `json:"price"`
	IsActive *bool    `json:"isActive"`
}

// AddressInput is the body of a create or update address request.
type AddressInput struct {
	Line1    string `json:"line1"`
	Line2    string `json:"line2"`
	City     string `json:"city"`
	State    string `json:"state"`
	Pincode  string `json:"pincode"`
	Landmark string `json:"landmark"`
}

var pincodeRe = regexp.MustCompile(`^[0-9]{4,10}$`)

// CatalogService manages the bookable services and user addresses.
type CatalogService struct {
	services  repository.ServiceRepository
	addresses repository.AddressRepository
}

func NewCatalogService(services repository.ServiceRepository, addresses repository.AddressRepository) *CatalogService {
	return &CatalogService{services: services, addresses: addresses}
}

func (in *ServiceInput) build(svc *model.Service) error {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return apperr.Validation("name", "name is required")
	}
	if in.Price == nil {
		return apperr.Validation("price", "price is required")
	}
	if *in.Price < 0 {
		return apperr.Validation("price", "price must not be negative")
	}
	svc.Name = name
	svc.Price = utils.Round2(*in.Price)
	if in.IsActive != nil {
		svc.IsActive = *in.IsActive
	}
	return nil
}

func (s *CatalogService) CreateService(ctx context.Context, in ServiceInput) (*model.Service, error) {
	svc := &model.Service{ID: uuid.NewString(), IsActive: true}
	if err := in.build(svc); err != nil {
		return nil, err
	}
	if err := s.services.Create(ctx, svc); err != nil {
		return nil, storeErr(err, "service", "service name already exists", "create service")
	}
	return svc, nil
}

func (s *CatalogService) UpdateService(ctx context.Context, rawID string, in ServiceInput) (*model.Service, error) {
	svc, err := s.GetService(ctx, rawID)
	if err != nil {
		return nil, err
	}
	if err := in.build(svc); err != nil {
		return nil, err
	}
	if err := s.services.Update(ctx, svc); err != nil {
		return nil, storeErr(err, "service", "service name already exists", "update service")
	}
	return svc, nil
}

func (s *CatalogService) GetService(ctx context.Context, rawID string) (*model.Service, error) {
	id, err := parseID(rawID, "service id")
	if err != nil {
		return nil, err
	}
	svc, err := s.services.GetByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "service", "", "load service")
	}
	return svc, nil
}

// ListServices returns the catalogue. The public listing passes
// activeOnly=true.
func (s *CatalogService) ListServices(ctx context.Context, activeOnly bool) ([]model.Service, error) {
	out, err := s.services.List(ctx, activeOnly)
	if err != nil {
		return nil, apperr.Unexpected("list services", err)
	}
	return out, nil
}

func (in *AddressInput) build(a *model.Address) error {
	a.Line1 = strings.TrimSpace(in.Line1)
	a.Line2 = strings.TrimSpace(in.Line2)
	a.City = strings.TrimSpace(in.City)
	a.State = strings.TrimSpace(in.State)
	a.Pincode = strings.TrimSpace(in.Pincode)
	a.Landmark = strings.TrimSpace(in.Landmark)
	switch {
	case a.Line1 == "":
		return apperr.Validation("line1", "address line is required")
	case a.City == "":
		return apperr.Validation("city", "city is required")
	case a.State == "":
		return apperr.Validation("state", "state is required")
	case !pincodeRe.MatchString(a.Pincode):
		return apperr.Validation("pincode", "pincode must be 4 to 10 digits")
	}
	return nil
}

// CreateAddress saves a new address for userID.
func (s *CatalogService) CreateAddress(ctx context.Context, userID string, in AddressInput) (*model.Address, error) {
	a := &model.Address{ID: uuid.NewString(), UserID: userID}
	if err := in.build(a); err != nil {
		return nil, err
	}
	if err := s.addresses.Create(ctx, a); err != nil {
		return nil, storeErr(err, "address", "", "create address")
	}
	return a, nil
}

// ownAddress loads an address owned by userID. Other users' addresses are
// reported as missing.
func (s *CatalogService) ownAddress(ctx context.Context, userID, rawID string) (*model.Address, error) {
	id, err := parseID(rawID, "address id")
	if err != nil {
		return nil, err
	}
	a, err := s.addresses.GetByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "address", "", "load address")
	}
	if a.UserID != userID {
		return nil, apperr.NotFound("address")
	}
	return a, nil
}

func (s *CatalogService) UpdateAddress(ctx context.Context, userID, rawID string, in AddressInput) (*model.Address, error) {
	a, err := s.ownAddress(ctx, userID, rawID)
	if err != nil {
		return nil, err
	}
	if err := in.build(a); err != nil {
		return nil, err
	}
	if err := s.addresses.Update(ctx, a); err != nil {
		return nil, storeErr(err, "address", "", "update address")
	}
	return a, nil
}

func (s *CatalogService) ListAddresses(ctx context.Context, userID string) ([]model.Address, error) {
	out, err := s.addresses.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperr.Unexpected("list addresses", err)
	}
	return out, nil
}

// DeleteAddress removes an address. Bookings keep their own snapshot.
func (s *CatalogService) DeleteAddress(ctx context.Context, userID, rawID string) error {
	a, err := s.ownAddress(ctx, userID, rawID)
	if err != nil {
		return err
	}
	return storeErr(s.addresses.Delete(ctx, a.ID), "address", "", "delete address")
}
