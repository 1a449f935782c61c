package service

import (
	"context"
	"strings"

	"github.com/iliyamo/travel-booking/internal/model"
	"github.com/iliyamo/travel-booking/internal/querycache"
)

// CatalogService serves packages, hotels, airlines and conventions.  Reads
// are public; writes are reached only through the admin routes.
type CatalogService struct {
	*base
}

// Packages lists packages.  The unfiltered catalog is cached; filtered
// searches go to the store.
func (s *CatalogService) Packages(ctx context.Context, f model.PackageFilter) ([]model.Package, error) {
	if !f.IsZero() {
		return s.d.Packages.List(ctx, f)
	}
	return querycache.Fetch(ctx, s.d.Cache, querycache.Packages(), func(ctx context.Context) ([]model.Package, error) {
		return s.d.Packages.List(ctx, f)
	})
}

func (s *CatalogService) Package(ctx context.Context, id string) (*model.Package, error) {
	return querycache.Fetch(ctx, s.d.Cache, querycache.Package(id), func(ctx context.Context) (*model.Package, error) {
		return s.d.Packages.Get(ctx, id)
	})
}

func (s *CatalogService) Destinations(ctx context.Context) ([]string, error) {
	return querycache.Fetch(ctx, s.d.Cache, querycache.Destinations(), s.d.Packages.Destinations)
}

func (s *CatalogService) Hotels(ctx context.Context) ([]model.Hotel, error) {
	return querycache.Fetch(ctx, s.d.Cache, querycache.Hotels(), s.d.Hotels.List)
}

func (s *CatalogService) Hotel(ctx context.Context, id string) (*model.Hotel, error) {
	return querycache.Fetch(ctx, s.d.Cache, querycache.Hotel(id), func(ctx context.Context) (*model.Hotel, error) {
		return s.d.Hotels.Get(ctx, id)
	})
}

func (s *CatalogService) Airlines(ctx context.Context) ([]model.Airline, error) {
	return querycache.Fetch(ctx, s.d.Cache, querycache.Airlines(), s.d.Airlines.List)
}

func (s *CatalogService) Airline(ctx context.Context, id string) (*model.Airline, error) {
	return querycache.Fetch(ctx, s.d.Cache, querycache.Airline(id), func(ctx context.Context) (*model.Airline, error) {
		return s.d.Airlines.Get(ctx, id)
	})
}

func (s *CatalogService) Conventions(ctx context.Context) ([]model.Convention, error) {
	return querycache.Fetch(ctx, s.d.Cache, querycache.Conventions(), s.d.Conventions.List)
}

// Convention is not cached on its own; the list is small and cached.
func (s *CatalogService) Convention(ctx context.Context, id string) (*model.Convention, error) {
	return s.d.Conventions.Get(ctx, id)
}

// CreatePackage validates and stores a new package.
func (s *CatalogService) CreatePackage(ctx context.Context, p *model.Package) error {
	if err := preparePackage(p); err != nil {
		return err
	}
	if err := s.d.Packages.Create(ctx, p); err != nil {
		return err
	}
	s.applied(ctx, querycache.PackageCreate, querycache.Target{ID: p.ID})
	return nil
}

// UpdatePackage overwrites a package.
func (s *CatalogService) UpdatePackage(ctx context.Context, p *model.Package) error {
	if err := preparePackage(p); err != nil {
		return err
	}
	if err := s.d.Packages.Update(ctx, p); err != nil {
		return err
	}
	s.applied(ctx, querycache.PackageUpdate, querycache.Target{ID: p.ID})
	return nil
}

// DeletePackage removes a package that nobody has booked.  Reservations
// are never removed with it; the store answers repository.ErrInUse instead.
func (s *CatalogService) DeletePackage(ctx context.Context, id string) error {
	if err := s.d.Packages.Delete(ctx, id); err != nil {
		return err
	}
	s.applied(ctx, querycache.PackageDelete, querycache.Target{ID: id})
	return nil
}

func (s *CatalogService) CreateHotel(ctx context.Context, h *model.Hotel) error {
	if err := requireName(h.Name); err != nil {
		return err
	}
	if err := s.d.Hotels.Create(ctx, h); err != nil {
		return err
	}
	s.applied(ctx, querycache.HotelCreate, querycache.Target{ID: h.ID})
	return nil
}

func (s *CatalogService) UpdateHotel(ctx context.Context, h *model.Hotel) error {
	if err := requireName(h.Name); err != nil {
		return err
	}
	if err := s.d.Hotels.Update(ctx, h); err != nil {
		return err
	}
	s.applied(ctx, querycache.HotelUpdate, querycache.Target{ID: h.ID})
	return nil
}

func (s *CatalogService) DeleteHotel(ctx context.Context, id string) error {
	if err := s.d.Hotels.Delete(ctx, id); err != nil {
		return err
	}
	s.applied(ctx, querycache.HotelDelete, querycache.Target{ID: id})
	return nil
}

func (s *CatalogService) CreateAirline(ctx context.Context, a *model.Airline) error {
	if err := requireName(a.Name); err != nil {
		return err
	}
	if err := s.d.Airlines.Create(ctx, a); err != nil {
		return err
	}
	s.applied(ctx, querycache.AirlineCreate, querycache.Target{ID: a.ID})
	return nil
}

func (s *CatalogService) UpdateAirline(ctx context.Context, a *model.Airline) error {
	if err := requireName(a.Name); err != nil {
		return err
	}
	if err := s.d.Airlines.Update(ctx, a); err != nil {
		return err
	}
	s.applied(ctx, querycache.AirlineUpdate, querycache.Target{ID: a.ID})
	return nil
}

func (s *CatalogService) DeleteAirline(ctx context.Context, id string) error {
	if err := s.d.Airlines.Delete(ctx, id); err != nil {
		return err
	}
	s.applied(ctx, querycache.AirlineDelete, querycache.Target{ID: id})
	return nil
}

func (s *CatalogService) CreateConvention(ctx context.Context, c *model.Convention) error {
	if err := checkConvention(c); err != nil {
		return err
	}
	if err := s.d.Conventions.Create(ctx, c); err != nil {
		return err
	}
	s.applied(ctx, querycache.ConventionCreate, querycache.Target{ID: c.ID})
	return nil
}

func (s *CatalogService) UpdateConvention(ctx context.Context, c *model.Convention) error {
	if err := checkConvention(c); err != nil {
		return err
	}
	if err := s.d.Conventions.Update(ctx, c); err != nil {
		return err
	}
	s.applied(ctx, querycache.ConventionUpdate, querycache.Target{ID: c.ID})
	return nil
}

func (s *CatalogService) DeleteConvention(ctx context.Context, id string) error {
	if err := s.d.Conventions.Delete(ctx, id); err != nil {
		return err
	}
	s.applied(ctx, querycache.ConventionDelete, querycache.Target{ID: id})
	return nil
}

// preparePackage validates p and derives its duration when unset.
func preparePackage(p *model.Package) error {
	p.Title = strings.TrimSpace(p.Title)
	p.Destination = strings.TrimSpace(p.Destination)
	if err := model.ValidatePackage(*p); err != nil {
		return precondition(err)
	}
	if p.DurationDays == nil {
		d := model.DurationDays(p.StartDate, p.EndDate)
		p.DurationDays = &d
	}
	return nil
}

func requireName(name string) error {
	if strings.TrimSpace(name) == "" {
		return precondition(ErrNameRequired)
	}
	return nil
}

func checkConvention(c *model.Convention) error {
	if err := requireName(c.Name); err != nil {
		return err
	}
	if c.EndDate.Before(c.StartDate) {
		return precondition(ErrInvalidDates)
	}
	return nil
}
