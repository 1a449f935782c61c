// Package seed loads a YAML catalog of hotels, airlines, conventions and
// packages, plus an optional administrator, into the store.
package seed

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/iliyamo/travel-booking/internal/model"
	"github.com/iliyamo/travel-booking/internal/repository"
	"github.com/iliyamo/travel-booking/internal/service"
	"github.com/iliyamo/travel-booking/internal/utils"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Catalog is the YAML document.
type Catalog struct {
	Hotels      []Hotel      `yaml:"hotels"`
	Airlines    []Airline    `yaml:"airlines"`
	Conventions []Convention `yaml:"conventions"`
	Packages    []Package    `yaml:"packages"`
	Admin       *Admin       `yaml:"admin,omitempty"`
}

type Hotel struct {
	Name        string `yaml:"name"`
	City        string `yaml:"city"`
	Country     string `yaml:"country"`
	Address     string `yaml:"address,omitempty"`
	Description string `yaml:"description,omitempty"`
	StarRating  int    `yaml:"star_rating,omitempty"`
	ImageURL    string `yaml:"image_url,omitempty"`
}

type Airline struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	LogoURL     string `yaml:"logo_url,omitempty"`
}

type Convention struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	Location    string `yaml:"location,omitempty"`
	StartDate   string `yaml:"start_date"`
	EndDate     string `yaml:"end_date"`
}

// Package references its hotel, airline and convention by name.  Price is
// in currency units; the end date is start_date plus days.
type Package struct {
	Title       string  `yaml:"title"`
	Destination string  `yaml:"destination"`
	Description string  `yaml:"description"`
	Price       float64 `yaml:"price"`
	Slots       int     `yaml:"slots"`
	StartDate   string  `yaml:"start_date"`
	Days        int     `yaml:"days"`
	Hotel       string  `yaml:"hotel,omitempty"`
	Airline     string  `yaml:"airline,omitempty"`
	Convention  string  `yaml:"convention,omitempty"`
	ImageURL    string  `yaml:"image_url,omitempty"`
}

// Admin is created verified with the admin flag set.  An existing account
// with the same email is promoted instead.
type Admin struct {
	Email     string `yaml:"email"`
	Password  string `yaml:"password"`
	FirstName string `yaml:"first_name,omitempty"`
	LastName  string `yaml:"last_name,omitempty"`
}

// Load reads the catalog at path, or the embedded default when path is
// empty.
func Load(path string) (*Catalog, error) {
	data := defaultCatalog
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("seed: read %s: %w", path, err)
		}
		data = b
	}
	return Parse(data)
}

// Parse decodes a catalog document.  Unknown keys are rejected.
func Parse(data []byte) (*Catalog, error) {
	var cat Catalog
	dec := yaml.NewDecoder(strings.NewReader(string(data)))
	dec.KnownFields(true)
	if err := dec.Decode(&cat); err != nil {
		return nil, fmt.Errorf("seed: parse catalog: %w", err)
	}
	return &cat, nil
}

// Result counts the rows inserted by a run.
type Result struct {
	Hotels      int
	Airlines    int
	Conventions int
	Packages    int
	Admin       bool
}

// Seeder inserts catalogs.  Writes go through the catalog service so that
// validation and cache invalidation apply as for admin edits.
type Seeder struct {
	Catalog     *service.CatalogService
	Hotels      *repository.HotelRepo
	Airlines    *repository.AirlineRepo
	Conventions *repository.ConventionRepo
	Packages    *repository.PackageRepo
	Profiles    *repository.ProfileRepo
	BcryptCost  int
	Logger      *slog.Logger
}

// Run inserts whatever part of cat is missing from the store.
func (s *Seeder) Run(ctx context.Context, cat *Catalog) (Result, error) {
	var res Result

	hotels, err := s.Hotels.List(ctx)
	if err != nil {
		return res, err
	}
	hotelIDs := make(map[string]string, len(hotels))
	for _, h := range hotels {
		hotelIDs[h.Name] = h.ID
	}
	for _, in := range cat.Hotels {
		if _, ok := hotelIDs[in.Name]; ok {
			continue
		}
		h := &model.Hotel{
			Name:        in.Name,
			City:        in.City,
			Country:     in.Country,
			Address:     optional(in.Address),
			Description: optional(in.Description),
			ImageURL:    optional(in.ImageURL),
		}
		if in.StarRating > 0 {
			h.StarRating = &in.StarRating
		}
		if err := s.Catalog.CreateHotel(ctx, h); err != nil {
			return res, fmt.Errorf("seed hotel %q: %w", in.Name, err)
		}
		hotelIDs[h.Name] = h.ID
		res.Hotels++
	}

	airlines, err := s.Airlines.List(ctx)
	if err != nil {
		return res, err
	}
	airlineIDs := make(map[string]string, len(airlines))
	for _, a := range airlines {
		airlineIDs[a.Name] = a.ID
	}
	for _, in := range cat.Airlines {
		if _, ok := airlineIDs[in.Name]; ok {
			continue
		}
		a := &model.Airline{Name: in.Name, Description: optional(in.Description), LogoURL: optional(in.LogoURL)}
		if err := s.Catalog.CreateAirline(ctx, a); err != nil {
			return res, fmt.Errorf("seed airline %q: %w", in.Name, err)
		}
		airlineIDs[a.Name] = a.ID
		res.Airlines++
	}

	conventions, err := s.Conventions.List(ctx)
	if err != nil {
		return res, err
	}
	conventionIDs := make(map[string]string, len(conventions))
	for _, c := range conventions {
		conventionIDs[c.Name] = c.ID
	}
	for _, in := range cat.Conventions {
		if _, ok := conventionIDs[in.Name]; ok {
			continue
		}
		start, err := parseDate(in.StartDate)
		if err != nil {
			return res, fmt.Errorf("seed convention %q: %w", in.Name, err)
		}
		end, err := parseDate(in.EndDate)
		if err != nil {
			return res, fmt.Errorf("seed convention %q: %w", in.Name, err)
		}
		c := &model.Convention{
			Name:        in.Name,
			Description: optional(in.Description),
			Location:    optional(in.Location),
			StartDate:   start,
			EndDate:     end,
		}
		if err := s.Catalog.CreateConvention(ctx, c); err != nil {
			return res, fmt.Errorf("seed convention %q: %w", in.Name, err)
		}
		conventionIDs[c.Name] = c.ID
		res.Conventions++
	}

	pkgs, err := s.Packages.List(ctx, model.PackageFilter{})
	if err != nil {
		return res, err
	}
	seen := make(map[string]bool, len(pkgs))
	for _, p := range pkgs {
		seen[packageKey(p.Title, p.Destination)] = true
	}
	for _, in := range cat.Packages {
		if seen[packageKey(in.Title, in.Destination)] {
			continue
		}
		p, err := in.model(hotelIDs, airlineIDs, conventionIDs)
		if err != nil {
			return res, fmt.Errorf("seed package %q: %w", in.Title, err)
		}
		if err := s.Catalog.CreatePackage(ctx, p); err != nil {
			return res, fmt.Errorf("seed package %q: %w", in.Title, err)
		}
		seen[packageKey(in.Title, in.Destination)] = true
		res.Packages++
	}

	if cat.Admin != nil {
		created, err := s.admin(ctx, *cat.Admin)
		if err != nil {
			return res, err
		}
		res.Admin = created
	}

	s.Logger.Info("catalog seeded",
		"hotels", res.Hotels, "airlines", res.Airlines, "conventions", res.Conventions,
		"packages", res.Packages, "admin_created", res.Admin)
	return res, nil
}

// admin ensures the account exists, is verified and carries the admin flag.
// It reports whether the account was created.
func (s *Seeder) admin(ctx context.Context, in Admin) (bool, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" {
		return false, errors.New("seed admin: email is required")
	}
	u, err := s.Profiles.GetUserByEmail(ctx, email)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		if len(in.Password) < utils.MinPasswordLength {
			return false, errors.New("seed admin: password of at least 6 characters is required")
		}
		u, _, err = s.Profiles.Create(ctx, repository.NewUser{
			Email:     email,
			Password:  in.Password,
			FirstName: optional(in.FirstName),
			LastName:  optional(in.LastName),
			IsAdmin:   true,
		}, s.BcryptCost)
		if err != nil {
			return false, fmt.Errorf("seed admin: %w", err)
		}
		return true, s.Profiles.MarkVerified(ctx, u.ID)
	case err != nil:
		return false, fmt.Errorf("seed admin: %w", err)
	}
	if _, err := s.Profiles.SetAdmin(ctx, u.ID, true); err != nil {
		return false, fmt.Errorf("seed admin: %w", err)
	}
	return false, s.Profiles.MarkVerified(ctx, u.ID)
}

func (p Package) model(hotels, airlines, conventions map[string]string) (*model.Package, error) {
	start, err := parseDate(p.StartDate)
	if err != nil {
		return nil, err
	}
	if p.Days <= 0 {
		return nil, errors.New("days must be positive")
	}
	out := &model.Package{
		Title:          p.Title,
		Description:    strings.TrimSpace(p.Description),
		Destination:    p.Destination,
		PriceCents:     int64(math.Round(p.Price * 100)),
		AvailableSlots: p.Slots,
		StartDate:      start,
		EndDate:        start.AddDate(0, 0, p.Days),
		ImageURL:       optional(p.ImageURL),
	}
	days := p.Days
	out.DurationDays = &days
	if out.HotelID, err = ref("hotel", p.Hotel, hotels); err != nil {
		return nil, err
	}
	if out.AirlineID, err = ref("airline", p.Airline, airlines); err != nil {
		return nil, err
	}
	if out.ConventionID, err = ref("convention", p.Convention, conventions); err != nil {
		return nil, err
	}
	return out, nil
}

// ref resolves a name to its id; an empty name is no reference.
func ref(kind, name string, ids map[string]string) (*string, error) {
	if name == "" {
		return nil, nil
	}
	id, ok := ids[name]
	if !ok {
		return nil, fmt.Errorf("unknown %s %q", kind, name)
	}
	return &id, nil
}

func packageKey(title, destination string) string {
	return strings.ToLower(strings.TrimSpace(title)) + "\x00" + strings.ToLower(strings.TrimSpace(destination))
}

func parseDate(s string) (time.Time, error) {
	return time.Parse("2006-01-02", strings.TrimSpace(s))
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
