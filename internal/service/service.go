// Package service wraps the repositories with the query cache.  Reads go
// through querycache.Fetch under their semantic key; writes run the local
// precondition check, call the repository, and only after the store
// accepted the write apply the mutation's cache plan and publish an event.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/iliyamo/travel-booking/internal/model"
	"github.com/iliyamo/travel-booking/internal/querycache"
	"github.com/iliyamo/travel-booking/internal/queue"
	"github.com/iliyamo/travel-booking/internal/repository"
	"github.com/iliyamo/travel-booking/internal/session"
)

// Kind classifies a failed operation for the presentation layer.
type Kind int

const (
	// Transport is a store or network failure.  The message is not shown
	// to users and nothing was changed.
	Transport Kind = iota
	// Rejected means the store refused the operation: not found, not
	// owned, or a rule enforced by the write itself.
	Rejected
	// Precondition means a local check failed before the store was
	// contacted.
	Precondition
)

func (k Kind) String() string {
	switch k {
	case Rejected:
		return "rejected"
	case Precondition:
		return "precondition"
	}
	return "transport"
}

// Error carries the Kind of a failure.  It unwraps to the underlying
// sentinel so callers can keep using errors.Is.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string { return e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }

func precondition(err error) error { return &Error{Kind: Precondition, Err: err} }

// Form errors raised before the store is contacted.
var (
	ErrNameRequired   = errors.New("name is required")
	ErrInvalidDates   = errors.New("end_date must not be before start_date")
	ErrInvalidPayment = errors.New("unknown payment status")
	ErrSelfDemotion   = errors.New("administrators cannot revoke their own admin flag")
)

// rejections are the sentinels the store and the session manager answer
// with when they refuse a request.
var rejections = []error{
	repository.ErrNotFound,
	repository.ErrForbidden,
	repository.ErrConflict,
	repository.ErrInsufficientSlots,
	repository.ErrInUse,
	repository.ErrEmailExists,
	repository.ErrInvalidToken,
	model.ErrInvalidTransition,
	model.ErrNotEditable,
	model.ErrNotCancellable,
	model.ErrNotDeletable,
	model.ErrNotReviewable,
	model.ErrReviewExists,
	model.ErrInvalidTravelers,
	model.ErrInvalidRating,
	model.ErrInvalidPackage,
	session.ErrInvalidCredentials,
	session.ErrEmailNotVerified,
	session.ErrAlreadyRegistered,
	session.ErrInvalidSignUp,
	session.ErrInvalidSession,
	session.ErrInvalidVerification,
}

// Classify returns the Kind of err.  Unrecognised errors count as
// Transport.
func Classify(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	for _, r := range rejections {
		if errors.Is(err, r) {
			return Rejected
		}
	}
	return Transport
}

// EventPublisher is the outbound side of the message queue.
// *queue.Publisher implements it.
type EventPublisher interface {
	PublishReservation(ctx context.Context, ev queue.ReservationEvent) error
}

// Deps are the collaborators shared by every service.
type Deps struct {
	Packages     *repository.PackageRepo
	Hotels       *repository.HotelRepo
	Airlines     *repository.AirlineRepo
	Conventions  *repository.ConventionRepo
	Reservations *repository.ReservationRepo
	Reviews      *repository.ReviewRepo
	Profiles     *repository.ProfileRepo
	Stats        *repository.StatsRepo
	Cache        *querycache.Cache
	Events       EventPublisher
	Logger       *slog.Logger

	// PublishTimeout bounds a single event publish.  Zero means 3s.
	PublishTimeout time.Duration
}

// Services bundles the per-audience services.
type Services struct {
	Catalog      *CatalogService
	Reservations *ReservationService
	Reviews      *ReviewService
	Profiles     *ProfileService
	Admin        *AdminService
}

// New builds the services and registers a refetcher for every cache key
// kind with d.Cache.
func New(d Deps) *Services {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.PublishTimeout <= 0 {
		d.PublishTimeout = 3 * time.Second
	}
	b := &base{d: d, logger: d.Logger.With("component", "service")}
	s := &Services{
		Catalog:      &CatalogService{base: b},
		Reservations: &ReservationService{base: b},
		Reviews:      &ReviewService{base: b},
		Profiles:     &ProfileService{base: b},
		Admin:        &AdminService{base: b},
	}
	b.registerRefetchers()
	return s
}

type base struct {
	d      Deps
	logger *slog.Logger
}

func (b *base) registerRefetchers() {
	c, d := b.d.Cache, b.d
	c.Register(querycache.KindPackages, func(ctx context.Context, _ string) (any, error) {
		return d.Packages.List(ctx, model.PackageFilter{})
	})
	c.Register(querycache.KindPackage, func(ctx context.Context, id string) (any, error) { return d.Packages.Get(ctx, id) })
	c.Register(querycache.KindDestinations, func(ctx context.Context, _ string) (any, error) { return d.Packages.Destinations(ctx) })
	c.Register(querycache.KindHotels, func(ctx context.Context, _ string) (any, error) { return d.Hotels.List(ctx) })
	c.Register(querycache.KindHotel, func(ctx context.Context, id string) (any, error) { return d.Hotels.Get(ctx, id) })
	c.Register(querycache.KindAirlines, func(ctx context.Context, _ string) (any, error) { return d.Airlines.List(ctx) })
	c.Register(querycache.KindAirline, func(ctx context.Context, id string) (any, error) { return d.Airlines.Get(ctx, id) })
	c.Register(querycache.KindConventions, func(ctx context.Context, _ string) (any, error) { return d.Conventions.List(ctx) })
	c.Register(querycache.KindReservations, func(ctx context.Context, uid string) (any, error) {
		return d.Reservations.ListByUser(ctx, uid)
	})
	c.Register(querycache.KindReservation, func(ctx context.Context, id string) (any, error) { return d.Reservations.Get(ctx, id) })
	c.Register(querycache.KindAdminReservations, func(ctx context.Context, _ string) (any, error) {
		return d.Reservations.ListAll(ctx, "")
	})
	c.Register(querycache.KindReviews, func(ctx context.Context, uid string) (any, error) { return d.Reviews.ListByUser(ctx, uid) })
	c.Register(querycache.KindReview, func(ctx context.Context, id string) (any, error) { return d.Reviews.Get(ctx, id) })
	c.Register(querycache.KindAdminReviews, func(ctx context.Context, _ string) (any, error) { return d.Reviews.List(ctx) })
	c.Register(querycache.KindProfile, func(ctx context.Context, uid string) (any, error) { return d.Profiles.Get(ctx, uid) })
	c.Register(querycache.KindUsers, func(ctx context.Context, _ string) (any, error) { return d.Profiles.List(ctx) })
	c.Register(querycache.KindAdminStats, func(ctx context.Context, _ string) (any, error) { return d.Stats.Get(ctx) })
}

// applied runs the cache plan of a write the store has accepted.  The
// request context may already be gone (client hung up), so the plan runs
// on a detached one: the write happened and its cache effects must follow.
func (b *base) applied(ctx context.Context, m querycache.Mutation, t querycache.Target) {
	b.d.Cache.Apply(context.WithoutCancel(ctx), m, t)
}

// publish sends ev best-effort.  A failure is logged and never reaches the
// caller.
func (b *base) publish(ctx context.Context, ev queue.ReservationEvent) {
	if b.d.Events == nil {
		return
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), b.d.PublishTimeout)
	defer cancel()
	if err := b.d.Events.PublishReservation(pctx, ev); err != nil {
		b.logger.Warn("publish event failed", "type", ev.Type, "reservation_id", ev.ReservationID, "error", err)
	}
}

func reservationEvent(typ string, r *model.Reservation, actorID string) queue.ReservationEvent {
	ev := queue.ReservationEvent{
		Type:            typ,
		ReservationID:   r.ID,
		UserID:          r.UserID,
		PackageID:       r.PackageID,
		NumTravelers:    r.NumTravelers,
		TotalPriceCents: r.TotalPriceCents,
		Status:          string(r.Status),
		PaymentStatus:   string(r.PaymentStatus),
		ActorID:         actorID,
	}
	if r.Package != nil {
		ev.PackageTitle = r.Package.Title
	}
	return ev
}
