package querycache

// Mutation names a write operation whose success changes cached reads.
type Mutation string

const (
	ReservationCreate  Mutation = "reservation.create"
	ReservationUpdate  Mutation = "reservation.update"
	ReservationCancel  Mutation = "reservation.cancel"
	ReservationStatus  Mutation = "reservation.status"
	ReservationPayment Mutation = "reservation.payment"
	ReservationDelete  Mutation = "reservation.delete"

	ReviewCreate Mutation = "review.create"
	ReviewDelete Mutation = "review.delete"

	PackageCreate Mutation = "package.create"
	PackageUpdate Mutation = "package.update"
	PackageDelete Mutation = "package.delete"

	HotelCreate Mutation = "hotel.create"
	HotelUpdate Mutation = "hotel.update"
	HotelDelete Mutation = "hotel.delete"

	AirlineCreate Mutation = "airline.create"
	AirlineUpdate Mutation = "airline.update"
	AirlineDelete Mutation = "airline.delete"

	ConventionCreate Mutation = "convention.create"
	ConventionUpdate Mutation = "convention.update"
	ConventionDelete Mutation = "convention.delete"

	UserSignUp    Mutation = "user.signup"
	ProfileUpdate Mutation = "profile.update"
	ProfileAdmin  Mutation = "profile.admin"
)

// Target carries the identifiers a mutation touched.  Fields a mutation
// does not use are left empty; keys built from empty fields are skipped.
type Target struct {
	ID            string // the mutated entity
	OwnerID       string // owning user of a reservation or review
	PackageID     string // package whose slots moved
	ReservationID string // reservation a review belongs to
}

// Strike removes the entity ID from the cached list under List.
type Strike struct {
	List Key
	ID   string
}

// Plan is the cache work for one successful mutation, run in field order.
type Plan struct {
	Invalidate []Key
	Strike     []Strike
	Refetch    []Key
}

type keyFunc func(Target) Key

type rule struct {
	invalidate []keyFunc
	strike     []keyFunc // lists the target ID is struck from
	refetch    []keyFunc
}

func fixed(k Key) keyFunc { return func(Target) Key { return k } }

var (
	theReservation  = func(t Target) Key { return Reservation(t.ID) }
	ownReservations = func(t Target) Key { return Reservations(t.OwnerID) }
	ownReviews      = func(t Target) Key { return Reviews(t.OwnerID) }
	slotsPackage    = func(t Target) Key { return Package(t.PackageID) }
	parentRes       = func(t Target) Key { return Reservation(t.ReservationID) }
	thePackage      = func(t Target) Key { return Package(t.ID) }
	theHotel        = func(t Target) Key { return Hotel(t.ID) }
	theAirline      = func(t Target) Key { return Airline(t.ID) }
	theReview       = func(t Target) Key { return Review(t.ID) }
	theProfile      = func(t Target) Key { return Profile(t.ID) }

	packages     = fixed(Packages())
	destinations = fixed(Destinations())
	adminRes     = fixed(AdminReservations())
	adminReviews = fixed(AdminReviews())
	adminStats   = fixed(AdminStats())
	users        = fixed(Users())
)

// rules is the mutation -> affected keys table.  Reservation writes only
// reach package keys when they move slots, because available_slots is part
// of the package view.
var rules = map[Mutation]rule{
	ReservationCreate:  {invalidate: []keyFunc{ownReservations, adminRes, slotsPackage, packages, adminStats}},
	ReservationUpdate:  {invalidate: []keyFunc{theReservation, ownReservations, adminRes, slotsPackage, packages}},
	ReservationCancel:  {invalidate: []keyFunc{theReservation, ownReservations, adminRes, slotsPackage, packages, adminStats}},
	ReservationStatus:  {invalidate: []keyFunc{theReservation, ownReservations, adminRes, adminStats}},
	ReservationPayment: {invalidate: []keyFunc{theReservation, ownReservations, adminRes, adminStats}},
	ReservationDelete: {
		invalidate: []keyFunc{theReservation, ownReservations, adminRes, adminStats},
		strike:     []keyFunc{ownReservations},
		refetch:    []keyFunc{ownReservations},
	},

	ReviewCreate: {invalidate: []keyFunc{adminReviews, ownReviews, parentRes, adminStats}},
	ReviewDelete: {
		invalidate: []keyFunc{theReview, adminReviews, ownReviews, parentRes, adminStats},
		strike:     []keyFunc{adminReviews},
	},

	PackageCreate: {invalidate: []keyFunc{packages, destinations, adminStats}},
	PackageUpdate: {invalidate: []keyFunc{thePackage, packages, destinations, adminRes}},
	PackageDelete: {invalidate: []keyFunc{thePackage, packages, destinations, adminRes, adminReviews, adminStats}},

	HotelCreate: {invalidate: []keyFunc{fixed(Hotels())}},
	HotelUpdate: {invalidate: []keyFunc{theHotel, fixed(Hotels()), packages}},
	HotelDelete: {invalidate: []keyFunc{theHotel, fixed(Hotels()), packages}},

	AirlineCreate: {invalidate: []keyFunc{fixed(Airlines())}},
	AirlineUpdate: {invalidate: []keyFunc{theAirline, fixed(Airlines()), packages}},
	AirlineDelete: {invalidate: []keyFunc{theAirline, fixed(Airlines()), packages}},

	ConventionCreate: {invalidate: []keyFunc{fixed(Conventions())}},
	ConventionUpdate: {invalidate: []keyFunc{fixed(Conventions()), packages}},
	ConventionDelete: {invalidate: []keyFunc{fixed(Conventions()), packages}},

	UserSignUp:    {invalidate: []keyFunc{users, adminStats}},
	ProfileUpdate: {invalidate: []keyFunc{theProfile, users, adminRes, adminReviews}},
	ProfileAdmin:  {invalidate: []keyFunc{theProfile, users}},
}

// PlanFor resolves the keys m affects for target t.  Unknown mutations
// yield an empty plan.
func PlanFor(m Mutation, t Target) Plan {
	r, ok := rules[m]
	if !ok {
		return Plan{}
	}
	var p Plan
	for _, f := range r.invalidate {
		if k := f(t); k != "" {
			p.Invalidate = append(p.Invalidate, k)
		}
	}
	for _, f := range r.strike {
		if k := f(t); k != "" && t.ID != "" {
			p.Strike = append(p.Strike, Strike{List: k, ID: t.ID})
		}
	}
	for _, f := range r.refetch {
		if k := f(t); k != "" {
			p.Refetch = append(p.Refetch, k)
		}
	}
	return p
}

// Mutations lists every mutation in the table.
func Mutations() []Mutation {
	out := make([]Mutation, 0, len(rules))
	for m := range rules {
		out = append(out, m)
	}
	return out
}
