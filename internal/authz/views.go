package authz

import (
	"sort"
	"strings"
)

// Audience is who a view is meant for.
type Audience string

const (
	Public Audience = "public"
	User   Audience = "user"
	Admin  Audience = "admin"
)

// View is a named page of the application.
type View struct {
	Name     string
	Path     string
	Audience Audience
}

var views = map[string]View{}

func register(name, path string, a Audience) View {
	v := View{Name: name, Path: path, Audience: a}
	views[name] = v
	return v
}

// Registered views.  User views are prefixed "user." and admin views
// "admin.".
var (
	Home          = register("home", "/", Public)
	Packages      = register("packages", "/packages", Public)
	PackageDetail = register("packages.detail", "/packages/:id", Public)
	Destinations  = register("destinations", "/destinations", Public)
	About         = register("about", "/about", Public)
	Contact       = register("contact", "/contact", Public)
	Login         = register("auth.login", LoginPath, Public)
	Register      = register("auth.register", "/auth/register", Public)
	VerifyEmail   = register("auth.verify-email", VerifyEmailPath, Public)
	ConfirmEmail  = register("auth.confirm", "/auth/confirm", Public)

	Dashboard         = register("user.dashboard", DefaultPath, User)
	ProfileEdit       = register("user.profile", "/profile/edit", User)
	ReservationDetail = register("user.reservations.detail", "/reservations/:id", User)
	AddReview         = register("user.reviews.add", "/reviews/add/:id", User)

	AdminHome         = register("admin.home", "/admin", Admin)
	AdminUsers        = register("admin.users", "/admin/users", Admin)
	AdminReservations = register("admin.reservations", "/admin/reservations", Admin)
	AdminReservation  = register("admin.reservations.detail", "/admin/reservations/:id", Admin)
	AdminPackages     = register("admin.packages", "/admin/packages", Admin)
	AdminHotels       = register("admin.hotels", "/admin/hotels", Admin)
	AdminAirlines     = register("admin.airlines", "/admin/airlines", Admin)
	AdminConventions  = register("admin.conventions", "/admin/conventions", Admin)
	AdminReviews      = register("admin.reviews", "/admin/reviews", Admin)
	AdminReview       = register("admin.reviews.detail", "/admin/reviews/:id", Admin)
)

// Lookup returns the view registered under name.
func Lookup(name string) (View, bool) {
	v, ok := views[strings.TrimSpace(name)]
	return v, ok
}

// Names lists every registered view name in order.
func Names() []string {
	out := make([]string, 0, len(views))
	for n := range views {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
