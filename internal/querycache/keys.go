// Package querycache caches read results under semantic keys and keeps them
// consistent after writes.  Reads go through Fetch, which serves fresh
// entries, collapses concurrent loads of one key, and retries failed reads.
// Writes call Apply once the store has accepted them; Apply looks the
// mutation up in a central table and invalidates, patches and refetches the
// affected keys in that order.
package querycache

import "strings"

// Key identifies one cached query result.  Keys are "kind" or "kind:arg".
type Key string

// Kind returns the part of k before the first colon.
func (k Key) Kind() string {
	kind, _, _ := strings.Cut(string(k), ":")
	return kind
}

// Arg returns the part of k after the first colon, or "".
func (k Key) Arg() string {
	_, arg, _ := strings.Cut(string(k), ":")
	return arg
}

const (
	KindPackages          = "packages"
	KindPackage           = "package"
	KindDestinations      = "destinations"
	KindHotels            = "hotels"
	KindHotel             = "hotel"
	KindAirlines          = "airlines"
	KindAirline           = "airline"
	KindConventions       = "conventions"
	KindReservations      = "reservations"
	KindReservation       = "reservation"
	KindAdminReservations = "admin-reservations"
	KindReviews           = "reviews"
	KindReview            = "review"
	KindAdminReviews      = "admin-reviews"
	KindProfile           = "profile"
	KindUsers             = "users"
	KindAdminStats        = "admin-stats"
)

func with(kind, arg string) Key {
	if arg == "" {
		return ""
	}
	return Key(kind + ":" + arg)
}

// Packages is the key of the unfiltered package catalog.
func Packages() Key { return KindPackages }

func Package(id string) Key { return with(KindPackage, id) }
func Destinations() Key { return KindDestinations }
func Hotels() Key { return KindHotels }
func Hotel(id string) Key { return with(KindHotel, id) }
func Airlines() Key { return KindAirlines }
func Airline(id string) Key { return with(KindAirline, id) }
func Conventions() Key { return KindConventions }
func Reservations(uid string) Key { return with(KindReservations, uid) }
func Reservation(id string) Key { return with(KindReservation, id) }
func AdminReservations() Key { return KindAdminReservations }
func Reviews(uid string) Key { return with(KindReviews, uid) }
func Review(id string) Key { return with(KindReview, id) }
func AdminReviews() Key { return KindAdminReviews }
func Profile(uid string) Key { return with(KindProfile, uid) }
func Users() Key { return KindUsers }
func AdminStats() Key { return KindAdminStats }

// UserKeys lists the keys scoped to one user.  They are dropped on sign-out.
func UserKeys(uid string) []Key {
	return []Key{Reservations(uid), Reviews(uid), Profile(uid)}
}
