// Package authz decides whether an identity may see a view.  The decision
// is advisory for clients; the API enforces the same rules on its own
// routes through RequireView and ownership predicates in SQL.
package authz

import "net/url"

// AuthState is how far session restoration has progressed.
type AuthState int

const (
	AuthLoading AuthState = iota
	Anonymous
	Authenticated
)

// AdminFlag is the resolution state of the profile's is_admin lookup.
type AdminFlag int

const (
	AdminUnknown AdminFlag = iota // lookup not started
	AdminLoading
	AdminYes
	AdminNo
	AdminFailed
)

// Resolved reports whether the flag lookup has finished, successfully or not.
func (f AdminFlag) Resolved() bool { return f == AdminYes || f == AdminNo || f == AdminFailed }

// AdminFromLookup converts a finished is_admin lookup into a flag.
func AdminFromLookup(isAdmin bool, err error) AdminFlag {
	switch {
	case err != nil:
		return AdminFailed
	case isAdmin:
		return AdminYes
	}
	return AdminNo
}

// Identity is what the gate knows about the caller.
type Identity struct {
	State         AuthState
	UserID        string
	EmailVerified bool
	Admin         AdminFlag
}

// Outcome of a gate decision.
type Outcome string

const (
	Allow   Outcome = "allow"
	Deny    Outcome = "deny"
	Pending Outcome = "pending"
)

// Reason explains a Deny or Pending outcome.
type Reason string

const (
	ReasonLoading          Reason = "loading"
	ReasonUnauthenticated  Reason = "unauthenticated"
	ReasonUnverified       Reason = "email_unverified"
	ReasonNotAdmin         Reason = "admin_required"
	ReasonAdminCheckFailed Reason = "admin_check_failed"
)

// Redirect targets.
const (
	LoginPath       = "/auth/login"
	VerifyEmailPath = "/auth/verify-email"
	DefaultPath     = "/dashboard"
)

// Decision is the result of Authorize.  Redirect is set only for Deny.
type Decision struct {
	Outcome  Outcome `json:"outcome"`
	Reason   Reason  `json:"reason,omitempty"`
	Redirect string  `json:"redirect,omitempty"`
}

// Authorize decides whether id may see v.  A denied login redirect returns
// to v's own path.
func Authorize(v View, id Identity) Decision {
	return AuthorizeAt(v, id, v.Path)
}

// AuthorizeAt is Authorize with an explicit location to come back to after
// signing in.  The checks run in a fixed order: anything still loading
// yields Pending, then a missing session, then an unverified email, then
// a missing admin flag.
func AuthorizeAt(v View, id Identity, location string) Decision {
	if v.Audience == Public {
		return Decision{Outcome: Allow}
	}
	if id.State == AuthLoading {
		return Decision{Outcome: Pending, Reason: ReasonLoading}
	}
	if v.Audience == Admin && id.State == Authenticated && !id.Admin.Resolved() {
		return Decision{Outcome: Pending, Reason: ReasonLoading}
	}
	if id.State != Authenticated {
		return Decision{Outcome: Deny, Reason: ReasonUnauthenticated, Redirect: LoginRedirect(location)}
	}
	if !id.EmailVerified {
		return Decision{Outcome: Deny, Reason: ReasonUnverified, Redirect: VerifyEmailPath}
	}
	if v.Audience == Admin {
		switch id.Admin {
		case AdminYes:
		case AdminFailed:
			return Decision{Outcome: Deny, Reason: ReasonAdminCheckFailed, Redirect: DefaultPath}
		default:
			return Decision{Outcome: Deny, Reason: ReasonNotAdmin, Redirect: DefaultPath}
		}
	}
	return Decision{Outcome: Allow}
}

// LoginRedirect builds the login URL that returns to location afterwards.
func LoginRedirect(location string) string {
	if location == "" {
		return LoginPath
	}
	return LoginPath + "?next=" + url.QueryEscape(location)
}
