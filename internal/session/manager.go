package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/iliyamo/travel-booking/internal/config"
	"github.com/iliyamo/travel-booking/internal/model"
	"github.com/iliyamo/travel-booking/internal/queue"
	"github.com/iliyamo/travel-booking/internal/repository"
	"github.com/iliyamo/travel-booking/internal/utils"
)

// User-facing auth errors.  Their messages are shown as-is by clients.
var (
	ErrInvalidCredentials  = errors.New("Invalid email or password. Please try again.")
	ErrEmailNotVerified    = errors.New("Please verify your email address before logging in.")
	ErrAlreadyRegistered   = errors.New("This email is already registered. Try logging in instead.")
	ErrInvalidSignUp       = errors.New("A valid email and a password of at least 6 characters are required.")
	ErrInvalidSession      = errors.New("Your session has expired. Please sign in again.")
	ErrInvalidVerification = errors.New("This confirmation link is invalid or has expired.")
)

// Mailer delivers verification emails.  *queue.Publisher implements it.
type Mailer interface {
	PublishVerification(ctx context.Context, msg queue.VerificationEmail) error
}

// Manager runs the account lifecycle against the users, profiles and token
// tables and publishes an Event for every state change.
type Manager struct {
	cfg    config.Config
	users  *repository.ProfileRepo
	tokens *repository.TokenRepo
	mailer Mailer
	broker *Broker
	logger *slog.Logger
}

func NewManager(cfg config.Config, users *repository.ProfileRepo, tokens *repository.TokenRepo,
	mailer Mailer, broker *Broker, logger *slog.Logger) *Manager {
	return &Manager{cfg: cfg, users: users, tokens: tokens, mailer: mailer, broker: broker, logger: logger.With("component", "session")}
}

// SignUpInput is the registration form.
type SignUpInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// Grant is the token pair handed out by SignIn and Refresh.
type Grant struct {
	UserID  string
	Email   string
	Access  utils.AccessToken
	Refresh utils.RefreshToken
}

// Info is a restored session.
type Info struct {
	UserID        string
	Email         string
	EmailVerified bool
	Profile       *model.Profile
}

// SignUp creates the account and its profile and mails a verification link.
// The new user is not signed in: sign-in is refused until the address is
// confirmed.
func (m *Manager) SignUp(ctx context.Context, in SignUpInput) (*model.Profile, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if !strings.Contains(email, "@") || len(in.Password) < utils.MinPasswordLength {
		return nil, ErrInvalidSignUp
	}
	u, p, err := m.users.Create(ctx, repository.NewUser{
		Email:     email,
		Password:  in.Password,
		FirstName: optional(in.FirstName),
		LastName:  optional(in.LastName),
	}, m.cfg.BcryptCost)
	if errors.Is(err, repository.ErrEmailExists) {
		return nil, ErrAlreadyRegistered
	}
	if err != nil {
		return nil, err
	}
	m.sendVerification(ctx, u)
	m.broker.Publish(Event{Type: SignedUp, UserID: u.ID, Email: u.Email})
	return p, nil
}

// SignIn checks the password and issues a token pair.  Unverified accounts
// are rejected with ErrEmailNotVerified.
func (m *Manager) SignIn(ctx context.Context, email, password string) (*Grant, error) {
	u, err := m.users.GetUserByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	if !u.Verified() {
		return nil, ErrEmailNotVerified
	}
	g, err := m.issue(ctx, u)
	if err != nil {
		return nil, err
	}
	m.broker.Publish(Event{Type: SignedIn, UserID: u.ID, Email: u.Email})
	return g, nil
}

// SignOut revokes one refresh token when refreshRaw is set, otherwise all
// of userID's tokens.  It returns the user that was signed out.
func (m *Manager) SignOut(ctx context.Context, userID, refreshRaw string) (string, error) {
	if raw := strings.TrimSpace(refreshRaw); raw != "" {
		hash := utils.HashToken(raw)
		owner, err := m.tokens.ValidateRefresh(ctx, hash)
		if errors.Is(err, repository.ErrInvalidToken) {
			return "", ErrInvalidSession
		}
		if err != nil {
			return "", err
		}
		if userID != "" && owner != userID {
			return "", ErrInvalidSession
		}
		if err := m.tokens.RevokeByHash(ctx, hash); errors.Is(err, repository.ErrInvalidToken) {
			return "", ErrInvalidSession
		} else if err != nil {
			return "", err
		}
		userID = owner
	} else {
		if userID == "" {
			return "", ErrInvalidSession
		}
		if err := m.tokens.RevokeAllForUser(ctx, userID); err != nil {
			return "", err
		}
	}
	m.broker.Publish(Event{Type: SignedOut, UserID: userID})
	return userID, nil
}

// Refresh rotates a refresh token: the old one is revoked and a new pair
// is issued.
func (m *Manager) Refresh(ctx context.Context, refreshRaw string) (*Grant, error) {
	hash := utils.HashToken(strings.TrimSpace(refreshRaw))
	userID, err := m.tokens.ValidateRefresh(ctx, hash)
	if errors.Is(err, repository.ErrInvalidToken) {
		return nil, ErrInvalidSession
	}
	if err != nil {
		return nil, err
	}
	if err := m.tokens.RevokeByHash(ctx, hash); errors.Is(err, repository.ErrInvalidToken) {
		return nil, ErrInvalidSession
	} else if err != nil {
		return nil, err
	}
	u, err := m.users.GetUser(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidSession
	}
	if err != nil {
		return nil, err
	}
	if !u.Verified() {
		return nil, ErrEmailNotVerified
	}
	g, err := m.issue(ctx, u)
	if err != nil {
		return nil, err
	}
	m.broker.Publish(Event{Type: Refreshed, UserID: u.ID, Email: u.Email})
	return g, nil
}

// Session restores the identity behind an access token.  Accounts whose
// email is not verified do not get a session.
func (m *Manager) Session(ctx context.Context, accessRaw string) (*Info, error) {
	claims, err := utils.ParseAccessToken(m.cfg.JWTSecret, accessRaw)
	if err != nil {
		return nil, ErrInvalidSession
	}
	u, err := m.users.GetUser(ctx, claims.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidSession
	}
	if err != nil {
		return nil, err
	}
	if !u.Verified() {
		return nil, ErrEmailNotVerified
	}
	p, err := m.users.Get(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	return &Info{UserID: u.ID, Email: u.Email, EmailVerified: true, Profile: p}, nil
}

// SendVerification mails a new confirmation link.  Unknown or already
// verified addresses are accepted silently so the endpoint cannot be used
// to probe for accounts.
func (m *Manager) SendVerification(ctx context.Context, email string) error {
	u, err := m.users.GetUserByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if !u.Verified() {
		m.sendVerification(ctx, u)
	}
	return nil
}

// ConfirmEmail spends a verification token and marks the address verified.
func (m *Manager) ConfirmEmail(ctx context.Context, raw string) (string, error) {
	userID, err := m.tokens.ConsumeVerification(ctx, utils.HashToken(strings.TrimSpace(raw)))
	if errors.Is(err, repository.ErrInvalidToken) {
		return "", ErrInvalidVerification
	}
	if err != nil {
		return "", err
	}
	if err := m.users.MarkVerified(ctx, userID); err != nil {
		return "", err
	}
	m.broker.Publish(Event{Type: EmailVerified, UserID: userID})
	return userID, nil
}

func (m *Manager) issue(ctx context.Context, u *model.User) (*Grant, error) {
	access, err := utils.NewAccessToken(m.cfg.JWTSecret, u.ID, u.Verified(), m.cfg.AccessTTLMin)
	if err != nil {
		return nil, fmt.Errorf("issue access: %w", err)
	}
	refresh, err := utils.NewRefreshToken(m.cfg.RefreshTTLDays)
	if err != nil {
		return nil, fmt.Errorf("issue refresh: %w", err)
	}
	if err := m.tokens.StoreRefresh(ctx, u.ID, utils.HashToken(refresh.Raw), refresh.Exp); err != nil {
		return nil, err
	}
	return &Grant{UserID: u.ID, Email: u.Email, Access: access, Refresh: refresh}, nil
}

// sendVerification stores a fresh token and queues the email.  Failures
// are logged: the account exists either way and the user can ask for
// another link.
func (m *Manager) sendVerification(ctx context.Context, u *model.User) {
	tok, err := utils.NewVerificationToken(m.cfg.VerifyTTLHours)
	if err != nil {
		m.logger.Error("verification token", "user_id", u.ID, "error", err)
		return
	}
	if err := m.tokens.StoreVerification(ctx, u.ID, utils.HashToken(tok.Raw), tok.Exp); err != nil {
		m.logger.Error("store verification token", "user_id", u.ID, "error", err)
		return
	}
	msg := queue.VerificationEmail{UserID: u.ID, Email: u.Email, Link: verifyLink(m.cfg.VerifyRedirectURL, tok.Raw), ExpiresAt: tok.Exp}
	if err := m.mailer.PublishVerification(ctx, msg); err != nil {
		m.logger.Warn("queue verification email", "user_id", u.ID, "error", err)
	}
}

func verifyLink(base, token string) string {
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + "token=" + url.QueryEscape(token)
}

func optional(s string) *string {
	if s = strings.TrimSpace(s); s == "" {
		return nil
	}
	return &s
}
