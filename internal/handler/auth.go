package handler

import (
	"net/http" // HTTP status codes and primitives
	"strings"  // string manipulation utilities
	"time"

	"github.com/labstack/echo/v4" // Echo framework for HTTP routing

	"github.com/iliyamo/travel-booking/internal/middleware"
	"github.com/iliyamo/travel-booking/internal/model"
	"github.com/iliyamo/travel-booking/internal/session"
)

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Sessions *session.Manager
}

func NewAuthHandler(m *session.Manager) *AuthHandler {
	return &AuthHandler{Sessions: m}
}

// ----- DTOs -----

type registerReq struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}
type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}
type emailReq struct {
	Email string `json:"email"`
}
type confirmReq struct {
	Token string `json:"token"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}
type userPart struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}
type authResp struct {
	User    userPart  `json:"user"`
	Access  tokenPart `json:"access"`
	Refresh tokenPart `json:"refresh"`
}
type sessionResp struct {
	User          userPart       `json:"user"`
	EmailVerified bool           `json:"email_verified"`
	Profile       *model.Profile `json:"profile,omitempty"`
}

func grantResp(g *session.Grant) authResp {
	return authResp{
		User:    userPart{ID: g.UserID, Email: g.Email},
		Access:  tokenPart{Token: g.Access.Token, Expires: g.Access.Exp},
		Refresh: tokenPart{Token: g.Refresh.Raw, Expires: g.Refresh.Exp}, // raw back to client
	}
}

// Register creates the account and mails a confirmation link.  No tokens
// are returned: login is refused until the address is confirmed.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	p, err := h.Sessions.SignUp(ctx, session.SignUpInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"profile": p,
		"message": "Check your inbox to confirm your email address.",
	})
}

// Login: verify and return new pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return badRequest(c, "email/password required")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	g, err := h.Sessions.SignIn(ctx, req.Email, req.Password)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, grantResp(g))
}

// Refresh rotates the pair: the presented refresh token is revoked and a new
// access/refresh pair is returned.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return badRequest(c, "refresh_token required")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	g, err := h.Sessions.Refresh(ctx, req.RefreshToken)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, grantResp(g))
}

// Logout revokes the given refresh token, or every token of the caller when
// the body is empty.  The route sits behind JWTAuth.
func (h *AuthHandler) Logout(c echo.Context) error {
	uid, err := currentUser(c)
	if uid == "" {
		return err
	}
	var req refreshReq
	_ = c.Bind(&req) // an empty body means "everywhere"

	ctx, cancel := reqCtx(c)
	defer cancel()

	if _, err := h.Sessions.SignOut(ctx, uid, strings.TrimSpace(req.RefreshToken)); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// SendVerification mails a fresh confirmation link.  The answer is the same
// whether or not the address is registered.
func (h *AuthHandler) SendVerification(c echo.Context) error {
	var req emailReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Email) == "" {
		return badRequest(c, "email required")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Sessions.SendVerification(ctx, req.Email); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusAccepted, echo.Map{"message": "If the address is registered, a confirmation link is on its way."})
}

// ConfirmEmail consumes a verification token.  The token is read from the
// JSON body or, for links opened directly, the "token" query parameter.
func (h *AuthHandler) ConfirmEmail(c echo.Context) error {
	var req confirmReq
	_ = c.Bind(&req)
	if req.Token == "" {
		req.Token = c.QueryParam("token")
	}
	if strings.TrimSpace(req.Token) == "" {
		return badRequest(c, "token required")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	uid, err := h.Sessions.ConfirmEmail(ctx, req.Token)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"user_id": uid, "email_verified": true})
}

// Session restores the caller's session from the bearer token: identity,
// verification state and profile.
func (h *AuthHandler) Session(c echo.Context) error {
	raw := strings.TrimSpace(strings.TrimPrefix(c.Request().Header.Get(echo.HeaderAuthorization), "Bearer "))
	if raw == "" || middleware.UserID(c) == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	info, err := h.Sessions.Session(ctx, raw)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, sessionResp{
		User:          userPart{ID: info.UserID, Email: info.Email},
		EmailVerified: info.EmailVerified,
		Profile:       info.Profile,
	})
}
