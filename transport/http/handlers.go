package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/layer-3/garuda/adapters/provider"
	"github.com/layer-3/garuda/core"
	"github.com/layer-3/garuda/ports"
	"github.com/layer-3/garuda/service"
)

// AuthHandlers contains HTTP handlers for the auth endpoints. Request
// parsing lives here; protocol logic stays in the service layer.
type AuthHandlers struct {
	coordinator *service.ReconnectCoordinator
	protocol    *service.SessionProtocol
	resolver    *service.IdentityResolver
	password    *provider.PasswordConnector
	oauth       *provider.OAuthConnector
	tokenizer   ports.Tokenizer
	identities  ports.IdentityStore
	sessions    ports.SessionStore
	events      ports.EventPublisher
}

// NewAuthHandlers creates new auth handlers. password, oauth and events may
// be nil when the deployment does not offer those flows.
func NewAuthHandlers(
	coordinator *service.ReconnectCoordinator,
	protocol *service.SessionProtocol,
	resolver *service.IdentityResolver,
	password *provider.PasswordConnector,
	oauth *provider.OAuthConnector,
	tokenizer ports.Tokenizer,
	identities ports.IdentityStore,
	sessions ports.SessionStore,
	events ports.EventPublisher,
) *AuthHandlers {
	return &AuthHandlers{
		coordinator: coordinator,
		protocol:    protocol,
		resolver:    resolver,
		password:    password,
		oauth:       oauth,
		tokenizer:   tokenizer,
		identities:  identities,
		sessions:    sessions,
		events:      events,
	}
}

// Connect establishes a wallet session, reusing a stored one when possible,
// and resolves the wallet onto its canonical user.
func (h *AuthHandlers) Connect(c *gin.Context) {
	session, err := h.coordinator.Connect(c.Request.Context())
	if err != nil {
		h.renderConnectError(c, err)
		return
	}

	user, err := h.resolver.Resolve(c.Request.Context(), core.LoginEvent{
		Address:  session.IdentityKey,
		Provider: core.CredentialWallet,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve identity"})
		return
	}

	h.renderLogin(c, session, user)
}

// PasswordLogin authenticates an email/password pair.
func (h *AuthHandlers) PasswordLogin(c *gin.Context) {
	if h.password == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Password login is not enabled"})
		return
	}

	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	event, err := h.password.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, core.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Authentication failed"})
		return
	}

	h.finishExternalLogin(c, core.CredentialPassword, event)
}

// OAuthURL returns the issuer's authorization URL for the given state.
func (h *AuthHandlers) OAuthURL(c *gin.Context) {
	if h.oauth == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "OAuth login is not enabled"})
		return
	}

	state := c.Query("state")
	if state == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "state is required"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": h.oauth.LoginURL(state)})
}

// OAuthCallback exchanges the authorization code and logs the identity in.
func (h *AuthHandlers) OAuthCallback(c *gin.Context) {
	if h.oauth == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "OAuth login is not enabled"})
		return
	}

	var req struct {
		Code string `json:"code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	event, err := h.oauth.Exchange(c.Request.Context(), req.Code)
	if err != nil {
		if errors.Is(err, core.ErrProviderUnavailable) {
			c.JSON(http.StatusBadGateway, gin.H{"error": "OAuth provider unavailable"})
			return
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication failed"})
		return
	}

	h.finishExternalLogin(c, core.CredentialOAuth, event)
}

// Validate reports whether the presented bearer token still maps to a valid
// stored session. Expiry and signature failures are not distinguished.
func (h *AuthHandlers) Validate(c *gin.Context) {
	var req struct {
		Token string `json:"token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	identityKey, _, err := h.tokenizer.TokenToSubject(req.Token)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"valid": false})
		return
	}

	c.JSON(http.StatusOK, gin.H{"valid": h.sessionValid(c, identityKey)})
}

// Logout tears down all sessions and notifies other services.
func (h *AuthHandlers) Logout(c *gin.Context) {
	ctx := c.Request.Context()

	var identityKey string
	if session := h.coordinator.Session(); session != nil {
		identityKey = session.IdentityKey
	}

	if err := h.coordinator.Disconnect(ctx); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to logout"})
		return
	}
	for _, kind := range []core.CredentialKind{core.CredentialOAuth, core.CredentialPassword} {
		if err := h.sessions.Clear(ctx, kind); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to logout"})
			return
		}
	}

	if h.events != nil && identityKey != "" {
		// Best effort: the sessions are already gone, which is the part
		// that matters.
		_ = h.events.PublishLogout(ctx, identityKey)
	}

	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// Me returns the canonical user behind the authenticated request.
func (h *AuthHandlers) Me(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "User not found in context"})
		return
	}

	user, err := h.identities.FindByID(c.Request.Context(), userID.(string))
	if err != nil || user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	c.JSON(http.StatusOK, user)
}

func (h *AuthHandlers) finishExternalLogin(c *gin.Context, kind core.CredentialKind, event core.LoginEvent) {
	ctx := c.Request.Context()

	user, err := h.resolver.Resolve(ctx, event)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve identity"})
		return
	}

	session, err := h.protocol.IssueExternal(ctx, kind, event.Key())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create session"})
		return
	}

	h.renderLogin(c, session, user)
}

func (h *AuthHandlers) renderLogin(c *gin.Context, session *core.Session, user *core.CanonicalUser) {
	token, err := h.tokenizer.SessionToToken(session, user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"token_type": "Bearer",
		"expires_at": session.ExpiresAt,
		"user":       user,
	})
}

// sessionValid checks every session slot for one matching the identity key.
// Wallet sessions go through full validation; external sessions carry no
// signature, so expiry is the whole check.
func (h *AuthHandlers) sessionValid(c *gin.Context, identityKey string) bool {
	ctx := c.Request.Context()

	if session, err := h.sessions.Load(ctx, core.CredentialWallet); err == nil && session != nil {
		if session.IdentityKey == identityKey && h.protocol.Validate(session) {
			return true
		}
	}
	for _, kind := range []core.CredentialKind{core.CredentialOAuth, core.CredentialPassword} {
		session, err := h.sessions.Load(ctx, kind)
		if err != nil || session == nil {
			continue
		}
		if session.IdentityKey == identityKey && !session.Expired(time.Now()) {
			return true
		}
	}
	return false
}

// renderConnectError maps the connect error taxonomy to responses: declines
// and missing providers get actionable messages, transient failures a
// generic retry hint, everything else a collapsed 401.
func (h *AuthHandlers) renderConnectError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, core.ErrUserRejected):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Connection request was rejected in the wallet"})
	case errors.Is(err, core.ErrProviderUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "No wallet provider available"})
	case errors.Is(err, core.ErrProviderBusy):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Wallet is busy, please try again"})
	case errors.Is(err, core.ErrAlreadyConnecting):
		c.JSON(http.StatusConflict, gin.H{"error": "A connection attempt is already in progress"})
	default:
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication failed"})
	}
}
