package handler

import (
	"context"
	"embed"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/rs/xid"
	"golang.org/x/oauth2"
)

//go:embed templates/*.html
var templateFS embed.FS

// stateCookie holds the nonce bound to the signed OAuth state.
const stateCookie = "oauth_state"

// SessionManager is what AuthHandler needs from service.SessionService.
type SessionManager interface {
	AuthorizationURL(state string) string
	ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error)
	ConnectionStatus(ctx context.Context) (bool, error)
}

// StateSigner issues and verifies the OAuth state parameter.
// *auth.StateSigner implements it.
type StateSigner interface {
	Issue(nonce string) (string, error)
	Verify(state string) (string, error)
}

// AuthHandler manages the operator's Google account link.
//
// HANDLER RESPONSIBILITIES:
//   - HandleAuthURL   → hand the SPA a consent URL to open in a popup
//   - HandleCallback  → receive the code, exchange and store the token
//   - HandleStatus    → tell the SPA whether an account is linked
//
// There is no operator login: anyone who can reach /api/auth/url can link
// an account. The state check only proves that the callback belongs to a
// consent flow this server started in the same browser.
type AuthHandler struct {
	session       SessionManager
	states        StateSigner
	pages         *template.Template
	secureCookies bool
	logger        *slog.Logger
}

// NewAuthHandler creates an AuthHandler. secureCookies marks the state
// cookie Secure; set it when the site is served over HTTPS.
func NewAuthHandler(session SessionManager, states StateSigner, secureCookies bool, logger *slog.Logger) (*AuthHandler, error) {
	pages, err := template.ParseFS(templateFS, "templates/callback.html")
	if err != nil {
		return nil, err
	}
	return &AuthHandler{
		session:       session,
		states:        states,
		pages:         pages,
		secureCookies: secureCookies,
		logger:        logger,
	}, nil
}

// authURLResponse is the body of GET /api/auth/url.
type authURLResponse struct {
	URL string `json:"url"`
}

// statusResponse is the body of GET /api/auth/status.
type statusResponse struct {
	Connected bool `json:"connected"`
}

// HandleAuthURL returns the Google consent URL.
//
// HTTP: GET /api/auth/url
//
// CSRF PROTECTION VIA STATE:
// A random nonce goes into a short-lived HttpOnly cookie, and a signed
// state token carrying the same nonce goes into the URL. The callback
// accepts only a state whose signature is valid and whose nonce matches
// the cookie.
func (h *AuthHandler) HandleAuthURL(w http.ResponseWriter, r *http.Request) {
	nonce := xid.New().String()

	state, err := h.states.Issue(nonce)
	if err != nil {
		h.logger.Error("auth url: issuing state failed", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    nonce,
		Path:     "/",
		MaxAge:   600, // 10 minutes
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, authURLResponse{URL: h.session.AuthorizationURL(state)})
}

// HandleCallback completes the consent flow.
//
// HTTP: GET /auth/google/callback?code=xxx&state=yyy
//
// FLOW:
//  1. Validate the state parameter (CSRF check)
//  2. Bail out if Google reported an error (operator denied access)
//  3. Exchange the code and store the credential record
//  4. Render a page that notifies the opener window and closes itself
func (h *AuthHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	// --- Step 1: Validate CSRF state ---
	cookie, err := r.Cookie(stateCookie)
	if err != nil || cookie.Value == "" {
		h.logger.Warn("auth callback: missing state cookie")
		h.renderFailure(w, http.StatusBadRequest, "The sign-in link expired or was opened in another browser.")
		return
	}

	nonce, err := h.states.Verify(query.Get("state"))
	if err != nil || nonce != cookie.Value {
		h.logger.Warn("auth callback: state mismatch")
		h.renderFailure(w, http.StatusBadRequest, "The sign-in link expired or was opened in another browser.")
		return
	}

	// Clear the state cookie; it's single-use
	http.SetCookie(w, &http.Cookie{
		Name:   stateCookie,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})

	// --- Step 2: Check if Google sent an error ---
	if errParam := query.Get("error"); errParam != "" {
		h.logger.Info("auth callback: authorization denied", slog.String("error", errParam))
		h.renderFailure(w, http.StatusBadRequest, "Access to Google Sheets was not granted.")
		return
	}

	code := query.Get("code")
	if code == "" {
		h.renderFailure(w, http.StatusBadRequest, "Google did not return an authorization code.")
		return
	}

	// --- Step 3: Exchange and store ---
	if _, err := h.session.ExchangeCode(r.Context(), code); err != nil {
		h.logger.Error("auth callback: exchange failed", slog.String("error", err.Error()))
		h.renderFailure(w, http.StatusInternalServerError, "Please close this window and try again.")
		return
	}

	// --- Step 4: Success page ---
	h.render(w, http.StatusOK, callbackPage{
		Title: "Connection Successful!",
		Lines: []string{
			"Your Google account is now linked to the wedding app.",
			"You can close this window now.",
		},
		Success: true,
	})
}

// HandleStatus reports whether a Google account is linked.
//
// HTTP: GET /api/auth/status
func (h *AuthHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	connected, err := h.session.ConnectionStatus(r.Context())
	if err != nil {
		h.logger.Error("auth status: store lookup failed", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Connected: connected})
}

// callbackPage is the data for templates/callback.html.
type callbackPage struct {
	Title   string
	Lines   []string
	Success bool
}

func (h *AuthHandler) renderFailure(w http.ResponseWriter, status int, line string) {
	h.render(w, status, callbackPage{
		Title: "Authentication failed",
		Lines: []string{line},
	})
}

func (h *AuthHandler) render(w http.ResponseWriter, status int, page callbackPage) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.pages.ExecuteTemplate(w, "callback", page); err != nil {
		h.logger.Error("failed to render template", slog.String("error", err.Error()))
	}
}
