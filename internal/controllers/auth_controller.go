package controllers

import (
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/RealZimboGuy/workflowrest/internal/config"
	"github.com/RealZimboGuy/workflowrest/internal/rest"
	"github.com/RealZimboGuy/workflowrest/internal/tracing"
	"github.com/RealZimboGuy/workflowrest/internal/util"
	"github.com/RealZimboGuy/workflowrest/pkg/workflowrest/core"
	"github.com/RealZimboGuy/workflowrest/pkg/workflowrest/domain"
	"golang.org/x/crypto/bcrypt"
)

const sessionCookie = "sessionId"

type AuthController struct {
	UserRepo UserRepo
}

func NewAuthController(userRepo UserRepo) *AuthController {
	return &AuthController{UserRepo: userRepo}
}

func enabled(u *domain.User) bool {
	return u != nil && (!u.Enabled.Valid || u.Enabled.Bool)
}

func (ac *AuthController) checkPassword(r *http.Request, username, password string) *domain.User {
	u, err := ac.UserRepo.FindByUsername(r.Context(), username)
	if err != nil {
		slog.Error("FindByUsername failed", "error", err)
		return nil
	}
	if !enabled(u) {
		return nil
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)); err != nil {
		return nil
	}
	return u
}

func (ac *AuthController) authenticate(r *http.Request) *domain.User {
	// 1) session cookie
	if c, err := r.Cookie(sessionCookie); err == nil && c.Value != "" {
		u, err := ac.UserRepo.FindBySessionID(r.Context(), c.Value, time.Now().UTC())
		if err == nil && enabled(u) {
			return u
		}
	}
	// 2) X-API-Key header
	if apiKey := r.Header.Get("X-API-Key"); apiKey != "" {
		u, err := ac.UserRepo.FindByApiKey(r.Context(), apiKey)
		if err == nil && enabled(u) {
			return u
		}
		return nil
	}
	// 3) HTTP basic
	if username, password, ok := r.BasicAuth(); ok {
		return ac.checkPassword(r, username, password)
	}
	return nil
}

// RequireAuth puts the authenticated user name on the request context or answers 401.
func (ac *AuthController) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u := ac.authenticate(r)
		if u == nil {
			w.Header().Set("WWW-Authenticate", `Basic realm="workflowrest"`)
			rest.WriteError(w, rest.NewScriptError(http.StatusUnauthorized, "Authentication required"))
			return
		}
		tracing.SetUser(r.Context(), u.Username)
		next(w, r.WithContext(core.WithUsername(r.Context(), u.Username)))
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type sessionModel struct {
	Username      string    `json:"username"`
	SessionExpiry time.Time `json:"sessionExpiry"`
}

func (ac *AuthController) handleLogin(w http.ResponseWriter, r *http.Request) {
	req, err := util.DecodeJSONBody[loginRequest](r)
	if err != nil {
		rest.WriteError(w, rest.NewScriptError(http.StatusBadRequest, "Could not parse JSON from request"))
		return
	}
	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" {
		rest.WriteError(w, rest.NewScriptError(http.StatusUnauthorized, "Username and password are required"))
		return
	}
	u := ac.checkPassword(r, username, req.Password)
	if u == nil {
		rest.WriteError(w, rest.NewScriptError(http.StatusUnauthorized, "Invalid username or password"))
		return
	}
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		slog.Error("rand.Read failed", "error", err)
		rest.WriteError(w, err)
		return
	}
	sessionID := hex.EncodeToString(buf)
	expiryHours := config.GetSystemSettingInteger(config.WEB_SESSION_EXPIRY_HOURS)
	expires := time.Now().Add(time.Duration(expiryHours) * time.Hour)
	if err := ac.UserRepo.UpdateSession(r.Context(), u.ID, sessionID, expires); err != nil {
		slog.Error("UpdateSession failed", "error", err)
		rest.WriteError(w, err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  expires,
	})
	rest.WriteData(w, sessionModel{Username: u.Username, SessionExpiry: expires.UTC()})
}

func (ac *AuthController) handleLogout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(sessionCookie); err == nil && c.Value != "" {
		if err := ac.UserRepo.ClearSessionBySessionID(r.Context(), c.Value); err != nil {
			slog.Warn("Failed to clear session during logout", "error", err)
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
	})
	w.WriteHeader(http.StatusNoContent)
}
