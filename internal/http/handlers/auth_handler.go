// README: Account handlers (sign-up, sign-in, Google sign-in, sign-out, current user).
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"skyplan/internal/http/middleware"
	"skyplan/internal/modules/aiusage"
	"skyplan/internal/modules/auth"
)

type AuthHandler struct {
	auth  *auth.Service
	usage *aiusage.Service
}

func NewAuthHandler(svc *auth.Service, usage *aiusage.Service) *AuthHandler {
	return &AuthHandler{auth: svc, usage: usage}
}

type signUpReq struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signInReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type googleReq struct {
	IDToken string `json:"idToken"`
}

type sessionResp struct {
	User         auth.User `json:"user"`
	IDToken      string    `json:"idToken"`
	RefreshToken string    `json:"refreshToken,omitempty"`
	ExpiresIn    int64     `json:"expiresIn"`
}

func toSessionResp(s *auth.Session) sessionResp {
	return sessionResp{
		User:         s.User,
		IDToken:      s.IDToken,
		RefreshToken: s.RefreshToken,
		ExpiresIn:    s.ExpiresInSeconds(),
	}
}

// SignUp handles POST /api/auth/signup.
func (h *AuthHandler) SignUp(c *gin.Context) {
	var req signUpReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	sess, err := h.auth.SignUp(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		writeAuthError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, toSessionResp(sess))
}

// SignIn handles POST /api/auth/signin.
func (h *AuthHandler) SignIn(c *gin.Context) {
	var req signInReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	sess, err := h.auth.SignInWithEmail(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeAuthError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toSessionResp(sess))
}

// Google handles POST /api/auth/google.
func (h *AuthHandler) Google(c *gin.Context) {
	var req googleReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	sess, err := h.auth.SignInWithGoogle(c.Request.Context(), req.IDToken)
	if err != nil {
		writeAuthError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toSessionResp(sess))
}

// SignOut handles POST /api/auth/signout.
func (h *AuthHandler) SignOut(c *gin.Context) {
	if err := h.auth.SignOut(c.Request.Context(), middleware.CallerUID(c)); err != nil {
		writeAuthError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Me handles GET /api/auth/me and reports the caller's remaining quota.
func (h *AuthHandler) Me(c *gin.Context) {
	ctx := c.Request.Context()
	user, err := h.auth.CurrentUser(ctx, middleware.CallerToken(c))
	if err != nil {
		writeAuthError(c, err)
		return
	}
	resp := gin.H{"user": user}
	if h.usage != nil {
		usage, err := h.usage.Usage(ctx, user.UID)
		if err != nil {
			_ = c.Error(err)
		} else {
			resp["usage"] = usage
		}
	}
	writeJSON(c, http.StatusOK, resp)
}

func writeAuthError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, auth.ErrBadRequest):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(c, http.StatusUnauthorized, err.Error())
	case errors.Is(err, auth.ErrEmailExists):
		writeError(c, http.StatusConflict, err.Error())
	case errors.Is(err, auth.ErrUnavailable):
		writeError(c, http.StatusServiceUnavailable, err.Error())
	default:
		_ = c.Error(err)
		writeError(c, http.StatusBadGateway, "identity provider error")
	}
}
