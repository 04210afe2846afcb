package httpapi

import (
	"encoding/base64"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/markbates/goth/gothic"

	"codeberg.org/kcchat/server/internal/apierr"
	"codeberg.org/kcchat/server/internal/logger"
)

// AuthResponse is returned in place of a redirect when the client
// didn't supply a redirect_url (e.g. a non-browser caller probing the
// flow directly).
type AuthResponse struct {
	IDToken string `json:"id_token"`
}

// beginAuthHandler godoc
// @Summary Start the Google OAuth login flow
// @Description Redirects to Google's consent screen. The optional
// @Description redirect_url is round-tripped through OAuth state and
// @Description appended with ?token= on return.
// @Tags auth
// @Param redirect_url query string false "where to send the browser back to"
// @Success 302 {string} string "redirect to Google"
// @Router /auth/google [get]
func (s *Server) beginAuthHandler(c *gin.Context) {
	q := c.Request.URL.Query()
	q.Set("provider", "google")

	if redirectURL := c.Query("redirect_url"); redirectURL != "" {
		q.Set("state", base64.URLEncoding.EncodeToString([]byte(redirectURL)))
	}

	c.Request.URL.RawQuery = q.Encode()

	gothic.BeginAuthHandler(c.Writer, c.Request)
}

// callbackHandler godoc
// @Summary Google OAuth callback
// @Description Completes the OAuth dance and hands back the Google
// @Description id-token the WebSocket hello/authenticated frames
// @Description expect in their "token" field. Verification of that
// @Description token itself happens independently, per spec.md §4.4,
// @Description when the client presents it to the chat socket.
// @Tags auth
// @Produce json
// @Success 200 {object} AuthResponse
// @Success 307 {string} string "redirect with ?token="
// @Failure 500 {object} apierr.Response
// @Router /auth/google/callback [get]
func (s *Server) callbackHandler(c *gin.Context) {
	redirectURL := extractRedirectURL(c.Query("state"))

	q := c.Request.URL.Query()
	q.Set("provider", "google")
	c.Request.URL.RawQuery = q.Encode()

	gothUser, err := gothic.CompleteUserAuth(c.Writer, c.Request)
	if err != nil {
		s.authFailed(c, redirectURL, "oauth callback failed", err)
		return
	}

	if gothUser.IDToken == "" {
		s.authFailed(c, redirectURL, "provider did not return an id token", nil)
		return
	}

	if redirectURL != "" {
		if parsed, parseErr := url.Parse(redirectURL); parseErr == nil {
			query := parsed.Query()
			query.Set("token", gothUser.IDToken)
			parsed.RawQuery = query.Encode()
			c.Redirect(http.StatusTemporaryRedirect, parsed.String())
			return
		}
	}

	c.JSON(http.StatusOK, AuthResponse{IDToken: gothUser.IDToken})
}

func extractRedirectURL(state string) string {
	if state == "" {
		return ""
	}
	decoded, err := base64.URLEncoding.DecodeString(state)
	if err != nil {
		return ""
	}
	return string(decoded)
}

func (s *Server) authFailed(c *gin.Context, redirectURL, message string, err error) {
	if redirectURL != "" {
		if parsed, parseErr := url.Parse(redirectURL); parseErr == nil {
			query := parsed.Query()
			query.Set("error", message)
			parsed.RawQuery = query.Encode()
			c.Redirect(http.StatusTemporaryRedirect, parsed.String())
			return
		}
	}

	if err != nil {
		apierr.InternalError(c, message, err)
		return
	}
	logger.Error("oauth callback rejected", "reason", message)
	apierr.BadRequest(c, message)
}
