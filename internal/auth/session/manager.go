// Package session manages the browser session cookie.
package session

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/smallbiznis/billable/internal/config"
)

const CookieName = "_sid"

type Manager struct {
	secure bool
	maxAge int
}

func NewManager(cfg config.Config) *Manager {
	return &Manager{
		secure: cfg.AuthCookieSecure,
		maxAge: int((7 * 24 * time.Hour).Seconds()),
	}
}

func (m *Manager) Set(c *gin.Context, sessionID string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(CookieName, sessionID, m.maxAge, "/", "", m.secure, true)
}

func (m *Manager) Clear(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(CookieName, "", -1, "/", "", m.secure, true)
}

func (m *Manager) Read(c *gin.Context) (string, bool) {
	v, err := c.Cookie(CookieName)
	if err != nil || v == "" {
		return "", false
	}
	return v, true
}
