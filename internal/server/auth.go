package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	authdomain "github.com/smallbiznis/billable/internal/auth/domain"
)

func (s *Server) signup(c *gin.Context) {
	var in authdomain.SignupInput
	if err := c.ShouldBindJSON(&in); err != nil {
		AbortWithError(c, errBadRequest)
		return
	}
	id, err := s.auth.Signup(c.Request.Context(), in)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	s.sessions.Set(c, id.SessionID)
	c.JSON(http.StatusCreated, id)
}

func (s *Server) signin(c *gin.Context) {
	var in authdomain.SigninInput
	if err := c.ShouldBindJSON(&in); err != nil {
		AbortWithError(c, errBadRequest)
		return
	}
	id, err := s.auth.Signin(c.Request.Context(), in)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	s.sessions.Set(c, id.SessionID)
	c.JSON(http.StatusOK, id)
}

func (s *Server) signout(c *gin.Context) {
	if sid, ok := s.sessions.Read(c); ok {
		_ = s.auth.Signout(c.Request.Context(), sid)
	}
	s.sessions.Clear(c)
	c.Status(http.StatusNoContent)
}

func (s *Server) me(c *gin.Context) {
	c.JSON(http.StatusOK, identity(c))
}
