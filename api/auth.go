package api

import (
	"crypto/subtle"
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/example/image-browser/apperr"
)

// BasicAuth checks the Authorization header against the configured
// credentials and challenges the client when they do not match.
func (s *Server) BasicAuth() gin.HandlerFunc {
	username := []byte(s.config.Auth.Username)
	password := []byte(s.config.Auth.Password)
	challenge := fmt.Sprintf("Basic realm=%q", s.config.Auth.Realm)

	return func(c *gin.Context) {
		user, pass, ok := c.Request.BasicAuth()
		userOK := subtle.ConstantTimeCompare([]byte(user), username) == 1
		passOK := subtle.ConstantTimeCompare([]byte(pass), password) == 1
		if !ok || !userOK || !passOK {
			c.Header("WWW-Authenticate", challenge)
			respondError(c, apperr.New(apperr.KindUnauthorized, "Authentication required"))
			return
		}
		c.Next()
	}
}
