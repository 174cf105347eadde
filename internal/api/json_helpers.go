package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	perrors "github.com/zzenonn/partyphoto/internal/errors"
)

const maxBodyBytes = 1 << 20

// decodeJSON binds the request body into dest. An empty body decodes as {}.
// On failure it writes a 400 and returns false.
func decodeJSON(c *gin.Context, dest interface{}) bool {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)
	if err := c.ShouldBindJSON(dest); err != nil && !errors.Is(err, io.EOF) {
		log.Debugf("Rejected request body on %s: %v", c.FullPath(), err)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "Invalid JSON in request body"})
		return false
	}
	return true
}

// respondError maps the error taxonomy onto status codes. Unauthorized
// responses never say why; infrastructure failures are logged in full and
// answered with fallback only.
func respondError(c *gin.Context, err error, fallback string) {
	switch {
	case perrors.Is(err, perrors.ErrInvalidInput):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": err.Error()})
	case perrors.Is(err, perrors.ErrUnauthorized):
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Invalid or expired token"})
	default:
		log.WithError(err).WithFields(log.Fields{
			"method": c.Request.Method,
			"path":   c.FullPath(),
		}).Error("Request failed")
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": fallback})
	}
}
