package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/example/image-browser/apperr"
)

// respondError writes the failure envelope for err and records it on the
// context for the request logger.
func respondError(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logrus.WithError(err).WithField("path", c.Request.URL.Path).Error("Request failed")
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"error":   apperr.Message(err),
	})
}

// respondReport writes a batch report. A report with an error means every
// item failed; the report is returned either way.
func respondReport(c *gin.Context, message string, report interface{}, err error) {
	if err != nil {
		_ = c.Error(err)
		c.JSON(apperr.HTTPStatus(err), gin.H{
			"success": false,
			"error":   apperr.Message(err),
			"data":    report,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": message,
		"data":    report,
	})
}
