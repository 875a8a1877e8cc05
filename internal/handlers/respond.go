// internal/handlers/respond.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"flare-backend/internal/apperr"
)

// writeError maps an error to its transport status and the stable
// {"error": ...} shape. Internal details are logged server-side and
// never leaked to the client.
func writeError(c *gin.Context, err error) {
	appErr := apperr.From(err)

	if appErr.Kind == apperr.KindInternal {
		logrus.WithError(appErr).WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.FullPath(),
		}).Error("Request failed")
	}

	body := gin.H{"error": appErr.Message}
	for k, v := range appErr.Context {
		body[k] = v
	}

	c.JSON(appErr.HTTPStatus(), body)
}
