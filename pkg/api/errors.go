package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/kitchencore/reasoner/pkg/apperr"
)

// writeError maps err's apperr.Kind to an HTTP status via
// apperr.HTTPStatus and writes a JSON error body, logging unexpected
// (non-apperr) failures the way the teacher's mapServiceError does.
func writeError(c *gin.Context, log *slog.Logger, err error) {
	status := apperr.HTTPStatus(err)
	if apperr.KindOf(err) == "" {
		log.Error("unexpected internal error", "error", err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
