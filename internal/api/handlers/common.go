package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/your-org/vsconsole/internal/backend"
	"github.com/your-org/vsconsole/internal/models"
	"github.com/your-org/vsconsole/internal/storage"
	"github.com/your-org/vsconsole/pkg/dto"
)

// Auditor records operator actions.
type Auditor interface {
	Record(ctx context.Context, e models.AuditEntry) error
	List(ctx context.Context, limit int) ([]models.AuditEntry, error)
}

// respondError maps a failure onto a status code: rejected input is 400,
// a backend that answered badly or could not be reached is 502, and a
// timed-out call is 504.
func respondError(c *gin.Context, err error) {
	var be *backend.Error
	if !errors.As(err, &be) {
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: err.Error()})
		return
	}

	status := http.StatusBadGateway
	switch be.Kind {
	case backend.KindValidation:
		status = http.StatusBadRequest
	case backend.KindTimeout:
		status = http.StatusGatewayTimeout
	}
	c.JSON(status, dto.ErrorResponse{Error: be.Message, Kind: string(be.Kind)})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: msg, Kind: string(backend.KindValidation)})
}

// record writes an audit entry. Audit failures are logged, never surfaced.
func record(c *gin.Context, a Auditor, action, target string, err error) {
	if a == nil {
		return
	}
	if rerr := a.Record(c.Request.Context(), storage.NewAuditEntry(action, target, err)); rerr != nil {
		slog.Error("record audit entry", "action", action, "target", target, "error", rerr)
	}
}

// queryInt parses an optional integer query parameter.
func queryInt(c *gin.Context, name string, def int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return v, true
}

// queryBool parses an optional boolean query parameter; nil means absent.
func queryBool(c *gin.Context, name string) (*bool, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		badRequest(c, "invalid "+name)
		return nil, false
	}
	return &v, true
}
