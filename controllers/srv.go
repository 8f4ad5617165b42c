// controllers/srv.go
package controllers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"rfid_locker_lending/app"
	"rfid_locker_lending/lending"
	"rfid_locker_lending/models"
)

type Srv struct {
	Lending *lending.Service
	Dir     app.Directory
	Taps    *app.TapDebouncer
	Log     *slog.Logger
}

func GetSrv(a *app.App) *Srv {
	return &Srv{
		Lending: a.Lending,
		Dir:     a.Store,
		Taps:    a.Taps,
		Log:     a.Log,
	}
}

// --- helpers ---

func statusFor(k lending.Kind) int {
	switch k {
	case lending.KindValidation:
		return http.StatusBadRequest
	case lending.KindNotFound:
		return http.StatusNotFound
	case lending.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusServiceUnavailable
	}
}

// 统一错误输出：{"success": false, "error": code, "message": msg}
func writeError(c *gin.Context, err error) {
	var e *lending.Error
	if !errors.As(lending.StoreFailure(err), &e) {
		c.JSON(http.StatusInternalServerError, app.H{"success": false, "error": "internal", "message": err.Error()})
		return
	}
	c.JSON(statusFor(e.Kind), app.H{"success": false, "error": e.Code, "message": e.Msg})
}

func badRequest(c *gin.Context, code, msg string) {
	c.JSON(http.StatusBadRequest, app.H{"success": false, "error": code, "message": msg})
}

// directoryError maps store sentinels from directory calls to API errors.
func directoryError(err error, notFound, duplicate *lending.Error) error {
	switch {
	case errors.Is(err, lending.ErrNoRows) && notFound != nil:
		return notFound
	case errors.Is(err, lending.ErrDuplicate) && duplicate != nil:
		return duplicate
	}
	return err
}

func ok(c *gin.Context, status int, data any) {
	c.JSON(status, app.H{"success": true, "data": data})
}

func list[T any](c *gin.Context, rows []T) {
	if rows == nil {
		rows = []T{}
	}
	c.JSON(http.StatusOK, app.H{"success": true, "count": len(rows), "data": rows})
}

// parseDueDate accepts RFC 3339 or a bare date. A bare date means the end of
// that day in UTC.
func parseDueDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}
	d, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil, err
	}
	end := d.Add(24*time.Hour - time.Second)
	return &end, nil
}

// parseStatuses reads ?status=a,b. Empty means no filter.
func parseStatuses(raw string) ([]models.TxStatus, error) {
	var out []models.TxStatus
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		st, err := models.ParseTxStatus(part)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, nil
}
