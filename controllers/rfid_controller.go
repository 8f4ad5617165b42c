package controllers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"rfid_locker_lending/app"
	"rfid_locker_lending/lending"
	"rfid_locker_lending/logger"
	"rfid_locker_lending/models"
)

type RFIDController struct{ *Srv }

func NewRFIDController(s *Srv) *RFIDController { return &RFIDController{Srv: s} }

type tapReq struct {
	RFIDUID  string `json:"rfid_uid"`
	LockerID string `json:"locker_id"`
}

func (rc *RFIDController) bindTap(c *gin.Context) lending.Tap {
	var req tapReq
	_ = c.ShouldBindJSON(&req) // 空 body 也走判定流程，最终拒绝
	tap := lending.Tap{CardID: strings.TrimSpace(req.RFIDUID), LockerID: strings.TrimSpace(req.LockerID)}
	if tap.LockerID == "" {
		// 单柜读卡器可以在 header 里带柜格 ID
		tap.LockerID = strings.TrimSpace(c.GetHeader(app.LockerIDHeader))
	}
	return tap
}

// decide drops repeated taps before they reach the engine.
func (rc *RFIDController) decide(ctx context.Context, tap lending.Tap) lending.Decision {
	if tap.CardID == "" || tap.LockerID == "" {
		return rc.Lending.Tap(ctx, tap)
	}

	first, err := rc.Taps.First(ctx, tap.CardID, tap.LockerID)
	if err != nil {
		rc.Log.Warn("tap debounce unavailable", logger.Card(tap.CardID), logger.Err(err))
	}
	if !first {
		return lending.Decision{Action: lending.ActionDeny, Reason: lending.ErrDuplicateTap}
	}

	d := rc.Lending.Tap(ctx, tap)
	if d.Reason != nil && d.Reason.Kind == lending.KindTransient {
		// 请求可能已被取消，清理用独立的 context
		forgetCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		defer cancel()
		if err := rc.Taps.Forget(forgetCtx, tap.CardID, tap.LockerID); err != nil {
			rc.Log.Warn("tap debounce reset failed", logger.Card(tap.CardID), logger.Err(err))
		}
	}
	return d
}

// POST /api/rfid/scan
func (rc *RFIDController) Scan(c *gin.Context) {
	d := rc.decide(c.Request.Context(), rc.bindTap(c))
	if d.Granted() {
		c.JSON(http.StatusOK, app.H{
			"success":  true,
			"decision": d.Action,
			"data":     d.Details,
		})
		return
	}

	status := http.StatusForbidden
	switch d.Reason.Kind {
	case lending.KindValidation:
		status = http.StatusBadRequest
	case lending.KindTransient:
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, app.H{
		"success":  false,
		"decision": d.Action,
		"error":    d.Reason.Code,
		"message":  d.Reason.Msg,
	})
}

// POST /api/locker/access
// 硬件只认 GRANT / DENY 两个字面量，任何错误都是 DENY
func (rc *RFIDController) Access(c *gin.Context) {
	d := rc.decide(c.Request.Context(), rc.bindTap(c))
	if d.Granted() {
		c.String(http.StatusOK, "GRANT")
		return
	}
	c.String(http.StatusOK, "DENY")
}

// GET /api/rfid/check/:rfid_uid
func (rc *RFIDController) Check(c *gin.Context) {
	rows, err := rc.Lending.StatusByCard(c.Request.Context(), c.Param("rfid_uid"))
	if err != nil {
		writeError(c, err)
		return
	}
	list[models.TransactionView](c, rows)
}
