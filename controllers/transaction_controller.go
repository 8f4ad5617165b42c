package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"rfid_locker_lending/app"
	"rfid_locker_lending/lending"
	"rfid_locker_lending/models"
)

type TransactionController struct{ *Srv }

func NewTransactionController(s *Srv) *TransactionController {
	return &TransactionController{Srv: s}
}

type borrowReq struct {
	EquipmentID string `json:"equipment_id"`
	DueDate     string `json:"due_date"`
	// SitID lets staff borrow on behalf of another user.
	SitID string `json:"sit_id"`
}

// POST /api/transactions/borrow
func (tc *TransactionController) Borrow(c *gin.Context) {
	var req borrowReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid_body", "invalid request: "+err.Error())
		return
	}
	due, err := parseDueDate(req.DueDate)
	if err != nil {
		badRequest(c, "invalid_due_date", "due_date must be RFC 3339 or YYYY-MM-DD")
		return
	}

	who := app.IdentityFrom(c)
	if sitID := strings.TrimSpace(req.SitID); sitID != "" && sitID != c.GetString("sitID") {
		if !who.IsStaff() {
			c.JSON(http.StatusForbidden, app.H{"success": false, "error": "forbidden", "message": "only staff can borrow for another user"})
			return
		}
		u, err := tc.Dir.FindUserBySitID(c.Request.Context(), sitID)
		if err != nil {
			writeError(c, directoryError(err, lending.ErrUserNotFound, nil))
			return
		}
		who = lending.Identity{UserID: u.ID, Role: u.Role}
	}

	view, err := tc.Lending.Borrow(c.Request.Context(), who, lending.BorrowRequest{
		EquipmentID: req.EquipmentID,
		DueDate:     due,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusCreated, view)
}

type transactionReq struct {
	TransactionID string `json:"transaction_id"`
}

// POST /api/transactions/return
func (tc *TransactionController) RequestReturn(c *gin.Context) {
	var req transactionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid_body", "invalid request: "+err.Error())
		return
	}
	view, err := tc.Lending.RequestReturn(c.Request.Context(), app.IdentityFrom(c), req.TransactionID)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, view)
}

// POST /api/transactions/:id/cancel
func (tc *TransactionController) Cancel(c *gin.Context) {
	view, err := tc.Lending.Cancel(c.Request.Context(), app.IdentityFrom(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, view)
}

// GET /api/transactions/mine?status=active,pending_return
func (tc *TransactionController) ListMine(c *gin.Context) {
	tc.history(c, app.IdentityFrom(c).UserID)
}

// GET /api/transactions/user/:sitId
func (tc *TransactionController) ListBySitID(c *gin.Context) {
	sitID := c.Param("sitId")
	who := app.IdentityFrom(c)
	if sitID != c.GetString("sitID") && !who.IsStaff() {
		writeError(c, lending.ErrUserNotFound)
		return
	}
	u, err := tc.Dir.FindUserBySitID(c.Request.Context(), sitID)
	if err != nil {
		writeError(c, directoryError(err, lending.ErrUserNotFound, nil))
		return
	}
	tc.history(c, u.ID)
}

// GET /api/transactions?status= (staff)
func (tc *TransactionController) ListAll(c *gin.Context) {
	tc.history(c, "")
}

func (tc *TransactionController) history(c *gin.Context, userID string) {
	statuses, err := parseStatuses(c.Query("status"))
	if err != nil {
		badRequest(c, "invalid_status", err.Error())
		return
	}
	rows, err := tc.Lending.History(c.Request.Context(), userID, statuses)
	if err != nil {
		writeError(c, err)
		return
	}
	list[models.TransactionView](c, rows)
}
