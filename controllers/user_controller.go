package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"rfid_locker_lending/app"
	"rfid_locker_lending/lending"
	"rfid_locker_lending/models"
)

type UserController struct{ *Srv }

func GetUserController(s *Srv) *UserController { return &UserController{Srv: s} }

var (
	errUserExists = &lending.Error{Kind: lending.KindConflict, Code: "user_exists", Msg: "user with this SIT ID or email already exists"}
	errCardTaken  = &lending.Error{Kind: lending.KindConflict, Code: "card_taken", Msg: "card is already registered to another user"}
)

// GET /api/users?q=alice&page=1&size=20 (staff)
func (uc *UserController) ListUsers(c *gin.Context) {
	q := c.Query("q")
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "20"))

	res, err := uc.Dir.ListUsers(c.Request.Context(), q, page, size)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{
		"success": true,
		"total":   res.Total,
		"data":    res.Users,
	})
}

// GET /api/users/me
func (uc *UserController) Me(c *gin.Context) {
	u, err := uc.Dir.FindUserByID(c.Request.Context(), app.IdentityFrom(c).UserID)
	if err != nil {
		writeError(c, directoryError(err, lending.ErrUserNotFound, nil))
		return
	}
	ok(c, http.StatusOK, u)
}

// GET /api/users/:sitId （本人或工作人员）
func (uc *UserController) GetUser(c *gin.Context) {
	sitID := c.Param("sitId")
	if sitID != c.GetString("sitID") && !app.IdentityFrom(c).IsStaff() {
		writeError(c, lending.ErrUserNotFound)
		return
	}
	u, err := uc.Dir.FindUserBySitID(c.Request.Context(), sitID)
	if err != nil {
		writeError(c, directoryError(err, lending.ErrUserNotFound, nil))
		return
	}
	ok(c, http.StatusOK, u)
}

type createUserReq struct {
	SitID   string `json:"sit_id" binding:"required"`
	Name    string `json:"name" binding:"required"`
	Email   string `json:"email" binding:"required,email"`
	RFIDUID string `json:"rfid_uid"`
}

// POST /api/users (staff)
// 角色只按 SIT ID 号段推导，忽略客户端传入的 role
func (uc *UserController) CreateUser(c *gin.Context) {
	var req createUserReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid_body", "invalid request: "+err.Error())
		return
	}
	sitID := strings.TrimSpace(req.SitID)
	role, err := models.RoleForSitID(sitID)
	if err != nil {
		badRequest(c, "invalid_sit_id", err.Error())
		return
	}

	u := &models.User{
		ID:    uuid.NewString(),
		SitID: sitID,
		Name:  strings.TrimSpace(req.Name),
		Email: strings.ToLower(strings.TrimSpace(req.Email)),
		Role:  role,
	}
	if card := strings.TrimSpace(req.RFIDUID); card != "" {
		u.RFIDUID = &card
	}
	if err := uc.Dir.CreateUser(c.Request.Context(), u); err != nil {
		writeError(c, directoryError(err, nil, errUserExists))
		return
	}
	ok(c, http.StatusCreated, u)
}

type setCardReq struct {
	// 传 null 或空字符串表示解绑
	RFIDUID *string `json:"rfid_uid"`
}

// PUT /api/users/:sitId/card (staff)
func (uc *UserController) SetCard(c *gin.Context) {
	var req setCardReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid_body", "invalid request: "+err.Error())
		return
	}
	var card *string
	if req.RFIDUID != nil {
		if v := strings.TrimSpace(*req.RFIDUID); v != "" {
			card = &v
		}
	}

	ctx := c.Request.Context()
	u, err := uc.Dir.FindUserBySitID(ctx, c.Param("sitId"))
	if err != nil {
		writeError(c, directoryError(err, lending.ErrUserNotFound, nil))
		return
	}
	if err := uc.Dir.SetUserCard(ctx, u.ID, card); err != nil {
		if errors.Is(err, lending.ErrDuplicate) {
			writeError(c, errCardTaken)
			return
		}
		writeError(c, directoryError(err, lending.ErrUserNotFound, nil))
		return
	}
	u.RFIDUID = card
	ok(c, http.StatusOK, u)
}
