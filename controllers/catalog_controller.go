package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"rfid_locker_lending/lending"
	"rfid_locker_lending/models"
)

type CatalogController struct{ *Srv }

func NewCatalogController(s *Srv) *CatalogController { return &CatalogController{Srv: s} }

var errEquipmentExists = &lending.Error{Kind: lending.KindConflict, Code: "equipment_exists", Msg: "equipment already exists"}

// GET /api/equipment
func (cc *CatalogController) ListEquipment(c *gin.Context) {
	items, err := cc.Dir.ListEquipment(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	list(c, items)
}

// GET /api/equipment/:id
func (cc *CatalogController) GetEquipment(c *gin.Context) {
	eq, err := cc.Dir.FindEquipment(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, directoryError(err, lending.ErrEquipmentNotFound, nil))
		return
	}
	ok(c, http.StatusOK, eq)
}

type createEquipmentReq struct {
	Name        string `json:"name" binding:"required"`
	Category    string `json:"category"`
	Description string `json:"description"`
	TotalUnits  int    `json:"total_units" binding:"min=0"`
}

// POST /api/equipment (staff)
// 新建时可借数量 = 总数量
func (cc *CatalogController) CreateEquipment(c *gin.Context) {
	var req createEquipmentReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid_body", "invalid request: "+err.Error())
		return
	}
	eq := &models.Equipment{
		ID:             uuid.NewString(),
		Name:           strings.TrimSpace(req.Name),
		Category:       strings.TrimSpace(req.Category),
		Description:    req.Description,
		TotalUnits:     req.TotalUnits,
		AvailableUnits: req.TotalUnits,
	}
	if eq.Name == "" {
		badRequest(c, "missing_name", "missing required field: name")
		return
	}
	if err := cc.Dir.CreateEquipment(c.Request.Context(), eq); err != nil {
		writeError(c, directoryError(err, nil, errEquipmentExists))
		return
	}
	ok(c, http.StatusCreated, eq)
}

// GET /api/lockers
func (cc *CatalogController) ListLockers(c *gin.Context) {
	cc.lockers(c, false)
}

// GET /api/lockers/available
func (cc *CatalogController) ListAvailableLockers(c *gin.Context) {
	cc.lockers(c, true)
}

func (cc *CatalogController) lockers(c *gin.Context, onlyAvailable bool) {
	rows, err := cc.Dir.ListLockers(c.Request.Context(), onlyAvailable)
	if err != nil {
		writeError(c, err)
		return
	}
	list(c, rows)
}

// GET /api/lockers/:compartmentNumber
func (cc *CatalogController) GetLocker(c *gin.Context) {
	n, err := strconv.Atoi(c.Param("compartmentNumber"))
	if err != nil || n <= 0 {
		badRequest(c, "invalid_compartment", "compartment number must be a positive integer")
		return
	}
	l, err := cc.Dir.FindLockerByCompartment(c.Request.Context(), n)
	if err != nil {
		writeError(c, directoryError(err, lending.ErrLockerNotFound, nil))
		return
	}
	ok(c, http.StatusOK, l)
}

// GET /api/access-logs?locker_id=&limit= (staff)
func (cc *CatalogController) ListAccessLogs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	logs, err := cc.Dir.ListAccessLogs(c.Request.Context(), c.Query("locker_id"), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	list(c, logs)
}
