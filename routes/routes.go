package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"rfid_locker_lending/app"
	"rfid_locker_lending/controllers"
)

func RegisterRoutes(r *gin.Engine, a *app.App) {
	// 控制器与依赖
	s := controllers.GetSrv(a)
	uc := controllers.GetUserController(s)
	txCtl := controllers.NewTransactionController(s)
	rfidCtl := controllers.NewRFIDController(s)
	catCtl := controllers.NewCatalogController(s)

	// 复用的中间件
	authMW := app.AuthRequired(a.Store, a.Config.JWTSecret, a.Config.JWTIssuer)
	staffMW := app.StaffOnly()
	deviceMW := app.DeviceKeyRequired(a.Config.DeviceKey)

	// ------------------------------
	// 运维
	// ------------------------------
	r.GET("/healthz", func(c *app.Ctx) {
		if err := a.Store.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, app.H{"ok": false, "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, app.H{"ok": true})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{})))

	// ------------------------------
	// 目录（公开浏览）
	// ------------------------------
	equipment := r.Group("/api/equipment")
	{
		equipment.GET("", catCtl.ListEquipment)
		equipment.GET("/:id", catCtl.GetEquipment)
	}
	equipmentAdmin := r.Group("/api/equipment", authMW, staffMW)
	{
		equipmentAdmin.POST("", catCtl.CreateEquipment)
	}

	lockers := r.Group("/api/lockers")
	{
		lockers.GET("", catCtl.ListLockers)
		lockers.GET("/available", catCtl.ListAvailableLockers)
		lockers.GET("/:compartmentNumber", catCtl.GetLocker)
	}
	r.GET("/api/access-logs", authMW, staffMW, catCtl.ListAccessLogs)

	// ------------------------------
	// 硬件（读卡器）
	// ------------------------------
	rfid := r.Group("/api/rfid", deviceMW)
	{
		rfid.POST("/scan", rfidCtl.Scan)
		rfid.GET("/check/:rfid_uid", rfidCtl.Check)
	}
	r.POST("/api/locker/access", deviceMW, rfidCtl.Access)

	// ------------------------------
	// 借还（需登录）
	// ------------------------------
	txs := r.Group("/api/transactions", authMW)
	{
		txs.POST("/borrow", txCtl.Borrow)
		txs.POST("/return", txCtl.RequestReturn)
		txs.POST("/:id/cancel", txCtl.Cancel)
		txs.GET("/mine", txCtl.ListMine)           // ?status=
		txs.GET("/user/:sitId", txCtl.ListBySitID) // 本人或工作人员
		txs.GET("", staffMW, txCtl.ListAll)        // ?status=
	}

	// ------------------------------
	// 用户
	// ------------------------------
	users := r.Group("/api/users", authMW)
	{
		users.GET("/me", uc.Me)
		users.GET("/:sitId", uc.GetUser)
		users.GET("", staffMW, uc.ListUsers) // ?q=&page=&size=
		users.POST("", staffMW, uc.CreateUser)
		users.PUT("/:sitId/card", staffMW, uc.SetCard)
	}
}
