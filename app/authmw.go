package app

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"rfid_locker_lending/auth"
	"rfid_locker_lending/lending"
	"rfid_locker_lending/models"
)

const (
	DeviceKeyHeader = "X-Device-Key"
	LockerIDHeader  = "X-Locker-ID"
)

// AuthRequired verifies the bearer token and loads the user it names.
func AuthRequired(dir Directory, secret, issuer string) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := auth.BearerToken(c.GetHeader("Authorization"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, H{"error": "unauthorized", "message": err.Error()})
			return
		}
		claims, err := auth.ParseToken(secret, issuer, raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, H{"error": "unauthorized", "message": "invalid or expired token"})
			return
		}

		// 这里确认用户仍存在；角色以数据库为准，不信 token 里的
		u, err := dir.FindUserByID(c.Request.Context(), claims.UserID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, H{"error": "unauthorized", "message": "unknown user"})
			return
		}
		c.Set("userID", u.ID)
		c.Set("role", u.Role)
		c.Set("sitID", u.SitID)

		c.Next()
	}
}

// StaffOnly must run after AuthRequired.
func StaffOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !IdentityFrom(c).IsStaff() {
			c.AbortWithStatusJSON(http.StatusForbidden, H{"error": "forbidden", "message": "staff access required"})
			return
		}
		c.Next()
	}
}

// DeviceKeyRequired guards hardware endpoints. An empty key disables the check.
func DeviceKeyRequired(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key == "" {
			c.Next()
			return
		}
		got := c.GetHeader(DeviceKeyHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, H{"error": "unauthorized", "message": "invalid device key"})
			return
		}
		c.Next()
	}
}

// IdentityFrom returns the requester set by AuthRequired.
func IdentityFrom(c *gin.Context) lending.Identity {
	id := lending.Identity{UserID: c.GetString("userID")}
	if v, ok := c.Get("role"); ok {
		id.Role, _ = v.(models.Role)
	}
	return id
}
