package controller

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const ctxUserIDKey = "user_id"

// UserIdentity 解析请求身份。鉴权是外部服务的职责，这里信任网关注入的
// X-User-ID；没有时按游客处理，给一个一次性游客身份。
func UserIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader("X-User-ID")
		if userID == "" {
			userID = "guest-" + uuid.NewString()
		}
		c.Set(ctxUserIDKey, userID)
		c.Next()
	}
}

func currentUser(c *gin.Context) string {
	return c.GetString(ctxUserIDKey)
}
