package users

import (
	"github.com/gin-gonic/gin"
)

func RegisterRoutes(router *gin.RouterGroup, handler *Handler, authorize gin.HandlerFunc) {
	user := router.Group("/user")
	{
		user.GET("", authorize, handler.GetCurrentUser)
		user.GET("/:userId", handler.GetUserByID)
	}
}
