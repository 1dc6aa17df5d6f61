package calls

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers the call routes. authorize guards every mutation
// and the per-user listings.
func RegisterRoutes(router *gin.RouterGroup, handler *Handler, authorize gin.HandlerFunc) {
	callsGroup := router.Group("/calls")
	{
		// Public routes
		callsGroup.GET("/find", handler.SearchCalls)
		callsGroup.GET("/specific/:category", handler.GetCategory)

		// Protected routes
		callsGroup.GET("/own", authorize, handler.GetOwnCalls)
		callsGroup.GET("/favourites", authorize, handler.GetFavourites)
		callsGroup.POST("", authorize, handler.CreateCall)
		callsGroup.POST("/favourite/:callId", authorize, handler.AddFavourite)
		callsGroup.DELETE("/favourite/:callId", authorize, handler.RemoveFavourite)
		callsGroup.PATCH("/:callId", authorize, handler.EditCall)
		callsGroup.DELETE("/:callId", authorize, handler.DeleteCall)

		callsGroup.GET("/:callId", handler.GetCall)
	}
}
