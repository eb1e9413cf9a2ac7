package api

import (
	"github.com/gin-gonic/gin"
)

func SetupRoutes(router *gin.Engine, handler *Handler) {
	api := router.Group("/api")
	{
		api.POST("/users", handler.RegisterUser)

		authed := api.Group("", handler.RequireAuth)
		{
			authed.POST("/properties", handler.CreateProperty)
			authed.GET("/properties", handler.ListProperties)
			authed.GET("/properties/:id", handler.GetProperty)

			authed.POST("/inspections", handler.RequestInspection)
			authed.GET("/inspections", handler.ListInspections)
			authed.GET("/inspections/:id", handler.GetInspection)
			authed.POST("/inspections/:id/verify", handler.VerifyInspectionCode)
			authed.POST("/inspections/:id/pay", handler.InitializeInspectionPayment)
			authed.POST("/inspections/payments/:reference/confirm", handler.ConfirmInspectionPayment)

			authed.POST("/purchases", handler.RequestPurchase)
			authed.GET("/purchases", handler.ListPurchases)
			authed.GET("/purchases/:id", handler.GetPurchase)
			authed.POST("/purchases/:id/pay", handler.InitializePurchasePayment)
			authed.POST("/purchases/payments/:reference/confirm", handler.ConfirmPurchasePayment)

			authed.GET("/escrows", handler.ListEscrows)
			authed.GET("/notifications", handler.ListNotifications)
			authed.POST("/notifications/:id/read", handler.MarkNotificationRead)
			authed.GET("/events", handler.StreamEvents)

			admin := authed.Group("", handler.RequireAdmin)
			{
				admin.GET("/stats", handler.GetTransactionStats)
			}
		}
	}
}
