package handlers

import (
	"net/http"

	"github.com/easybuilders/merchantpro_backend/models"
	"github.com/gin-gonic/gin"
)

func CreatePaymentHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewPayment
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		payment, invoice, err := models.CreatePayment(c.Request.Context(), deps.DB, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"payment": payment, "invoice": invoice})
	}
}

func ListPaymentsHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		payments, err := models.GetPayments(c.Request.Context(), deps.DB, id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"payments": payments})
	}
}

func DeletePaymentHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		invoice, err := models.DeletePayment(c.Request.Context(), deps.DB, id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "invoice": invoice})
	}
}
