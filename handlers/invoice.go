package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/easybuilders/merchantpro_backend/config"
	"github.com/easybuilders/merchantpro_backend/models"
	"github.com/gin-gonic/gin"
)

func pathId(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

func CreateInvoiceHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewInvoice
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		invoice, err := models.CreateInvoice(c.Request.Context(), deps.DB, deps.Cache, &input)
		if err != nil {
			config.LogError(deps.Logger, "handlers", "CreateInvoiceHandler", "create failed", map[string]interface{}{
				"store_code": input.StoreCode,
			}, err)
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, invoice)
	}
}

func GetInvoiceHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		invoice, err := models.GetInvoice(c.Request.Context(), deps.DB, id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"invoice":        invoice,
			"display_status": invoice.DisplayStatus(time.Now()),
		})
	}
}

func ListInvoicesHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		customerId := 0
		if raw := c.Query("customer_id"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid customer_id"})
				return
			}
			customerId = n
		}
		filter := models.InvoiceFilter{
			StoreCode:        c.Query("store_code"),
			Status:           models.InvoiceStatus(c.Query("status")),
			CustomerId:       customerId,
			IncludeCancelled: c.Query("include_cancelled") == "true",
		}
		invoices, err := models.GetInvoices(c.Request.Context(), deps.DB, filter)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"invoices": invoices})
	}
}

func UpdateInvoiceHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var input models.UpdateInvoiceInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		invoice, err := models.UpdateInvoice(c.Request.Context(), deps.DB, id, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, invoice)
	}
}

func CancelInvoiceHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		invoice, err := models.CancelInvoice(c.Request.Context(), deps.DB, id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, invoice)
	}
}

func MarkInvoiceSentHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		invoice, err := models.MarkInvoiceSent(c.Request.Context(), deps.DB, id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, invoice)
	}
}

func ConvertQuoteHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		invoice, err := models.ConvertQuote(c.Request.Context(), deps.DB, deps.Cache, id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, invoice)
	}
}
