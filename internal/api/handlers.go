package api

import (
	"io"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"nestkey/server/internal/auth"
	"nestkey/server/internal/database"
	"nestkey/server/internal/models"
	"nestkey/server/internal/realtime"
	"nestkey/server/internal/workflow"
)

type Handler struct {
	engine    *workflow.Engine
	db        *database.Database
	hub       *realtime.Hub
	logger    *logrus.Logger
	jwtSecret string
}

func NewHandler(engine *workflow.Engine, db *database.Database, hub *realtime.Hub, jwtSecret string, logger *logrus.Logger) *Handler {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}

	return &Handler{
		engine:    engine,
		db:        db,
		hub:       hub,
		logger:    logger,
		jwtSecret: jwtSecret,
	}
}

// writeError maps workflow failures onto HTTP status codes.
func (h *Handler) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch workflow.KindOf(err) {
	case workflow.KindNotFound:
		status = http.StatusNotFound
	case workflow.KindUnauthorized:
		status = http.StatusForbidden
	case workflow.KindPreconditionFailed:
		status = http.StatusPreconditionFailed
	case workflow.KindConflict:
		status = http.StatusConflict
	case workflow.KindInvalidInput:
		status = http.StatusBadRequest
	case workflow.KindGateway:
		status = http.StatusBadGateway
	}

	if status == http.StatusInternalServerError {
		h.logger.WithError(err).Error("Unhandled workflow error")
		c.JSON(status, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// ---- Users ----

type registerUserRequest struct {
	Name  string      `json:"name" binding:"required"`
	Email string      `json:"email" binding:"required,email"`
	Role  models.Role `json:"role"`
}

// RegisterUser creates an account and returns an API token for it.
// Password and OAuth flows live outside this service.
func (h *Handler) RegisterUser(c *gin.Context) {
	var req registerUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Role == "" {
		req.Role = models.RoleUser
	}

	user := &models.User{Name: req.Name, Email: req.Email, Role: req.Role}
	if err := h.db.CreateUser(user); err != nil {
		h.logger.WithError(err).Error("Failed to create user")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create user"})
		return
	}

	token, err := auth.GenerateToken(h.jwtSecret, user)
	if err != nil {
		h.logger.WithError(err).Error("Failed to issue token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue token"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"user": user, "token": token})
}

// ---- Properties ----

func (h *Handler) CreateProperty(c *gin.Context) {
	var req models.CreatePropertyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	property := &models.Property{
		Title:         req.Title,
		Description:   req.Description,
		Price:         req.Price,
		InspectionFee: req.InspectionFee,
		Address:       req.Address,
		MediaURLs:     req.MediaURLs,
		AgentID:       req.AgentID,
		OwnerID:       principalFrom(c).UserID,
	}
	if err := h.db.CreateProperty(property); err != nil {
		h.logger.WithError(err).Error("Failed to create property")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create property"})
		return
	}

	c.JSON(http.StatusCreated, property)
}

func (h *Handler) GetProperty(c *gin.Context) {
	property, err := h.db.GetProperty(c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, property)
}

func (h *Handler) ListProperties(c *gin.Context) {
	properties, err := h.db.ListProperties()
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, properties)
}

// ---- Inspections ----

type requestInspectionRequest struct {
	PropertyID    string    `json:"property_id" binding:"required"`
	ScheduledDate time.Time `json:"scheduled_date"`
}

func (h *Handler) RequestInspection(c *gin.Context) {
	var req requestInspectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	inspection, err := h.engine.RequestInspection(req.PropertyID, req.ScheduledDate, principalFrom(c))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"inspection_id": inspection.ID,
		"code":          inspection.Code,
		"fee":           inspection.Fee,
		"status":        inspection.Status,
	})
}

type verifyCodeRequest struct {
	Code string `json:"code" binding:"required"`
}

func (h *Handler) VerifyInspectionCode(c *gin.Context) {
	var req verifyCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	inspection, err := h.engine.VerifyInspectionCode(c.Param("id"), req.Code, principalFrom(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, inspection)
}

func (h *Handler) InitializeInspectionPayment(c *gin.Context) {
	init, err := h.engine.InitializeInspectionPayment(c.Param("id"), principalFrom(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, init)
}

type confirmInspectionRequest struct {
	InspectionID string `json:"inspection_id" binding:"required"`
}

func (h *Handler) ConfirmInspectionPayment(c *gin.Context) {
	var req confirmInspectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	inspection, escrow, err := h.engine.ConfirmInspectionPayment(c.Param("reference"), req.InspectionID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"inspection": inspection, "escrow": escrow})
}

func (h *Handler) GetInspection(c *gin.Context) {
	inspection, err := h.engine.GetInspection(c.Param("id"), principalFrom(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, inspection)
}

func (h *Handler) ListInspections(c *gin.Context) {
	inspections, err := h.engine.ListInspections(principalFrom(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, inspections)
}

// ---- Purchases ----

type requestPurchaseRequest struct {
	PropertyID string `json:"property_id" binding:"required"`
}

func (h *Handler) RequestPurchase(c *gin.Context) {
	var req requestPurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	purchase, err := h.engine.RequestPurchase(req.PropertyID, principalFrom(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"purchase_id": purchase.ID, "status": purchase.Status, "price": purchase.Price})
}

func (h *Handler) InitializePurchasePayment(c *gin.Context) {
	init, err := h.engine.InitializePurchasePayment(c.Param("id"), principalFrom(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, init)
}

type confirmPurchaseRequest struct {
	PurchaseID string `json:"purchase_id" binding:"required"`
}

func (h *Handler) ConfirmPurchasePayment(c *gin.Context) {
	var req confirmPurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	purchase, escrow, err := h.engine.ConfirmPurchasePayment(c.Param("reference"), req.PurchaseID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"purchase": purchase, "escrow": escrow})
}

func (h *Handler) GetPurchase(c *gin.Context) {
	purchase, err := h.engine.GetPurchase(c.Param("id"), principalFrom(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, purchase)
}

func (h *Handler) ListPurchases(c *gin.Context) {
	purchases, err := h.engine.ListPurchases(principalFrom(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, purchases)
}

// ---- Escrows & stats ----

func (h *Handler) ListEscrows(c *gin.Context) {
	escrows, err := h.engine.ListEscrows(principalFrom(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, escrows)
}

func (h *Handler) GetTransactionStats(c *gin.Context) {
	stats, err := h.engine.TransactionStats(principalFrom(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// ---- Notifications ----

func (h *Handler) ListNotifications(c *gin.Context) {
	notifications, err := h.db.ListNotifications(principalFrom(c).UserID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, notifications)
}

func (h *Handler) MarkNotificationRead(c *gin.Context) {
	ok, err := h.db.MarkNotificationRead(c.Param("id"), principalFrom(c).UserID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "notification not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"read": true})
}

// ---- Realtime ----

// StreamEvents holds an SSE connection open and forwards the caller's
// realtime events until the client disconnects.
func (h *Handler) StreamEvents(c *gin.Context) {
	principal := principalFrom(c)
	conn, err := h.hub.Register(principal.UserID)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "realtime channel unavailable"})
		return
	}
	defer h.hub.Unregister(conn)

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")

	c.Stream(func(w io.Writer) bool {
		select {
		case event, ok := <-conn.Events():
			if !ok {
				return false
			}
			c.SSEvent("notification", event)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
