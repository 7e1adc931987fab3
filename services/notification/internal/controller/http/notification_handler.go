package http

import (
	"net/http"
	"strconv"
	"time"

	"classifieds/pkg/apperr"
	"classifieds/pkg/jwt"
	"classifieds/pkg/logger"
	"classifieds/pkg/middleware"
	"classifieds/pkg/pagination"
	"classifieds/services/notification/internal/entity"
	"classifieds/services/notification/internal/usecase"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type NotificationHandler struct {
	notificationUseCase usecase.NotificationUseCase
	jwtService          *jwt.Service
	logger              *logger.Logger
}

func NewNotificationHandler(notificationUseCase usecase.NotificationUseCase, jwtService *jwt.Service, logger *logger.Logger) *NotificationHandler {
	return &NotificationHandler{
		notificationUseCase: notificationUseCase,
		jwtService:          jwtService,
		logger:              logger,
	}
}

type InboxResponse struct {
	Notifications []entity.Notification `json:"notifications"`
	Count         int                   `json:"count"`
	Total         int64                 `json:"total"`
	Offset        int                   `json:"offset"`
}

type HistoryResponse struct {
	Items      []entity.Notification `json:"items"`
	Pagination pagination.Meta       `json:"pagination"`
}

// GetNotifications godoc
// @Summary      Get recent notifications
// @Description  The caller's inbox of the latest 100 notifications, newest first
// @Tags         notifications
// @Produce      json
// @Security     BearerAuth
// @Param        limit query int false "Number of notifications to return (max 100)"
// @Param        offset query int false "Offset for pagination"
// @Success      200  {object}  InboxResponse
// @Failure      500  {object}  map[string]string
// @Router       /notifications [get]
func (h *NotificationHandler) GetNotifications(c *gin.Context) {
	userID := c.GetString(middleware.ContextUserID)

	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))
	if offset < 0 {
		offset = 0
	}

	notifications, total, err := h.notificationUseCase.GetInbox(c.Request.Context(), userID, limit, offset)
	if err != nil {
		h.logger.Error("Failed to get notifications: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get notifications"})
		return
	}

	c.JSON(http.StatusOK, InboxResponse{
		Notifications: notifications,
		Count:         len(notifications),
		Total:         total,
		Offset:        offset,
	})
}

// GetHistory godoc
// @Summary      Notification history
// @Description  Every notification recorded for the caller, newest first
// @Tags         notifications
// @Produce      json
// @Security     BearerAuth
// @Param        page query int false "Page" default(1)
// @Param        limit query int false "Page size" default(20)
// @Success      200  {object}  HistoryResponse
// @Failure      404  {object}  map[string]string
// @Router       /notifications/history [get]
func (h *NotificationHandler) GetHistory(c *gin.Context) {
	userID := c.GetString(middleware.ContextUserID)
	page := pagination.Parse(c.Query("page"), c.Query("limit"))

	notifications, meta, err := h.notificationUseCase.GetHistory(c.Request.Context(), userID, page)
	if err != nil {
		status := apperr.Status(err)
		if status == http.StatusInternalServerError {
			h.logger.Error("Failed to get notification history: %v", err)
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, HistoryResponse{Items: notifications, Pagination: meta})
}

// HandleWebSocket godoc
// @Summary      Live notifications
// @Description  Upgrades to a websocket that streams the caller's notifications as JSON text frames
// @Tags         notifications
// @Param        token query string true "JWT, since browsers cannot set headers on websocket requests"
// @Success      101
// @Failure      401  {object}  map[string]string
// @Router       /notifications/ws [get]
func (h *NotificationHandler) HandleWebSocket(c *gin.Context) {
	userID := c.GetString(middleware.ContextUserID)
	if userID == "" {
		token := c.Query("token")
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Token required"})
			return
		}

		claims, err := h.jwtService.ValidateToken(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}
		userID = claims.UserID
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade connection to WebSocket: %v", err)
		return
	}
	defer conn.Close()

	h.logger.Info("WebSocket connected for user %s", userID)
	defer h.logger.Info("WebSocket disconnected for user %s", userID)

	messages, stop := h.notificationUseCase.Subscribe(c.Request.Context(), userID)
	defer stop()

	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					h.logger.Warn("WebSocket read error for user %s: %v", userID, err)
				}
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case payload, ok := <-messages:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, []byte(payload)); err != nil {
				h.logger.Warn("Failed to write WebSocket message for user %s: %v", userID, err)
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
