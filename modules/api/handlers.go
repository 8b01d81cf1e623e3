package api

import (
	"errors"
	"log"
	"net/url"

	domain "github.com/example/roomchat/domain/chat"
	"github.com/example/roomchat/modules/chat"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// setupRoutes configures all HTTP routes.
func (m *APIModule) setupRoutes(app *fiber.App) {
	identified := IdentityMiddleware(m.identity)

	app.Get("/", m.indexHandler)
	app.Get("/health", m.healthHandler)
	if m.gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})))
	}

	// Entry gateway
	app.Post("/room", identified, m.roomLimiter, m.createOrJoinRoom)
	app.Get("/room/:id", identified, m.roomPage)

	// WebSocket endpoint
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", identified, websocket.New(m.handleWebSocket))

	// REST API v1
	api := app.Group("/api/v1", identified)
	api.Get("/rooms/:id", m.getRoom)
	api.Get("/rooms/:id/history", m.getHistory)
}

// indexHandler handles GET /.
func (m *APIModule) indexHandler(c *fiber.Ctx) error {
	return c.JSON(IndexResponse{
		Service: "roomchat",
		Endpoints: map[string]string{
			"create_or_join": "POST /room",
			"room":           "GET /room/:id?username=",
			"websocket":      "GET /ws",
			"room_info":      "GET /api/v1/rooms/:id",
			"history":        "GET /api/v1/rooms/:id/history",
			"health":         "GET /health",
		},
	})
}

// healthHandler handles GET /health.
func (m *APIModule) healthHandler(c *fiber.Ctx) error {
	hub := m.sessions.Hub()
	details := map[string]any{
		"module":           "api",
		"sessions":         m.sessions.SessionCount(),
		"live_connections": hub.ConnectionCount(),
	}
	if m.activityAdapter != nil {
		summary, err := m.activityAdapter.Summary(c.UserContext())
		if err != nil {
			log.Printf("[api] Failed to load activity summary: %v", err)
		} else {
			details["activity"] = summary
		}
	}
	return c.JSON(HealthResponse{
		Status:  "healthy",
		Details: details,
	})
}

// createOrJoinRoom handles POST /room. Form posts are redirected to the
// room page; JSON clients get the room id back.
func (m *APIModule) createOrJoinRoom(c *fiber.Ctx) error {
	var req CreateRoomRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request body",
		})
	}

	username := domain.NormalizeName(req.Username)
	roomID, err := m.gateway.CreateOrJoin(c.UserContext(), identityFrom(c), username, req.RoomID)
	if err != nil {
		return writeError(c, err)
	}

	location := "/room/" + roomID + "?username=" + url.QueryEscape(username)
	if c.Is("json") {
		return c.Status(fiber.StatusCreated).JSON(CreateRoomResponse{
			RoomID:   roomID,
			Username: username,
			URL:      location,
		})
	}
	return c.Redirect(location, fiber.StatusSeeOther)
}

// roomPage handles GET /room/:id. Only the identity bound to the room may
// open it.
func (m *APIModule) roomPage(c *fiber.Ctx) error {
	username := domain.NormalizeName(c.Query("username"))
	if username == "" {
		return c.Redirect("/", fiber.StatusFound)
	}

	roomID := c.Params("id")
	if err := m.gateway.AuthorizeRoomPage(c.UserContext(), identityFrom(c), roomID); err != nil {
		return writeError(c, err)
	}

	return c.JSON(RoomPageResponse{
		RoomID:    roomID,
		Username:  username,
		WebSocket: "/ws",
	})
}

// getRoom handles GET /api/v1/rooms/:id.
func (m *APIModule) getRoom(c *fiber.Ctx) error {
	roomID := c.Params("id")

	room, members, err := m.chatAdapter.GetRoom(c.UserContext(), roomID)
	if err != nil {
		return writeError(c, err)
	}

	response := RoomResponse{
		ID:              room.ID,
		CreatedAt:       room.CreatedAt,
		Members:         members,
		LiveConnections: m.sessions.Hub().RoomSize(room.ID),
	}
	if m.activityAdapter != nil {
		stats, err := m.activityAdapter.RoomStats(c.UserContext(), room.ID)
		if err != nil {
			log.Printf("[api] Failed to load activity for room %s: %v", room.ID, err)
		} else {
			response.Messages = stats.Messages
		}
	}

	return c.JSON(response)
}

// getHistory handles GET /api/v1/rooms/:id/history. Only the room's
// members may read it.
func (m *APIModule) getHistory(c *fiber.Ctx) error {
	roomID := c.Params("id")
	exists, err := m.chatAdapter.RoomExists(c.UserContext(), roomID)
	if err != nil {
		return writeError(c, err)
	}
	if !exists {
		return writeError(c, domain.ErrRoomNotFound)
	}
	if err := m.gateway.AuthorizeRoomPage(c.UserContext(), identityFrom(c), roomID); err != nil {
		return writeError(c, err)
	}

	afterSeq := int64(c.QueryInt("after", 0))
	limit := c.QueryInt("limit", chat.DefaultHistoryLimit)

	messages, err := m.chatAdapter.History(c.UserContext(), roomID, afterSeq, limit)
	if err != nil {
		return writeError(c, err)
	}

	response := HistoryResponse{
		RoomID:   roomID,
		Messages: make([]MessageResponse, 0, len(messages)),
	}
	for _, msg := range messages {
		response.Messages = append(response.Messages, MessageResponse{
			Seq:       msg.Seq,
			Username:  msg.Username,
			Content:   msg.Content,
			Timestamp: msg.SentAt,
		})
	}

	return c.JSON(response)
}

// writeError maps a domain error to its HTTP status and error body.
func writeError(c *fiber.Ctx, err error) error {
	status, message := fiber.StatusInternalServerError, "Internal Server Error"

	switch {
	case errors.Is(err, domain.ErrMissingName):
		status, message = fiber.StatusBadRequest, "Username is required"
	case errors.Is(err, domain.ErrAlreadyMember):
		status, message = fiber.StatusForbidden, "This client has already joined a room"
	case errors.Is(err, domain.ErrForbidden), errors.Is(err, domain.ErrNotMember):
		status, message = fiber.StatusForbidden, "Not a member of this room"
	case errors.Is(err, domain.ErrRoomNotFound):
		status, message = fiber.StatusNotFound, "Room not found"
	default:
		log.Printf("[api] %s %s failed: %v", c.Method(), c.Path(), err)
	}

	code := domain.Code(err)
	if errors.Is(err, domain.ErrNotMember) {
		code = domain.ErrForbidden.Error()
	}
	return c.Status(status).JSON(ErrorResponse{
		Error:   code,
		Message: message,
	})
}
