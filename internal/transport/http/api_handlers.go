package http

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/chatpad-sync/internal/composer"
	"github.com/vovakirdan/chatpad-sync/internal/core"
)

// APIHandlers provides HTTP handlers for the local API.
type APIHandlers struct {
	session       Session
	maxImageBytes int64
	log           *zerolog.Logger
}

// NewAPIHandlers creates a new API handlers instance.
func NewAPIHandlers(sess Session, maxImageBytes int64, logger *zerolog.Logger) *APIHandlers {
	return &APIHandlers{
		session:       sess,
		maxImageBytes: maxImageBytes,
		log:           logger,
	}
}

// SendMessageRequest represents the send message request body.
type SendMessageRequest struct {
	Body  string `json:"body"`
	Image bool   `json:"image"`
}

// Session returns the signed-in user and the active group.
// GET /api/session
func (h *APIHandlers) Session(c *gin.Context) {
	resp := SessionResponse{Self: userResponse(h.session.Self())}
	g, ok, err := h.session.ActiveGroup(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	if ok {
		resp.Active = groupResponse(g)
	}
	c.JSON(http.StatusOK, resp)
}

// SelectGroup makes a group active.
// POST /api/groups/:id/select
func (h *APIHandlers) SelectGroup(c *gin.Context) {
	groupID := c.Param("id")
	if err := h.session.SelectGroup(c.Request.Context(), groupID); err != nil {
		h.fail(c, err)
		return
	}
	h.log.Info().Str("group_id", groupID).Msg("group selected via api")
	c.JSON(http.StatusAccepted, gin.H{"group_id": groupID})
}

// Timeline returns the rendered timeline of a group.
// GET /api/groups/:id/timeline
func (h *APIHandlers) Timeline(c *gin.Context) {
	groupID := c.Param("id")
	msgs, err := h.session.Timeline(c.Request.Context(), groupID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, TimelineResponse{GroupID: groupID, Messages: messagesResponse(msgs)})
}

// Presence returns a user's presence.
// GET /api/presence/:id
func (h *APIHandlers) Presence(c *gin.Context) {
	userID := c.Param("id")
	rec, err := h.session.Presence(c.Request.Context(), userID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, presenceResponse(rec, !rec.LastHeartbeat.IsZero()))
}

// SendMessage posts a message to the active group.
// POST /api/messages
func (h *APIHandlers) SendMessage(c *gin.Context) {
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid send request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Code: core.ErrCodeBadRequest})
		return
	}
	res, err := h.session.ComposeAndSend(c.Request.Context(), req.Body, req.Image)
	h.sent(c, res, err)
}

// SendImage encodes an uploaded picture and posts it to the active group.
// Oversized uploads go through the same rollback and notice as any other
// oversized image.
// POST /api/images
func (h *APIHandlers) SendImage(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "file is required", Code: core.ErrCodeBadRequest})
		return
	}
	f, err := fh.Open()
	if err != nil {
		h.log.Error().Err(err).Msg("open upload")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	defer f.Close()

	// The size limit applies to the encoded body and is enforced by the
	// session, which rolls the entry back and raises the notice. An upload
	// longer than the limit encodes past it whatever the tail holds.
	var r io.Reader = f
	if h.maxImageBytes > 0 {
		r = io.LimitReader(f, h.maxImageBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		h.log.Error().Err(err).Msg("read upload")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	body, err := composer.EncodeImage(data)
	if err != nil {
		h.fail(c, err)
		return
	}
	res, err := h.session.ComposeAndSend(c.Request.Context(), body, true)
	h.sent(c, res, err)
}

// Retry re-sends a failed message.
// POST /api/messages/:id/retry
func (h *APIHandlers) Retry(c *gin.Context) {
	res, err := h.session.Retry(c.Request.Context(), c.Param("id"))
	h.sent(c, res, err)
}

// sent writes the outcome of a dispatch. A failed dispatch still carries the
// entry and its notice so the client can offer a retry.
func (h *APIHandlers) sent(c *gin.Context, res composer.Result, err error) {
	if err != nil && res.Message.ID == "" {
		h.fail(c, err)
		return
	}
	status := http.StatusCreated
	if err != nil {
		status, _ = errorResponse(err)
	}
	c.JSON(status, SendResponse{Message: messageResponse(res.Message), Notice: noticeResponse(res.Notice)})
}

func (h *APIHandlers) fail(c *gin.Context, err error) {
	status, body := errorResponse(err)
	if status >= http.StatusInternalServerError && status != http.StatusBadGateway {
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	} else {
		h.log.Debug().Err(err).Str("path", c.FullPath()).Msg("request rejected")
	}
	c.JSON(status, body)
}
