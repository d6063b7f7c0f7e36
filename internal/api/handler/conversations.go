package handler

import (
	"context"
	"net/http"
	"strconv"

	"dmchat/backend/internal/apperr"
	"dmchat/backend/internal/config"
	"dmchat/backend/internal/models"

	"github.com/gin-gonic/gin"
)

type startConversationRequest struct {
	UserID string `json:"userId"`
}

type sendMessageRequest struct {
	Content string `json:"content"`
}

func requestCtx(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), config.RequestTimeout)
}

// StartConversation знаходить або створює розмову з іншим користувачем.
func (h *Handler) StartConversation(c *gin.Context) {
	var req startConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.UserID == "" {
		h.fail(c, apperr.New(apperr.BadRequest, "userId is required"))
		return
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	conv, err := h.Chat.FindOrCreate(ctx, identity(c).UserID, req.UserID)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, conv)
}

func (h *Handler) ListConversations(c *gin.Context) {
	ctx, cancel := requestCtx(c)
	defer cancel()

	views, err := h.Chat.ListForUser(ctx, identity(c).UserID)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, views, gin.H{"count": len(views)})
}

func (h *Handler) GetConversation(c *gin.Context) {
	ctx, cancel := requestCtx(c)
	defer cancel()

	conv, err := h.Chat.GetIfParticipant(ctx, c.Param("id"), identity(c).UserID)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, conv)
}

// ListMessages returns history oldest first; ?limit=&offset= page through it.
func (h *Handler) ListMessages(c *gin.Context) {
	page, err := parsePage(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	res, err := h.Chat.ListForConversation(ctx, c.Param("id"), identity(c).UserID, page)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, res.Messages, gin.H{
		"count":  len(res.Messages),
		"total":  res.Total,
		"limit":  res.Limit,
		"offset": res.Offset,
	})
}

func (h *Handler) SendToConversation(c *gin.Context) {
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, apperr.New(apperr.BadRequest, "content is required"))
		return
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	view, err := h.Chat.Create(ctx, c.Param("id"), identity(c).UserID, req.Content)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusCreated, view)
}

func (h *Handler) SendToUser(c *gin.Context) {
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, apperr.New(apperr.BadRequest, "content is required"))
		return
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	view, err := h.Chat.SendToUser(ctx, identity(c).UserID, c.Param("id"), req.Content)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusCreated, view)
}

func (h *Handler) MarkConversationRead(c *gin.Context) {
	ctx, cancel := requestCtx(c)
	defer cancel()

	n, err := h.Chat.MarkAllReadInConversation(ctx, c.Param("id"), identity(c).UserID)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"conversationId": c.Param("id"), "count": n})
}

func (h *Handler) MarkMessageRead(c *gin.Context) {
	ctx, cancel := requestCtx(c)
	defer cancel()

	msg, err := h.Chat.MarkRead(ctx, c.Param("id"), identity(c).UserID)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, msg)
}

func parsePage(c *gin.Context) (models.Page, error) {
	var page models.Page
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return page, apperr.New(apperr.BadRequest, "limit must be a non-negative integer")
		}
		page.Limit = n
	}
	if v := c.Query("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return page, apperr.New(apperr.BadRequest, "offset must be a non-negative integer")
		}
		page.Offset = n
	}
	return page, nil
}
