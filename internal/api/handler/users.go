package handler

import (
	"errors"
	"net/http"
	"time"

	"dmchat/backend/internal/apperr"
	"dmchat/backend/internal/storage"

	"github.com/gin-gonic/gin"
)

// Me повертає профіль поточного користувача.
func (h *Handler) Me(c *gin.Context) {
	ctx, cancel := requestCtx(c)
	defer cancel()

	user, err := h.Users.GetUser(ctx, identity(c).UserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			h.fail(c, apperr.New(apperr.NotFound, "user not found"))
			return
		}
		h.fail(c, apperr.Wrap(apperr.Internal, "user lookup failed", err))
		return
	}
	ok(c, http.StatusOK, user)
}

// Logout revokes the presented token for the rest of its lifetime.
func (h *Handler) Logout(c *gin.Context) {
	id := identity(c)
	if id.TokenID == "" {
		h.fail(c, apperr.New(apperr.BadRequest, "token cannot be revoked"))
		return
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	if err := h.Revoker.RevokeToken(ctx, id.TokenID, time.Until(id.ExpiresAt)); err != nil {
		h.fail(c, apperr.Wrap(apperr.Internal, "logout failed", err))
		return
	}
	ok(c, http.StatusOK, gin.H{"revoked": true})
}
