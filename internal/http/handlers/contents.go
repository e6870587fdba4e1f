package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/calmhq/calmcontent/internal/cache"
	"github.com/calmhq/calmcontent/internal/config"
	"github.com/calmhq/calmcontent/internal/domain/content"
	"github.com/calmhq/calmcontent/internal/http/middlewares"
	"github.com/calmhq/calmcontent/internal/utils"
	"github.com/gin-gonic/gin"
)

type ContentStore interface {
	Create(ctx context.Context, userID int64, title, body string) (content.Content, error)
	ListByUser(ctx context.Context, userID int64) ([]content.Content, error)
}

type ContentsHandler struct {
	repo  ContentStore
	cache *cache.Cache
}

func NewContentsHandler(repo ContentStore) *ContentsHandler {
	return &ContentsHandler{repo: repo}
}

func NewContentsHandlerWithCache(repo ContentStore, c *cache.Cache) *ContentsHandler {
	return &ContentsHandler{repo: repo, cache: c}
}

// List returns the caller's rows, insertion order, as a bare array. Every
// query is filtered by the authenticated user id; there is no cross-user
// read path here.
func (h *ContentsHandler) List(ctx *gin.Context) {
	u, ok := middlewares.CurrentUser(ctx)

	if !ok {
		RespondInternal(ctx, "Missing identity context")
		return
	}

	key := utils.BuildUserContentsCacheKey(u.ID)

	if h.cache != nil {
		if cached, ok := h.cache.Get(key); ok {
			if items, ok := cached.([]content.Content); ok {
				RespondJSONWithETag(ctx, http.StatusOK, items)
				return
			}
		}
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	items, err := h.repo.ListByUser(cctx, u.ID)

	if err != nil {
		RespondInternal(ctx, "Could not list contents")
		return
	}

	if h.cache != nil {
		h.cache.Set(key, items)
	}

	RespondJSONWithETag(ctx, http.StatusOK, items)
}

// Create inserts a row owned by the caller. Title is required; body defaults
// to the empty string.
func (h *ContentsHandler) Create(ctx *gin.Context) {
	u, ok := middlewares.CurrentUser(ctx)

	if !ok {
		RespondInternal(ctx, "Missing identity context")
		return
	}

	var req content.CreateContentRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	created, err := h.repo.Create(cctx, u.ID, req.Title, req.Body)

	if err != nil {
		RespondInternal(ctx, "Could not create content")
		return
	}

	if h.cache != nil {
		h.cache.Delete(utils.BuildUserContentsCacheKey(u.ID))
	}

	ctx.JSON(http.StatusOK, created)
}
