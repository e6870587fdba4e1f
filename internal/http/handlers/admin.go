package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/calmhq/calmcontent/internal/config"
	"github.com/calmhq/calmcontent/internal/domain/content"
	"github.com/calmhq/calmcontent/internal/domain/user"
	"github.com/calmhq/calmcontent/internal/repo/postgres"
	"github.com/calmhq/calmcontent/internal/security"
	"github.com/gin-gonic/gin"
)

type AdminUserStore interface {
	Update(ctx context.Context, id int64, params postgres.UpdateUserParams) (user.User, error)
	Delete(ctx context.Context, id int64) error
}

type AdminContentStore interface {
	ListAll(ctx context.Context) ([]content.WithOwner, error)
}

// AdminHandler is the role-gated maintenance surface. The routes mounting it
// run behind RequireAuth + RequireRole("admin").
type AdminHandler struct {
	users    AdminUserStore
	contents AdminContentStore
}

func NewAdminHandler(users AdminUserStore, contents AdminContentStore) *AdminHandler {
	return &AdminHandler{users: users, contents: contents}
}

func (h *AdminHandler) ListAllContents(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	items, err := h.contents.ListAll(cctx)

	if err != nil {
		RespondInternal(ctx, "Could not list contents")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"items": items,
		"count": len(items),
	})
}

type UpdateUserRequest struct {
	Email    *string `json:"email" binding:"omitempty,email"`
	Password *string `json:"password"`
	Role     *string `json:"role"`
}

func (h *AdminHandler) UpdateUser(ctx *gin.Context) {
	id, ok := userIDParam(ctx)
	if !ok {
		return
	}

	var req UpdateUserRequest

	if !BindJSON(ctx, &req) {
		return
	}

	params := postgres.UpdateUserParams{
		Email: req.Email,
		Role:  req.Role,
	}

	if req.Password != nil {
		hash, err := security.HashPassword(*req.Password)

		if err != nil {
			RespondInternal(ctx, "Could not update user")
			return
		}

		params.PasswordHash = &hash
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	u, err := h.users.Update(cctx, id, params)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}

		if errors.Is(err, user.ErrEmailTaken) {
			RespondBadRequest(ctx, "already_exists", "Email is already in use")
			return
		}

		RespondInternal(ctx, "Could not update user")
		return
	}

	ctx.JSON(http.StatusOK, u)
}

func (h *AdminHandler) DeleteUser(ctx *gin.Context) {
	id, ok := userIDParam(ctx)
	if !ok {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	err := h.users.Delete(cctx, id)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}

		RespondInternal(ctx, "Could not delete user")
		return
	}

	ctx.Status(http.StatusNoContent)
}

func userIDParam(ctx *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)

	if err != nil {
		RespondBadRequest(ctx, "invalid_request", "User id must be an integer")
		return 0, false
	}

	return id, true
}
