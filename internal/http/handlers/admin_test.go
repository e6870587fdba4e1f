package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/calmhq/calmcontent/internal/domain/content"
	"github.com/calmhq/calmcontent/internal/domain/user"
	"github.com/calmhq/calmcontent/internal/http/handlers"
	"github.com/calmhq/calmcontent/internal/repo/postgres"
	"github.com/calmhq/calmcontent/internal/security"
	"github.com/gin-gonic/gin"
)

type fakeAdminUserStore struct {
	updateFn func(ctx context.Context, id int64, params postgres.UpdateUserParams) (user.User, error)
	deleteFn func(ctx context.Context, id int64) error
}

func (f *fakeAdminUserStore) Update(ctx context.Context, id int64, params postgres.UpdateUserParams) (user.User, error) {
	return f.updateFn(ctx, id, params)
}

func (f *fakeAdminUserStore) Delete(ctx context.Context, id int64) error {
	return f.deleteFn(ctx, id)
}

type fakeAdminContentStore struct {
	listAllFn func(ctx context.Context) ([]content.WithOwner, error)
}

func (f *fakeAdminContentStore) ListAll(ctx context.Context) ([]content.WithOwner, error) {
	return f.listAllFn(ctx)
}

func setupAdminRouter(h *handlers.AdminHandler) *gin.Engine {
	r := gin.New()
	r.GET("/admin/contents", h.ListAllContents)
	r.PUT("/admin/users/:id", h.UpdateUser)
	r.DELETE("/admin/users/:id", h.DeleteUser)

	return r
}

func TestAdminListAllContents(t *testing.T) {
	rows := []content.WithOwner{
		{
			Content:    content.Content{ID: 1, Title: "T", Body: "B", CreatedAt: time.Now().UTC()},
			OwnerEmail: "a@x.com",
		},
		{
			Content:    content.Content{ID: 2, Title: "U", CreatedAt: time.Now().UTC()},
			OwnerEmail: "b@x.com",
		},
	}

	contentsStore := &fakeAdminContentStore{
		listAllFn: func(ctx context.Context) ([]content.WithOwner, error) {
			return rows, nil
		},
	}

	h := handlers.NewAdminHandler(&fakeAdminUserStore{}, contentsStore)
	r := setupAdminRouter(h)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/contents", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}

	var resp struct {
		Items []struct {
			ID         int64  `json:"id"`
			Title      string `json:"title"`
			OwnerEmail string `json:"owner_email"`
		} `json:"items"`
		Count int `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if resp.Count != 2 || len(resp.Items) != 2 {
		t.Fatalf("got count=%d items=%d, want 2/2", resp.Count, len(resp.Items))
	}

	if resp.Items[0].OwnerEmail != "a@x.com" || resp.Items[1].OwnerEmail != "b@x.com" {
		t.Fatalf("owner emails wrong: %+v", resp.Items)
	}
}

func TestAdminUpdateUser(t *testing.T) {
	tests := []struct {
		name           string
		path           string
		body           string
		updateFn       func(ctx context.Context, id int64, params postgres.UpdateUserParams) (user.User, error)
		wantStatusCode int
		wantErrorCode  string
	}{
		{
			name: "success",
			path: "/admin/users/7",
			body: `{"role":"admin"}`,
			updateFn: func(ctx context.Context, id int64, params postgres.UpdateUserParams) (user.User, error) {
				if id != 7 {
					t.Fatalf("got id %d, want 7", id)
				}
				if params.Role == nil || *params.Role != "admin" {
					t.Fatalf("role param not forwarded: %+v", params)
				}
				return user.User{ID: 7, Email: "a@x.com", Role: "admin"}, nil
			},
			wantStatusCode: http.StatusOK,
		},
		{
			name: "not_found",
			path: "/admin/users/99",
			body: `{"role":"admin"}`,
			updateFn: func(ctx context.Context, id int64, params postgres.UpdateUserParams) (user.User, error) {
				return user.User{}, user.ErrNotFound
			},
			wantStatusCode: http.StatusNotFound,
			wantErrorCode:  "not_found",
		},
		{
			name: "email_taken",
			path: "/admin/users/7",
			body: `{"email":"b@x.com"}`,
			updateFn: func(ctx context.Context, id int64, params postgres.UpdateUserParams) (user.User, error) {
				return user.User{}, user.ErrEmailTaken
			},
			wantStatusCode: http.StatusBadRequest,
			wantErrorCode:  "already_exists",
		},
		{
			name:           "invalid_email",
			path:           "/admin/users/7",
			body:           `{"email":"nope"}`,
			wantStatusCode: http.StatusUnprocessableEntity,
			wantErrorCode:  "validation_error",
		},
		{
			name:           "non_numeric_id",
			path:           "/admin/users/abc",
			body:           `{"role":"admin"}`,
			wantStatusCode: http.StatusBadRequest,
			wantErrorCode:  "invalid_request",
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			users := &fakeAdminUserStore{updateFn: tt.updateFn}
			h := handlers.NewAdminHandler(users, &fakeAdminContentStore{})
			r := setupAdminRouter(h)

			req := httptest.NewRequest(http.MethodPut, tt.path, strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")

			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}

			if tt.wantErrorCode != "" {
				if code := errorCode(t, w.Body.Bytes()); code != tt.wantErrorCode {
					t.Fatalf("got error code %q, want %q", code, tt.wantErrorCode)
				}
			}
		})
	}
}

func TestAdminUpdateUser_HashesPassword(t *testing.T) {
	var gotParams postgres.UpdateUserParams

	users := &fakeAdminUserStore{
		updateFn: func(ctx context.Context, id int64, params postgres.UpdateUserParams) (user.User, error) {
			gotParams = params
			return user.User{ID: id, Email: "a@x.com", Role: "user"}, nil
		},
	}

	h := handlers.NewAdminHandler(users, &fakeAdminContentStore{})
	r := setupAdminRouter(h)

	req := httptest.NewRequest(http.MethodPut, "/admin/users/7", strings.NewReader(`{"password":"new-pw"}`))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}

	if gotParams.PasswordHash == nil {
		t.Fatalf("expected a password hash in update params")
	}

	if *gotParams.PasswordHash == "new-pw" {
		t.Fatalf("store received the plain password")
	}

	if !security.VerifyPassword("new-pw", *gotParams.PasswordHash) {
		t.Fatalf("forwarded hash does not verify")
	}
}

func TestAdminDeleteUser(t *testing.T) {
	tests := []struct {
		name           string
		path           string
		deleteFn       func(ctx context.Context, id int64) error
		wantStatusCode int
	}{
		{
			name: "success",
			path: "/admin/users/7",
			deleteFn: func(ctx context.Context, id int64) error {
				return nil
			},
			wantStatusCode: http.StatusNoContent,
		},
		{
			name: "not_found",
			path: "/admin/users/99",
			deleteFn: func(ctx context.Context, id int64) error {
				return user.ErrNotFound
			},
			wantStatusCode: http.StatusNotFound,
		},
		{
			name: "store_error",
			path: "/admin/users/7",
			deleteFn: func(ctx context.Context, id int64) error {
				return errors.New("db error")
			},
			wantStatusCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			users := &fakeAdminUserStore{deleteFn: tt.deleteFn}
			h := handlers.NewAdminHandler(users, &fakeAdminContentStore{})
			r := setupAdminRouter(h)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, tt.path, nil))

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}
		})
	}
}
