package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/calmhq/calmcontent/internal/auth"
	"github.com/calmhq/calmcontent/internal/domain/user"
	"github.com/calmhq/calmcontent/internal/http/handlers"
	"github.com/calmhq/calmcontent/internal/security"
	"github.com/gin-gonic/gin"
)

// Make sure Gin does not spam the console during the test

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeUserStore implements handlers.UserStore and middlewares.UserLoader
// backed by a map, so auth flows run without a database.

type fakeUserStore struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]user.User

	getByEmailFn func(ctx context.Context, email string) (user.User, error)
	createFn     func(ctx context.Context, email, passwordHash, role string) (user.User, error)

	createCalls int
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{nextID: 1, byID: make(map[int64]user.User)}
}

func (f *fakeUserStore) GetByEmail(ctx context.Context, email string) (user.User, error) {
	if f.getByEmailFn != nil {
		return f.getByEmailFn(ctx, email)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	for _, u := range f.byID {
		if u.Email == email {
			return u, nil
		}
	}

	return user.User{}, user.ErrNotFound
}

func (f *fakeUserStore) Create(ctx context.Context, email, passwordHash, role string) (user.User, error) {
	f.mu.Lock()
	f.createCalls++
	f.mu.Unlock()

	if f.createFn != nil {
		return f.createFn(ctx, email, passwordHash, role)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	for _, u := range f.byID {
		if u.Email == email {
			return user.User{}, user.ErrEmailTaken
		}
	}

	u := user.User{
		ID:           f.nextID,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
		CreatedAt:    time.Now().UTC(),
	}
	f.byID[u.ID] = u
	f.nextID++

	return u, nil
}

func (f *fakeUserStore) GetByID(ctx context.Context, id int64) (user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	u, ok := f.byID[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}

	return u, nil
}

func newTestJWTManager(t *testing.T) *auth.Manager {
	t.Helper()

	m, err := auth.NewManager("test-secret-key", "HS256", 30*time.Minute)
	if err != nil {
		t.Fatalf("jwt manager: %v", err)
	}

	return m
}

// small helper which returns the gin engine to mount one handler per test

func setupRouter(method, path string, h gin.HandlerFunc) *gin.Engine {
	r := gin.New()

	r.Handle(method, path, h)

	return r
}

func postJSON(t *testing.T, r *gin.Engine, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	return w
}

func errorCode(t *testing.T, body []byte) string {
	t.Helper()

	var resp struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}

	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("failed to unmarshal error response: %v body=%s", err, body)
	}

	return resp.Error.Code
}

// Register tests

func TestRegisterHandler(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		storeSetUp     func(*fakeUserStore)
		wantStatusCode int
		wantErrorCode  string
	}{
		{
			name:           "success",
			body:           `{"email":"a@x.com","password":"pw1"}`,
			wantStatusCode: http.StatusOK,
		},
		{
			name: "duplicate_email",
			body: `{"email":"a@x.com","password":"pw1"}`,
			storeSetUp: func(f *fakeUserStore) {
				f.byID[1] = user.User{ID: 1, Email: "a@x.com", PasswordHash: "$2a$10$existing", Role: "user"}
				f.nextID = 2
			},
			wantStatusCode: http.StatusBadRequest,
			wantErrorCode:  "already_exists",
		},
		{
			name: "concurrent_duplicate_surfaces_as_already_exists",
			body: `{"email":"a@x.com","password":"pw1"}`,
			storeSetUp: func(f *fakeUserStore) {
				// lookup misses, insert loses the unique constraint race
				f.getByEmailFn = func(ctx context.Context, email string) (user.User, error) {
					return user.User{}, user.ErrNotFound
				}
				f.createFn = func(ctx context.Context, email, passwordHash, role string) (user.User, error) {
					return user.User{}, user.ErrEmailTaken
				}
			},
			wantStatusCode: http.StatusBadRequest,
			wantErrorCode:  "already_exists",
		},
		{
			name:           "invalid_email",
			body:           `{"email":"not-an-email","password":"pw1"}`,
			wantStatusCode: http.StatusUnprocessableEntity,
			wantErrorCode:  "validation_error",
		},
		{
			name:           "missing_password",
			body:           `{"email":"a@x.com"}`,
			wantStatusCode: http.StatusUnprocessableEntity,
			wantErrorCode:  "validation_error",
		},
		{
			name: "store_error",
			body: `{"email":"a@x.com","password":"pw1"}`,
			storeSetUp: func(f *fakeUserStore) {
				f.getByEmailFn = func(ctx context.Context, email string) (user.User, error) {
					return user.User{}, errors.New("db error")
				}
			},
			wantStatusCode: http.StatusInternalServerError,
			wantErrorCode:  "internal_error",
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			store := newFakeUserStore()

			if tt.storeSetUp != nil {
				tt.storeSetUp(store)
			}

			h := handlers.NewAuthHandler(store, newTestJWTManager(t))
			r := setupRouter(http.MethodPost, "/auth/register", h.Register)

			w := postJSON(t, r, "/auth/register", tt.body)

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

func TestRegisterHandler_ResponseShape(t *testing.T) {
	store := newFakeUserStore()
	h := handlers.NewAuthHandler(store, newTestJWTManager(t))
	r := setupRouter(http.MethodPost, "/auth/register", h.Register)

	w := postJSON(t, r, "/auth/register", `{"email":"a@x.com","password":"pw1"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if resp["id"] != float64(1) {
		t.Fatalf("got id %v, want 1", resp["id"])
	}

	if resp["email"] != "a@x.com" {
		t.Fatalf("got email %v, want a@x.com", resp["email"])
	}

	if _, leaked := resp["password_hash"]; leaked {
		t.Fatalf("password hash must never be returned")
	}

	// the stored hash is salted bcrypt, not the plain password
	stored := store.byID[1]

	if stored.PasswordHash == "pw1" {
		t.Fatalf("store received the plain password")
	}

	if !security.VerifyPassword("pw1", stored.PasswordHash) {
		t.Fatalf("stored hash does not verify against the original password")
	}
}

func TestRegisterHandler_DuplicateKeepsFirstHash(t *testing.T) {
	store := newFakeUserStore()
	h := handlers.NewAuthHandler(store, newTestJWTManager(t))
	r := setupRouter(http.MethodPost, "/auth/register", h.Register)

	w1 := postJSON(t, r, "/auth/register", `{"email":"a@x.com","password":"pw1"}`)
	if w1.Code != http.StatusOK {
		t.Fatalf("first register got %d, body=%s", w1.Code, w1.Body.String())
	}

	firstHash := store.byID[1].PasswordHash

	w2 := postJSON(t, r, "/auth/register", `{"email":"a@x.com","password":"other"}`)
	if w2.Code != http.StatusBadRequest {
		t.Fatalf("second register got %d, want 400, body=%s", w2.Code, w2.Body.String())
	}

	if store.byID[1].PasswordHash != firstHash {
		t.Fatalf("duplicate registration must not alter the stored hash")
	}

	if store.createCalls != 1 {
		t.Fatalf("expected a single insert, got %d", store.createCalls)
	}
}

// Login tests

func TestLoginHandler(t *testing.T) {
	hash, err := security.HashPassword("pw1")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	seed := func(f *fakeUserStore) {
		f.byID[1] = user.User{ID: 1, Email: "a@x.com", PasswordHash: hash, Role: "user"}
		f.nextID = 2
	}

	tests := []struct {
		name           string
		body           string
		storeSetUp     func(*fakeUserStore)
		wantStatusCode int
		wantErrorCode  string
	}{
		{
			name:           "success",
			body:           `{"email":"a@x.com","password":"pw1"}`,
			storeSetUp:     seed,
			wantStatusCode: http.StatusOK,
		},
		{
			name:           "wrong_password",
			body:           `{"email":"a@x.com","password":"wrong"}`,
			storeSetUp:     seed,
			wantStatusCode: http.StatusBadRequest,
			wantErrorCode:  "invalid_credentials",
		},
		{
			// identical outcome so account existence never leaks
			name:           "unknown_email",
			body:           `{"email":"nobody@x.com","password":"pw1"}`,
			storeSetUp:     seed,
			wantStatusCode: http.StatusBadRequest,
			wantErrorCode:  "invalid_credentials",
		},
		{
			name:           "missing_body_fields",
			body:           `{"email":"a@x.com"}`,
			storeSetUp:     seed,
			wantStatusCode: http.StatusUnprocessableEntity,
			wantErrorCode:  "validation_error",
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			store := newFakeUserStore()

			if tt.storeSetUp != nil {
				tt.storeSetUp(store)
			}

			h := handlers.NewAuthHandler(store, newTestJWTManager(t))
			r := setupRouter(http.MethodPost, "/auth/login", h.Login)

			w := postJSON(t, r, "/auth/login", tt.body)

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

func TestLoginHandler_TokenSubjectMatchesUser(t *testing.T) {
	jwtManager := newTestJWTManager(t)

	hash, err := security.HashPassword("pw1")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	store := newFakeUserStore()
	store.byID[7] = user.User{ID: 7, Email: "a@x.com", PasswordHash: hash, Role: "user"}

	h := handlers.NewAuthHandler(store, jwtManager)
	r := setupRouter(http.MethodPost, "/auth/login", h.Login)

	w := postJSON(t, r, "/auth/login", `{"email":"a@x.com","password":"pw1"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}

	var resp struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if resp.TokenType != "bearer" {
		t.Fatalf("got token_type %q, want bearer", resp.TokenType)
	}

	userID, err := jwtManager.Validate(resp.AccessToken)
	if err != nil {
		t.Fatalf("issued token failed validation: %v", err)
	}

	if userID != 7 {
		t.Fatalf("token subject %d, want 7", userID)
	}
}
