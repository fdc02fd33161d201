// Package fakeapi is an in-memory implementation of the admin REST API
// contract. It backs the httptest servers used by the client-side tests;
// it is not a production server.
package fakeapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	"github.com/patric-chuzhbe/adminconsole/internal/models"
)

// Claims are the claims of the tokens the fake issues.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

type account struct {
	user     models.User
	password string
}

type failure struct {
	status  int
	message string
}

// API is the fake server state. The zero value is not usable; call New.
type API struct {
	mu           sync.Mutex
	accounts     []*account
	signingKey   []byte
	tokenTTL     time.Duration
	opaque       bool
	opaqueTokens map[string]string
	failures     map[string]failure
	hits         map[string]int
	lastReqID    string
}

type InitOption func(*API)

// WithTokenTTL sets the lifetime written into the exp claim.
func WithTokenTTL(ttl time.Duration) InitOption {
	return func(a *API) {
		a.tokenTTL = ttl
	}
}

// WithOpaqueTokens makes login hand out random non-JWT tokens.
func WithOpaqueTokens() InitOption {
	return func(a *API) {
		a.opaque = true
	}
}

func New(optionsProto ...InitOption) *API {
	a := &API{
		signingKey:   []byte("fake-api-signing-key"),
		tokenTTL:     time.Hour,
		opaqueTokens: map[string]string{},
		failures:     map[string]failure{},
		hits:         map[string]int{},
	}
	for _, protoOption := range optionsProto {
		protoOption(a)
	}

	return a
}

// AddUser seeds an account and returns its id.
func (a *API) AddUser(username, password string, role models.Role) string {
	a.mu.Lock()
	defer a.mu.Unlock()

	id := uuid.NewString()
	a.accounts = append(a.accounts, &account{
		user:     models.User{ID: id, Username: username, Role: role},
		password: password,
	})

	return id
}

// Users returns a copy of the current collection.
func (a *API) Users() models.Users {
	a.mu.Lock()
	defer a.mu.Unlock()

	result := make(models.Users, 0, len(a.accounts))
	for _, acc := range a.accounts {
		result = append(result, acc.user)
	}

	return result
}

// FailNext makes the next request matching "METHOD /path-pattern" answer
// with the given status and message.
func (a *API) FailNext(route string, status int, message string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.failures[route] = failure{status: status, message: message}
}

// Hits reports how many requests reached the route.
func (a *API) Hits(route string) int {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.hits[route]
}

// LastRequestID is the X-Request-ID of the most recent request.
func (a *API) LastRequestID() string {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.lastReqID
}

// IssueToken signs a token for the user id, as login would.
func (a *API) IssueToken(userID string, role models.Role, expiresAt time.Time) (string, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UserID: userID,
		Role:   string(role),
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.signingKey)
}

// Server starts an httptest server for the fake.
func (a *API) Server() *httptest.Server {
	return httptest.NewServer(a.Router())
}

func (a *API) Router() *chi.Mux {
	router := chi.NewRouter()
	router.Use(a.countHits)

	router.Post(`/api/login`, a.withFailures("POST /api/login", a.postLogin))
	router.Group(func(r chi.Router) {
		r.Use(a.requireAdmin)
		r.Get(`/api/users`, a.withFailures("GET /api/users", a.getUsers))
		r.Post(`/api/users`, a.withFailures("POST /api/users", a.postUsers))
		r.Delete(`/api/users/{uuid}`, a.withFailures("DELETE /api/users/{uuid}", a.deleteUser))
	})

	return router
}

func (a *API) countHits(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a.mu.Lock()
		a.lastReqID = r.Header.Get("X-Request-ID")
		a.mu.Unlock()

		h.ServeHTTP(w, r)
	})
}

func (a *API) withFailures(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a.mu.Lock()
		a.hits[route]++
		f, ok := a.failures[route]
		delete(a.failures, route)
		a.mu.Unlock()

		if ok {
			writeError(w, f.status, f.message)
			return
		}

		next(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	if message == "" {
		w.WriteHeader(status)
		return
	}
	writeJSON(w, status, models.ErrorResponse{Message: message})
}

func (a *API) postLogin(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request")
		return
	}

	a.mu.Lock()
	var found *account
	for _, acc := range a.accounts {
		if acc.user.Username == req.Username && acc.password == req.Password {
			found = acc
			break
		}
	}
	a.mu.Unlock()

	if found == nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := a.newToken(found.user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, models.LoginResponse{
		Token:  token,
		Role:   found.user.Role,
		UserID: found.user.ID,
	})
}

func (a *API) newToken(usr models.User) (string, error) {
	if a.opaque {
		token := uuid.NewString()
		a.mu.Lock()
		a.opaqueTokens[token] = usr.ID
		a.mu.Unlock()
		return token, nil
	}

	return a.IssueToken(usr.ID, usr.Role, time.Now().Add(a.tokenTTL))
}

var errUnauthorized = errors.New("unauthorized")

func (a *API) callerID(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	tokenString, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || tokenString == "" {
		return "", errUnauthorized
	}

	if a.opaque {
		a.mu.Lock()
		id, found := a.opaqueTokens[tokenString]
		a.mu.Unlock()
		if !found {
			return "", errUnauthorized
		}
		return id, nil
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return a.signingKey, nil
		},
	)
	if err != nil || !token.Valid {
		return "", errUnauthorized
	}

	return claims.UserID, nil
}

func (a *API) requireAdmin(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := a.callerID(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "missing or invalid token")
			return
		}

		a.mu.Lock()
		var caller *account
		for _, acc := range a.accounts {
			if acc.user.ID == id {
				caller = acc
				break
			}
		}
		a.mu.Unlock()

		if caller == nil {
			writeError(w, http.StatusUnauthorized, "unknown user")
			return
		}
		if caller.user.Role != models.RoleAdmin {
			writeError(w, http.StatusForbidden, "admin role required")
			return
		}

		h.ServeHTTP(w, r)
	})
}

func (a *API) getUsers(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, a.Users())
}

func (a *API) postUsers(w http.ResponseWriter, r *http.Request) {
	var req models.CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request")
		return
	}

	a.mu.Lock()
	for _, acc := range a.accounts {
		if acc.user.Username == req.Username {
			a.mu.Unlock()
			writeError(w, http.StatusConflict, "username already exists")
			return
		}
	}
	usr := models.User{ID: uuid.NewString(), Username: req.Username, Role: req.Role}
	a.accounts = append(a.accounts, &account{user: usr, password: req.Password})
	a.mu.Unlock()

	writeJSON(w, http.StatusCreated, usr)
}

func (a *API) deleteUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "uuid")

	a.mu.Lock()
	defer a.mu.Unlock()

	for i, acc := range a.accounts {
		if acc.user.ID == id {
			a.accounts = append(a.accounts[:i], a.accounts[i+1:]...)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}

	writeError(w, http.StatusNotFound, "user not found")
}
