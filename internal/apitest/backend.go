// Package apitest is an in-memory implementation of the KAIRO REST API. It
// backs the package tests and the kairo-mock development server.
package apitest

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const BasePath = "/api/v1"

type user struct {
	ID        string
	Username  string
	Lastname  string
	Birthdate string
	Email     string
	Password  string
}

func (u *user) json() gin.H {
	return gin.H{
		"_id":       u.ID,
		"username":  u.Username,
		"lastname":  u.Lastname,
		"birthdate": u.Birthdate,
		"email":     u.Email,
	}
}

type failure struct {
	status  int
	message string
}

// Backend holds the state behind the mock API.
type Backend struct {
	mu          sync.Mutex
	engine      *gin.Engine
	users       map[string]*user
	tokens      map[string]string
	tasks       map[string][]gin.H
	resetTokens map[string]string
	failures    map[string]failure
	requests    map[string]int
}

func NewBackend() *Backend {
	gin.SetMode(gin.TestMode)

	b := &Backend{
		engine:      gin.New(),
		users:       make(map[string]*user),
		tokens:      make(map[string]string),
		tasks:       make(map[string][]gin.H),
		resetTokens: make(map[string]string),
		failures:    make(map[string]failure),
		requests:    make(map[string]int),
	}
	b.routes()
	return b
}

func (b *Backend) Handler() http.Handler {
	return b.engine
}

// Start serves b on a test server closed at cleanup and returns the API
// origin (without the /api/v1 prefix).
func Start(tb testing.TB) (*Backend, string) {
	tb.Helper()
	b := NewBackend()
	srv := httptest.NewServer(b.Handler())
	tb.Cleanup(srv.Close)
	return b, srv.URL
}

func (b *Backend) routes() {
	api := b.engine.Group(BasePath, b.track)

	api.POST("/users", b.register)
	api.POST("/auth/login", b.login)
	api.POST("/users/forgot-password", b.forgotPassword)
	api.POST("/auth/reset-password", b.resetPassword)

	authed := api.Group("", b.requireToken)
	authed.GET("/users/profile", b.getProfile)
	authed.PUT("/users/profile", b.updateProfile)
	authed.GET("/tasks", b.listTasks)
	authed.POST("/tasks", b.createTask)
	authed.GET("/tasks/:id", b.getTask)
	authed.PUT("/tasks/:id", b.updateTask)
	authed.DELETE("/tasks/:id", b.deleteTask)
}

func routeKey(method, path string) string {
	return method + " " + strings.TrimPrefix(path, BasePath)
}

// track counts requests per route and serves injected failures.
func (b *Backend) track(c *gin.Context) {
	key := routeKey(c.Request.Method, c.FullPath())

	b.mu.Lock()
	b.requests[key]++
	f, failing := b.failures[key]
	if failing {
		delete(b.failures, key)
	}
	b.mu.Unlock()

	if failing {
		c.AbortWithStatusJSON(f.status, gin.H{"message": f.message})
		return
	}
	c.Next()
}

func (b *Backend) requireToken(c *gin.Context) {
	header := c.GetHeader("Authorization")
	token := strings.TrimPrefix(header, "Bearer ")

	b.mu.Lock()
	email, ok := b.tokens[token]
	b.mu.Unlock()

	if header == "" || !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Token inválido o ausente"})
		return
	}
	c.Set("email", email)
	c.Next()
}

// Fail makes the next request to route (e.g. "DELETE /tasks/:id") answer
// with status and message.
func (b *Backend) Fail(route string, status int, message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[route] = failure{status: status, message: message}
}

// Requests counts the requests received for route (e.g. "GET /tasks").
func (b *Backend) Requests(route string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.requests[route]
}

// AddUser seeds an account.
func (b *Backend) AddUser(username, email, password string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.users[strings.ToLower(email)] = &user{
		ID:        uuid.NewString(),
		Username:  username,
		Email:     email,
		Password:  password,
		Birthdate: "2000-01-01",
	}
}

// Issue returns a valid token for email without going through login.
func (b *Backend) Issue(email string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	token := uuid.NewString()
	b.tokens[token] = strings.ToLower(email)
	return token
}

// SeedTask stores fields verbatim, so tests can use legacy status spellings
// or identifier keys. It returns the task id.
func (b *Backend) SeedTask(email string, fields map[string]interface{}) string {
	b.mu.Lock()
	defer b.mu.Unlock()

	task := gin.H{}
	for k, v := range fields {
		task[k] = v
	}
	id, _ := task["_id"].(string)
	if id == "" {
		id = uuid.NewString()
		task["_id"] = id
	}
	key := strings.ToLower(email)
	b.tasks[key] = append(b.tasks[key], task)
	return id
}

// Tasks returns a copy of the stored tasks of email.
func (b *Backend) Tasks(email string) []map[string]interface{} {
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []map[string]interface{}
	for _, t := range b.tasks[strings.ToLower(email)] {
		cp := map[string]interface{}{}
		for k, v := range t {
			cp[k] = v
		}
		out = append(out, cp)
	}
	return out
}

// LastResetToken is the most recent reset token mailed to email.
func (b *Backend) LastResetToken(email string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	for token, owner := range b.resetTokens {
		if owner == strings.ToLower(email) {
			return token
		}
	}
	return ""
}

func (b *Backend) Password(email string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if u, ok := b.users[strings.ToLower(email)]; ok {
		return u.Password
	}
	return ""
}
