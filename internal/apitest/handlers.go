package apitest

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func (b *Backend) register(c *gin.Context) {
	var req struct {
		Username  string `json:"username"`
		Lastname  string `json:"lastname"`
		Birthdate string `json:"birthdate"`
		Email     string `json:"email" binding:"required"`
		Password  string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Datos de registro inválidos"})
		return
	}

	key := strings.ToLower(req.Email)

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.users[key]; exists {
		c.JSON(http.StatusConflict, gin.H{"message": "El correo ya está registrado"})
		return
	}

	u := &user{
		ID:        uuid.NewString(),
		Username:  req.Username,
		Lastname:  req.Lastname,
		Birthdate: req.Birthdate,
		Email:     req.Email,
		Password:  req.Password,
	}
	b.users[key] = u
	c.JSON(http.StatusCreated, gin.H{"message": "Usuario creado", "user": u.json()})
}

func (b *Backend) login(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Solicitud inválida"})
		return
	}

	key := strings.ToLower(req.Email)

	b.mu.Lock()
	defer b.mu.Unlock()

	u, ok := b.users[key]
	if !ok || u.Password != req.Password {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Credenciales inválidas"})
		return
	}

	token := uuid.NewString()
	b.tokens[token] = key
	c.JSON(http.StatusOK, gin.H{"token": token, "user": u.json()})
}

func (b *Backend) forgotPassword(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "El correo es obligatorio"})
		return
	}

	key := strings.ToLower(req.Email)

	b.mu.Lock()
	if _, ok := b.users[key]; ok {
		b.resetTokens[uuid.NewString()] = key
	}
	b.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{"message": "Si el correo existe, recibirás un enlace de recuperación"})
}

func (b *Backend) resetPassword(c *gin.Context) {
	var req struct {
		Token       string `json:"token" binding:"required"`
		NewPassword string `json:"newPassword" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Solicitud inválida"})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	key, ok := b.resetTokens[req.Token]
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"message": "El enlace expiró o no es válido"})
		return
	}
	delete(b.resetTokens, req.Token)
	b.users[key].Password = req.NewPassword
	c.JSON(http.StatusOK, gin.H{"message": "Contraseña actualizada"})
}

func (b *Backend) getProfile(c *gin.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()

	u, ok := b.users[c.GetString("email")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"message": "Usuario no encontrado"})
		return
	}
	c.JSON(http.StatusOK, u.json())
}

func (b *Backend) updateProfile(c *gin.Context) {
	var req struct {
		Username  string `json:"username"`
		Lastname  string `json:"lastname"`
		Birthdate string `json:"birthdate"`
		Email     string `json:"email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Solicitud inválida"})
		return
	}

	key := c.GetString("email")

	b.mu.Lock()
	defer b.mu.Unlock()

	u, ok := b.users[key]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"message": "Usuario no encontrado"})
		return
	}

	if req.Email != "" && strings.ToLower(req.Email) != key {
		newKey := strings.ToLower(req.Email)
		if _, taken := b.users[newKey]; taken {
			c.JSON(http.StatusConflict, gin.H{"message": "El correo ya está registrado"})
			return
		}
		delete(b.users, key)
		b.users[newKey] = u
		b.tasks[newKey] = b.tasks[key]
		delete(b.tasks, key)
		for token, owner := range b.tokens {
			if owner == key {
				b.tokens[token] = newKey
			}
		}
		u.Email = req.Email
	}
	if req.Username != "" {
		u.Username = req.Username
	}
	if req.Lastname != "" {
		u.Lastname = req.Lastname
	}
	if req.Birthdate != "" {
		u.Birthdate = req.Birthdate
	}

	c.JSON(http.StatusOK, gin.H{"message": "Perfil actualizado", "user": u.json()})
}

type taskBody struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
	Date   string `json:"date"`
	Time   string `json:"time"`
	Status string `json:"status"`
}

func (b *Backend) listTasks(c *gin.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()

	tasks := b.tasks[c.GetString("email")]
	if tasks == nil {
		tasks = []gin.H{}
	}
	c.JSON(http.StatusOK, tasks)
}

func (b *Backend) createTask(c *gin.Context) {
	var req taskBody
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Title) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "El título es obligatorio"})
		return
	}

	task := gin.H{
		"_id":    uuid.NewString(),
		"title":  req.Title,
		"detail": req.Detail,
		"date":   req.Date,
		"time":   req.Time,
		"status": req.Status,
	}

	key := c.GetString("email")

	b.mu.Lock()
	b.tasks[key] = append(b.tasks[key], task)
	b.mu.Unlock()

	c.JSON(http.StatusCreated, gin.H{"message": "Tarea creada", "task": task})
}

// findTask must be called with b.mu held.
func (b *Backend) findTask(email, id string) (int, gin.H) {
	for i, t := range b.tasks[email] {
		if t["_id"] == id {
			return i, t
		}
	}
	return -1, nil
}

func (b *Backend) getTask(c *gin.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()

	_, task := b.findTask(c.GetString("email"), c.Param("id"))
	if task == nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "Tarea no encontrada"})
		return
	}
	c.JSON(http.StatusOK, task)
}

// updateTask answers with a bare message, like the production API does.
func (b *Backend) updateTask(c *gin.Context) {
	var req taskBody
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Solicitud inválida"})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	_, task := b.findTask(c.GetString("email"), c.Param("id"))
	if task == nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "Tarea no encontrada"})
		return
	}
	task["title"] = req.Title
	task["detail"] = req.Detail
	task["date"] = req.Date
	task["time"] = req.Time
	task["status"] = req.Status

	c.JSON(http.StatusOK, gin.H{"message": "Tarea actualizada"})
}

func (b *Backend) deleteTask(c *gin.Context) {
	key := c.GetString("email")

	b.mu.Lock()
	defer b.mu.Unlock()

	i, task := b.findTask(key, c.Param("id"))
	if task == nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "Tarea no encontrada"})
		return
	}
	b.tasks[key] = append(b.tasks[key][:i], b.tasks[key][i+1:]...)
	c.Status(http.StatusNoContent)
}
