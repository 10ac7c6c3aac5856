package handlers

import (
	"embed"
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tasktracker/internal/auth"
	dom "tasktracker/internal/domain"
	"tasktracker/internal/service"
)

//go:embed templates/*.html
var templateFS embed.FS

// Templates parses the HTML view. The engine serving WebHandler must install
// it with SetHTMLTemplate.
func Templates() *template.Template {
	return template.Must(template.ParseFS(templateFS, "templates/*.html"))
}

const (
	webLoginPath = "/app/login"
	webTasksPath = "/app/tasks"
)

// WebHandler serves the server-rendered task list.
type WebHandler struct {
	tasks *service.TaskService
	auth  *AuthHandler
	log   *zap.Logger
}

func NewWebHandler(tasks *service.TaskService, authHandler *AuthHandler, log *zap.Logger) *WebHandler {
	return &WebHandler{tasks: tasks, auth: authHandler, log: log}
}

type pageData struct {
	Title       string
	Error       string
	Username    string
	Description string
	Completed   string
	Query       string
	Order       string
	Tasks       []dom.Task
}

func (h *WebHandler) LoginPage(c *gin.Context) {
	c.HTML(http.StatusOK, "login.html", pageData{Title: "Log in"})
}

func (h *WebHandler) Login(c *gin.Context) {
	username, password := c.PostForm("username"), c.PostForm("password")
	user, err := h.auth.userSvc.ValidateCredentials(c.Request.Context(), username, password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			c.HTML(http.StatusUnauthorized, "login.html", pageData{Title: "Log in", Error: err.Error(), Username: username})
			return
		}
		h.renderError(c, err)
		return
	}
	if !h.auth.startSession(c, user.ID) {
		return
	}
	c.Redirect(http.StatusSeeOther, webTasksPath)
}

func (h *WebHandler) Register(c *gin.Context) {
	username, password := c.PostForm("username"), c.PostForm("password")
	user, err := h.auth.userSvc.Register(c.Request.Context(), username, password)
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		c.HTML(http.StatusBadRequest, "login.html", pageData{Title: "Log in", Error: "username and password required", Username: username})
		return
	case errors.Is(err, service.ErrUsernameTaken):
		c.HTML(http.StatusConflict, "login.html", pageData{Title: "Log in", Error: err.Error(), Username: username})
		return
	case err != nil:
		h.renderError(c, err)
		return
	}
	if !h.auth.startSession(c, user.ID) {
		return
	}
	c.Redirect(http.StatusSeeOther, webTasksPath)
}

func (h *WebHandler) Logout(c *gin.Context) {
	h.auth.endSession(c)
	c.Redirect(http.StatusSeeOther, webLoginPath)
}

// List renders the caller's tasks. It accepts the same filter query as the
// JSON list endpoint.
func (h *WebHandler) List(c *gin.Context) {
	data, ok := h.listPage(c)
	if !ok {
		return
	}
	c.HTML(http.StatusOK, "tasks.html", data)
}

// Create adds a task from the form and redirects back to the list. A
// validation error re-renders the list with the message.
func (h *WebHandler) Create(c *gin.Context) {
	description := c.PostForm("description")
	_, err := h.tasks.Create(c.Request.Context(), auth.UserIDFromContext(c), description)
	if err == nil {
		c.Redirect(http.StatusSeeOther, webTasksPath)
		return
	}
	if !errors.Is(err, dom.ErrValidation) {
		h.renderError(c, err)
		return
	}
	data, ok := h.listPage(c)
	if !ok {
		return
	}
	data.Error = err.Error()
	data.Description = description
	c.HTML(http.StatusBadRequest, "tasks.html", data)
}

func (h *WebHandler) Toggle(c *gin.Context) {
	id, ok := h.formID(c)
	if !ok {
		return
	}
	if _, err := h.tasks.ToggleCompleted(c.Request.Context(), auth.UserIDFromContext(c), id); err != nil {
		h.renderError(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, webTasksPath)
}

func (h *WebHandler) Delete(c *gin.Context) {
	id, ok := h.formID(c)
	if !ok {
		return
	}
	if err := h.tasks.Delete(c.Request.Context(), auth.UserIDFromContext(c), id); err != nil {
		h.renderError(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, webTasksPath)
}

func (h *WebHandler) listPage(c *gin.Context) (pageData, bool) {
	data := pageData{
		Title:     "My tasks",
		Completed: c.Query("completed"),
		Query:     strings.TrimSpace(c.Query("q")),
		Order:     c.DefaultQuery("order", string(dom.OrderInsertion)),
	}
	var f dom.ListFilter
	if data.Completed != "" {
		done, err := strconv.ParseBool(data.Completed)
		if err != nil {
			h.renderStatus(c, http.StatusBadRequest, "completed: must be true or false")
			return data, false
		}
		f.Completed = &done
	}
	order, ok := dom.ParseOrder(data.Order)
	if !ok {
		h.renderStatus(c, http.StatusBadRequest, "order: must be insertion or newest")
		return data, false
	}
	f.Order = order
	f.Query = data.Query

	list, err := h.tasks.List(c.Request.Context(), auth.UserIDFromContext(c), f)
	if err != nil {
		h.renderError(c, err)
		return data, false
	}
	data.Tasks = list
	return data, true
}

func (h *WebHandler) formID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		h.renderStatus(c, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

func (h *WebHandler) renderError(c *gin.Context, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		h.log.Error("page failed", zap.String("path", c.FullPath()), zap.Error(err))
		h.renderStatus(c, status, "internal error")
		return
	}
	h.renderStatus(c, status, err.Error())
}

func (h *WebHandler) renderStatus(c *gin.Context, status int, msg string) {
	c.HTML(status, "error.html", pageData{Title: http.StatusText(status), Error: msg})
}
