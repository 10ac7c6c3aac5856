package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"tasktracker/internal/auth"
	"tasktracker/internal/dto"
	"tasktracker/internal/repo"
	"tasktracker/internal/service"
)

func newTestRouter(t *testing.T, policy service.Policy) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	sessions := auth.NewStore(rdb, time.Hour)
	users := service.NewUserServiceWithCost(repo.NewMemUserRepo(), bcrypt.MinCost)
	tasks := service.NewTaskService(service.NewTaskStore(repo.NewMemTaskRepo()), service.NewGuard(policy))
	log := zap.NewNop()

	ah := NewAuthHandler(sessions, users, log)
	th := NewTaskHandler(tasks, log)
	wh := NewWebHandler(tasks, ah, log)

	r := gin.New()
	r.SetHTMLTemplate(Templates())

	api := r.Group("/api/v1")
	api.POST("/auth/register", ah.Register)
	api.POST("/auth/login", ah.Login)
	api.POST("/auth/logout", ah.Logout)
	protected := api.Group("", auth.RequireSession(sessions))
	protected.GET("/auth/me", ah.Me)
	protected.POST("/tasks", th.Create)
	protected.GET("/tasks", th.List)
	protected.GET("/tasks/:id", th.Get)
	protected.PATCH("/tasks/:id", th.Update)
	protected.DELETE("/tasks/:id", th.Delete)
	protected.POST("/tasks/:id/toggle", th.Toggle)

	web := r.Group("/app")
	web.GET("/login", wh.LoginPage)
	web.POST("/login", wh.Login)
	web.POST("/register", wh.Register)
	web.POST("/logout", wh.Logout)
	pages := web.Group("", auth.RequireSessionOrRedirect(sessions, "/app/login"))
	pages.GET("/tasks", wh.List)
	pages.POST("/tasks", wh.Create)
	pages.POST("/tasks/:id/toggle", wh.Toggle)
	pages.POST("/tasks/:id/delete", wh.Delete)
	return r
}

func do(r http.Handler, method, path, body string, cookie *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func postForm(r http.Handler, path string, form url.Values, cookie *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.SessionCookieName && c.Value != "" {
			return c
		}
	}
	t.Fatalf("no session cookie in response (status %d)", rec.Code)
	return nil
}

// registerUser signs up name and returns its session cookie and user id.
func registerUser(t *testing.T, r http.Handler, name string) (*http.Cookie, string) {
	t.Helper()
	rec := do(r, http.MethodPost, "/api/v1/auth/register", `{"username":"`+name+`","password":"secret"}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp dto.AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return sessionCookie(t, rec), resp.User.ID
}

func createTask(t *testing.T, r http.Handler, cookie *http.Cookie, description string) dto.TaskResponse {
	t.Helper()
	body, err := json.Marshal(dto.CreateTaskRequest{Description: description})
	require.NoError(t, err)
	rec := do(r, http.MethodPost, "/api/v1/tasks", string(body), cookie)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeTask(t, rec)
}

func decodeTask(t *testing.T, rec *httptest.ResponseRecorder) dto.TaskResponse {
	t.Helper()
	var task dto.TaskResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &task))
	return task
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp dto.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Error
}

func listIDs(t *testing.T, r http.Handler, cookie *http.Cookie, query string) []int64 {
	t.Helper()
	rec := do(r, http.MethodGet, "/api/v1/tasks"+query, "", cookie)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp dto.ListTasksResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	ids := make([]int64, 0, len(resp.Items))
	for _, it := range resp.Items {
		ids = append(ids, it.ID)
	}
	return ids
}
