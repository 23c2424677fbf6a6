package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/annel0/army-battle/internal/army"
	"github.com/annel0/army-battle/internal/auth"
	"github.com/annel0/army-battle/internal/eventbus"
	"github.com/annel0/army-battle/internal/game"
	"github.com/annel0/army-battle/internal/model"
	"github.com/annel0/army-battle/internal/scheduler"
	"github.com/annel0/army-battle/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type apiFixture struct {
	server *RestServer
	users  *storage.MemoryUserRepo
	armies *storage.MemoryArmyRepo
	sched  *scheduler.ManualScheduler
	auth   *auth.Service
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	users := storage.NewMemoryUserRepo()
	armies := storage.NewMemoryArmyRepo()
	svc := auth.NewService(users)
	factory := army.NewFactory(armies)
	sched := scheduler.NewManualScheduler()
	bus := eventbus.NewMemoryBus(256)
	t.Cleanup(func() { _ = bus.Close() })

	manager := game.NewManager(factory, sched, bus, game.ManagerConfig{TickPeriod: 1}, nil)
	t.Cleanup(func() { _ = manager.StopAll(context.Background()) })

	reg := prometheus.NewRegistry()
	rs := NewRestServer(Config{
		Users:      users,
		Armies:     armies,
		Auth:       svc,
		Factory:    factory,
		Games:      manager,
		Registerer: reg,
		Gatherer:   reg,
	})
	return &apiFixture{server: rs, users: users, armies: armies, sched: sched, auth: svc}
}

type apiResponse struct {
	Success bool               `json:"success"`
	Message string             `json:"message"`
	Data    json.RawMessage    `json:"data"`
	Error   string             `json:"error"`
	Fields  []model.FieldError `json:"fields"`
}

func (f *apiFixture) do(t *testing.T, method, path string, body interface{}, token string) (int, apiResponse) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(w, req)

	var resp apiResponse
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	}
	return w.Code, resp
}

func decodeData(t *testing.T, resp apiResponse, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(resp.Data, v))
}

func (f *apiFixture) createUser(t *testing.T, email string) string {
	t.Helper()
	code, resp := f.do(t, http.MethodPost, "/api/users", model.UserInput{Email: email, Name: "Player", Password: "password1"}, "")
	require.Equal(t, http.StatusCreated, code, resp.Error)
	var data struct {
		ID    string `json:"id"`
		Links []Link `json:"links"`
	}
	decodeData(t, resp, &data)
	require.NotEmpty(t, data.ID)
	require.Len(t, data.Links, 1)
	return data.ID
}

func (f *apiFixture) login(t *testing.T, email string) string {
	t.Helper()
	code, resp := f.do(t, http.MethodPost, "/api/auth/login", LoginRequest{Email: email, Password: "password1"}, "")
	require.Equal(t, http.StatusOK, code)
	var data auth.LoginResult
	decodeData(t, resp, &data)
	require.NotEmpty(t, data.Token)
	return data.Token
}

func (f *apiFixture) createArmy(t *testing.T, userID string) string {
	t.Helper()
	code, resp := f.do(t, http.MethodPost, "/api/users/"+userID+"/armies", CreateArmyRequest{Size: model.Size{Width: 100, Height: 100}}, "")
	require.Equal(t, http.StatusCreated, code, resp.Error)
	var data struct {
		ID string `json:"id"`
	}
	decodeData(t, resp, &data)
	return data.ID
}

func TestUsers_CreateValidation(t *testing.T) {
	f := newAPIFixture(t)

	code, resp := f.do(t, http.MethodPost, "/api/users", model.UserInput{Email: "bad", Password: "123"}, "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "validation_error", resp.Error)

	fields := make(map[string]bool)
	for _, fe := range resp.Fields {
		fields[fe.Field] = true
	}
	assert.True(t, fields["email"], "Ожидалась ошибка поля email")
	assert.True(t, fields["name"], "Ожидалась ошибка поля name")
	assert.True(t, fields["password"], "Ожидалась ошибка поля password")

	f.createUser(t, "dup@x.io")
	code, resp = f.do(t, http.MethodPost, "/api/users", model.UserInput{Email: "DUP@x.io", Name: "Other", Password: "password1"}, "")
	assert.Equal(t, http.StatusConflict, code, "Повторный email должен давать 409")
	assert.Equal(t, "conflict", resp.Error)
}

func TestUsers_CRUD(t *testing.T) {
	f := newAPIFixture(t)
	id := f.createUser(t, "crud@x.io")

	code, resp := f.do(t, http.MethodGet, "/api/users/"+id, nil, "")
	require.Equal(t, http.StatusOK, code)
	var got struct {
		User model.UserDocument `json:"user"`
	}
	decodeData(t, resp, &got)
	assert.Equal(t, "crud@x.io", got.User.Email)
	assert.Empty(t, got.User.PasswordHash, "Хэш пароля не должен уходить клиенту")

	code, _ = f.do(t, http.MethodPatch, "/api/users/"+id, model.UserInput{Name: "Renamed"}, "")
	require.Equal(t, http.StatusOK, code)
	stored, err := f.users.FindByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", stored.Name)

	code, resp = f.do(t, http.MethodPut, "/api/users/"+id, model.UserInput{Name: "Only name"}, "")
	assert.Equal(t, http.StatusBadRequest, code, "PUT без всех полей недопустим")
	assert.Equal(t, "validation_error", resp.Error)

	code, _ = f.do(t, http.MethodGet, "/api/users", nil, "")
	assert.Equal(t, http.StatusOK, code)

	code, _ = f.do(t, http.MethodDelete, "/api/users/"+id, nil, "")
	assert.Equal(t, http.StatusNoContent, code)

	code, resp = f.do(t, http.MethodGet, "/api/users/"+id, nil, "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "not_found", resp.Error)
}

func TestUsers_InfoRequiresToken(t *testing.T) {
	f := newAPIFixture(t)
	f.createUser(t, "me@x.io")

	code, _ := f.do(t, http.MethodGet, "/api/users/info", nil, "")
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = f.do(t, http.MethodGet, "/api/users/info", nil, "garbage")
	assert.Equal(t, http.StatusUnauthorized, code)

	token := f.login(t, "me@x.io")
	code, resp := f.do(t, http.MethodGet, "/api/users/info", nil, token)
	require.Equal(t, http.StatusOK, code)
	var data struct {
		User model.UserDocument `json:"user"`
	}
	decodeData(t, resp, &data)
	assert.Equal(t, "me@x.io", data.User.Email)

	code, resp = f.do(t, http.MethodPost, "/api/auth/login", LoginRequest{Email: "me@x.io", Password: "wrong-password"}, "")
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "invalid_credentials", resp.Error)
}

func TestArmies_CreateAndPatch(t *testing.T) {
	f := newAPIFixture(t)
	userID := f.createUser(t, "general@x.io")
	armyID := f.createArmy(t, userID)

	code, resp := f.do(t, http.MethodPost, "/api/users/"+userID+"/armies", CreateArmyRequest{Size: model.Size{Width: -1, Height: 5}}, "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "validation_error", resp.Error)

	patch := map[string]interface{}{
		"entities": []map[string]interface{}{
			{
				"position": map[string]float64{"x": 1, "y": 2},
				"size":     map[string]float64{"width": 1, "height": 1},
				"color":    "#ff0000",
				"config":   map[string]interface{}{"type": "barbarian", "speedMultiplier": 2},
			},
		},
	}
	code, resp = f.do(t, http.MethodPatch, "/api/users/"+userID+"/armies/"+armyID, patch, "")
	require.Equal(t, http.StatusOK, code, resp.Error)

	doc, err := f.armies.FindByID(context.Background(), armyID)
	require.NoError(t, err)
	require.Len(t, doc.Entities, 1)
	assert.Equal(t, 2.0, doc.Entities[0].Config.SpeedMultiplier)
	assert.Equal(t, 100.0, doc.Size.Width, "Незаданный размер не должен меняться")

	bad := map[string]interface{}{
		"entities": []map[string]interface{}{
			{
				"position": map[string]float64{"x": 1, "y": 2},
				"size":     map[string]float64{"width": 1, "height": 1},
				"color":    "red",
				"config":   map[string]interface{}{"type": "dragon"},
			},
		},
	}
	code, resp = f.do(t, http.MethodPatch, "/api/users/"+userID+"/armies/"+armyID, bad, "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Len(t, resp.Fields, 2, "Ожидались ошибки цвета и конфигурации")

	otherID := f.createUser(t, "other@x.io")
	code, _ = f.do(t, http.MethodPatch, "/api/users/"+otherID+"/armies/"+armyID, patch, "")
	assert.Equal(t, http.StatusNotFound, code, "Чужая армия не должна изменяться")

	code, resp = f.do(t, http.MethodGet, "/api/users/"+userID+"/armies", nil, "")
	require.Equal(t, http.StatusOK, code)
	var list struct {
		Armies []model.ArmyDocument `json:"armies"`
	}
	decodeData(t, resp, &list)
	assert.Len(t, list.Armies, 1)
}

func TestGames_StartTickStop(t *testing.T) {
	f := newAPIFixture(t)
	userID := f.createUser(t, "cmd@x.io")
	token := f.login(t, "cmd@x.io")
	a1 := f.createArmy(t, userID)
	a2 := f.createArmy(t, userID)

	code, _ := f.do(t, http.MethodPost, "/api/games", StartGameRequest{Armies: []string{a1, a2}}, "")
	assert.Equal(t, http.StatusUnauthorized, code, "Запуск игры требует токен")

	code, resp := f.do(t, http.MethodPost, "/api/games", StartGameRequest{Armies: []string{a1}}, token)
	assert.Equal(t, http.StatusBadRequest, code, "Одна армия недопустима")
	assert.Equal(t, "validation_error", resp.Error)

	code, resp = f.do(t, http.MethodPost, "/api/games", StartGameRequest{Armies: []string{a1, "missing"}}, token)
	assert.Equal(t, http.StatusNotFound, code)

	code, resp = f.do(t, http.MethodPost, "/api/games", StartGameRequest{Armies: []string{a1, a2}}, token)
	require.Equal(t, http.StatusCreated, code, resp.Error)
	var info game.Info
	decodeData(t, resp, &info)
	assert.Equal(t, game.StatusInProgress, info.Status)
	assert.ElementsMatch(t, []string{a1, a2}, info.Armies)

	f.sched.Advance(3)

	code, resp = f.do(t, http.MethodGet, "/api/games/"+info.ID, nil, "")
	require.Equal(t, http.StatusOK, code)
	var got struct {
		Game game.Info `json:"game"`
	}
	decodeData(t, resp, &got)
	assert.Equal(t, uint64(3), got.Game.LoopCount)

	code, _ = f.do(t, http.MethodGet, "/api/games", nil, "")
	assert.Equal(t, http.StatusOK, code)

	code, resp = f.do(t, http.MethodPost, "/api/games/"+info.ID+"/stop", nil, token)
	require.Equal(t, http.StatusOK, code, resp.Error)
	decodeData(t, resp, &info)
	assert.Equal(t, game.StatusStopped, info.Status)

	code, _ = f.do(t, http.MethodGet, "/api/games/"+info.ID, nil, "")
	assert.Equal(t, http.StatusNotFound, code, "Остановленная игра удаляется из менеджера")
}

func TestAdmin_RegisterRequiresAdmin(t *testing.T) {
	f := newAPIFixture(t)
	f.createUser(t, "plain@x.io")
	token := f.login(t, "plain@x.io")

	body := model.UserInput{Email: "boss@x.io", Name: "Boss", Password: "password1"}
	code, _ := f.do(t, http.MethodPost, "/api/admin/users", body, token)
	assert.Equal(t, http.StatusForbidden, code)

	require.NoError(t, f.auth.EnsureAdmin(context.Background(), "root@x.io", "password1"))
	adminToken := f.login(t, "root@x.io")
	code, _ = f.do(t, http.MethodPost, "/api/admin/users", body, adminToken)
	assert.Equal(t, http.StatusCreated, code)

	boss, err := f.users.FindByEmail(context.Background(), "boss@x.io")
	require.NoError(t, err)
	assert.True(t, boss.IsAdmin)
}

func TestHealthAndServerInfo(t *testing.T) {
	f := newAPIFixture(t)

	code, resp := f.do(t, http.MethodGet, "/api/server", nil, "")
	require.Equal(t, http.StatusOK, code)
	var info struct {
		Name  string      `json:"name"`
		Stats ServerStats `json:"stats"`
	}
	decodeData(t, resp, &info)
	assert.Equal(t, "Army Battle Server", info.Name)
	assert.Positive(t, info.Stats.Goroutines)
	assert.Positive(t, info.Stats.HeapMB)
	assert.NotEmpty(t, info.Stats.Uptime)
	assert.Equal(t, 0, info.Stats.ActiveGames)

	w := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	f.server.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "rest_api_http_request_duration_seconds")
}
