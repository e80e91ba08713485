package routes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/Wikid82/warden/internal/config"
	"github.com/Wikid82/warden/internal/models"
	"github.com/Wikid82/warden/internal/services"
)

const testSecret = "routes-test-secret"

type apiEnv struct {
	engine *gin.Engine
	db     *gorm.DB
	tokens *services.TokenService
}

func setupAPI(t *testing.T) *apiEnv {
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	assert.NoError(t, err)

	cfg := config.Config{
		Environment:         "test",
		TokenSecret:         testSecret,
		DatabaseDriver:      "sqlite",
		ConsentHelperPath:   filepath.Join(t.TempDir(), "missing-helper"),
		ConsentTimeout:      time.Second,
		DefaultDecision:     "deny",
		MaxTemporarySeconds: 3600,
	}

	engine := gin.New()
	assert.NoError(t, Register(engine, db, cfg, Deps{RunID: 1, StartTime: time.Now()}))

	return &apiEnv{engine: engine, db: db, tokens: services.NewTokenService(testSecret)}
}

func (e *apiEnv) token(t *testing.T, user models.User, scopes ...string) string {
	t.Helper()
	raw, err := e.tokens.Mint(user, scopes, time.Hour)
	assert.NoError(t, err)
	return raw
}

func (e *apiEnv) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		assert.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	return w
}

func apiUser(n string) models.User {
	return models.User{
		AccountName: n,
		DomainName:  "CORP",
		AccountSid:  "S-1-5-21-" + n,
		DomainSid:   "S-1-5-21",
	}
}

func TestHealthAndMetricsAreUnauthenticated(t *testing.T) {
	env := setupAPI(t)

	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/health", "", nil).Code)
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/metrics", "", nil).Code)
}

func TestAuthGating(t *testing.T) {
	env := setupAPI(t)
	alice := apiUser("alice")

	t.Run("missing token", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodGet, "/about", "", nil).Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodGet, "/about", "junk", nil).Code)
	})

	t.Run("wrong scope", func(t *testing.T) {
		token := env.token(t, alice, services.ScopeLaunch)
		assert.Equal(t, http.StatusForbidden, env.do(t, http.MethodGet, "/about", token, nil).Code)
	})

	t.Run("read scope cannot write policy", func(t *testing.T) {
		token := env.token(t, alice, services.ScopeRead, services.ScopePolicyRead)
		w := env.do(t, http.MethodPost, "/policy/profiles", token, gin.H{"name": "x"})
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("right scope", func(t *testing.T) {
		token := env.token(t, alice, services.ScopeRead)
		w := env.do(t, http.MethodGet, "/about", token, nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "pipe_name")
	})
}

func TestProfileLifecycleOverAPI(t *testing.T) {
	env := setupAPI(t)
	admin := apiUser("admin")
	writeToken := env.token(t, admin, services.ScopePolicyRead, services.ScopePolicyWrite)

	t.Run("create and fetch", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/policy/profiles", writeToken, gin.H{
			"name":                   "Helpdesk",
			"elevation_method":       "LocalAdmin",
			"default_elevation_kind": "Confirm",
			"rules": []string{
				`{"version":1,"kind":"AutoApprove","path":{"kind":"Equals","data":"/usr/bin/top"}}`,
			},
		})
		assert.Equal(t, http.StatusCreated, w.Code)

		var created models.Profile
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
		assert.NotEmpty(t, created.UUID)

		w = env.do(t, http.MethodGet, "/policy/profiles/"+created.UUID, writeToken, nil)
		assert.Equal(t, http.StatusOK, w.Code)

		var got models.Profile
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Equal(t, "Helpdesk", got.Name)
		assert.Equal(t, models.ElevationConfirm, got.DefaultElevationKind)
	})

	t.Run("invalid profile is a 400", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/policy/profiles", writeToken, gin.H{
			"name":                   "Broken",
			"elevation_method":       "LocalAdmin",
			"default_elevation_kind": "Maybe",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown profile is a 404", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/policy/profiles/"+uuid.New().String(), writeToken, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)

		w = env.do(t, http.MethodDelete, "/policy/profiles/"+uuid.New().String(), writeToken, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestMeFlow(t *testing.T) {
	env := setupAPI(t)
	alice := apiUser("alice")
	admin := apiUser("admin")

	adminToken := env.token(t, admin, services.ScopePolicyRead, services.ScopePolicyWrite)
	aliceToken := env.token(t, alice, services.ScopeRead)

	t.Run("unknown user sees the zero uuid", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/policy/me", aliceToken, nil)
		assert.Equal(t, http.StatusOK, w.Code)

		var body struct {
			Active    string   `json:"active"`
			Available []string `json:"available"`
		}
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, uuid.Nil.String(), body.Active)
		assert.Empty(t, body.Available)
	})

	// Create a profile and assign alice to it.
	w := env.do(t, http.MethodPost, "/policy/profiles", adminToken, gin.H{
		"name":                   "Ops",
		"elevation_method":       "LocalAdmin",
		"default_elevation_kind": "Confirm",
	})
	assert.Equal(t, http.StatusCreated, w.Code)
	var profile models.Profile
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &profile))

	w = env.do(t, http.MethodPut, "/policy/assignments/"+profile.UUID, adminToken, []models.User{alice})
	assert.Equal(t, http.StatusNoContent, w.Code)

	t.Run("select assigned profile", func(t *testing.T) {
		w := env.do(t, http.MethodPut, "/policy/me/"+profile.UUID, aliceToken, nil)
		assert.Equal(t, http.StatusNoContent, w.Code)

		w = env.do(t, http.MethodGet, "/policy/me", aliceToken, nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), profile.UUID)
	})

	t.Run("cannot select unassigned profile", func(t *testing.T) {
		bobToken := env.token(t, apiUser("bob"), services.ScopeRead)
		w := env.do(t, http.MethodPut, "/policy/me/"+profile.UUID, bobToken, nil)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestLaunchOverAPI(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("launch tests use a shell script target")
	}

	env := setupAPI(t)
	alice := apiUser("alice")
	launchToken := env.token(t, alice, services.ScopeLaunch)

	target := filepath.Join(t.TempDir(), "target.sh")
	assert.NoError(t, os.WriteFile(target, []byte("#!/bin/sh\nexit 0\n"), 0o755))

	t.Run("denied under the organizational default", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/launch", launchToken, gin.H{"target_path": target})
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Contains(t, w.Body.String(), "outcome")

		var rows []models.JitElevationLog
		assert.NoError(t, env.db.Find(&rows).Error)
		assert.Len(t, rows, 1)
		assert.False(t, rows[0].Success)
		assert.Equal(t, models.FailureNoProfile, rows[0].FailureKind)
	})

	t.Run("missing target path is a 400", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/launch", launchToken, gin.H{})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("launch scope required", func(t *testing.T) {
		readToken := env.token(t, alice, services.ScopeRead)
		w := env.do(t, http.MethodPost, "/launch", readToken, gin.H{"target_path": target})
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestTemporaryElevationOverAPI(t *testing.T) {
	env := setupAPI(t)
	alice := apiUser("alice")
	token := env.token(t, alice, services.ScopeLaunch)

	w := env.do(t, http.MethodPost, "/elevate/temporary", token, gin.H{"seconds": 600})
	assert.Equal(t, http.StatusCreated, w.Code)

	var grant models.ElevateTmpRequest
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &grant))
	assert.Equal(t, 600, grant.Seconds)
	assert.NotZero(t, grant.ReqID, "grant is correlated to its request row")

	w = env.do(t, http.MethodPost, "/elevate/temporary", token, gin.H{"seconds": 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLogEndpoints(t *testing.T) {
	env := setupAPI(t)
	auditor := apiUser("auditor")
	token := env.token(t, auditor, services.ScopeLogRead)

	// Seed a few rows directly.
	for i := 0; i < 3; i++ {
		assert.NoError(t, env.db.Create(&models.JitElevationLog{
			Success:         i%2 == 0,
			TimestampMicros: time.Now().UnixMicro(),
			TargetPath:      fmt.Sprintf("/usr/bin/tool-%d", i),
		}).Error)
	}

	t.Run("query pages newest first", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/log/jit?page_size=2", token, nil)
		assert.Equal(t, http.StatusOK, w.Code)

		var page services.AuditPage
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
		assert.Len(t, page.Rows, 2)
		assert.EqualValues(t, 3, page.Total)
		assert.NotZero(t, page.NextCursor)
	})

	t.Run("fetch by id", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/log/jit/1", token, nil)
		assert.Equal(t, http.StatusOK, w.Code)

		w = env.do(t, http.MethodGet, "/log/jit/999", token, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)

		w = env.do(t, http.MethodGet, "/log/jit/not-a-number", token, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("invalid cursor", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/log/jit?cursor=banana", token, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("log scope required", func(t *testing.T) {
		readToken := env.token(t, auditor, services.ScopeRead)
		assert.Equal(t, http.StatusForbidden, env.do(t, http.MethodGet, "/log/jit", readToken, nil).Code)
	})
}

func TestRequestRowsAreRecorded(t *testing.T) {
	env := setupAPI(t)
	token := env.token(t, apiUser("alice"), services.ScopeRead)

	env.do(t, http.MethodGet, "/about", token, nil)
	env.do(t, http.MethodGet, "/about", token, nil)

	var rows []models.HTTPRequest
	assert.NoError(t, env.db.Order("id").Find(&rows).Error)
	assert.Len(t, rows, 2)
	assert.Equal(t, "/about", rows[0].Path)
	assert.Equal(t, http.StatusOK, rows[0].StatusCode)
	assert.Greater(t, rows[1].ID, rows[0].ID)
}
