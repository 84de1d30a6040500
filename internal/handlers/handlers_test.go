package handlers_test

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	_ "modernc.org/sqlite"

	"SecureVault/internal/cache"
	"SecureVault/internal/config"
	"SecureVault/internal/handlers"
	"SecureVault/internal/repo"
	"SecureVault/internal/service"
	"SecureVault/internal/storage"
)

// newTestRouter собирает полный стек поверх in-memory SQLite и
// временного каталога контента.
func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dial := gormsqlite.Dialector{DriverName: "sqlite", DSN: fmt.Sprintf("file:%s?mode=memory&cache=shared", name)}
	db, err := gorm.Open(dial, &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite (modernc): %v", err)
	}
	require.NoError(t, repo.Migrate(db))

	store, err := storage.NewFSStore(t.TempDir())
	require.NoError(t, err)

	cfg := &config.Config{AuthSecret: "test-secret", KeyWrapSecret: "test-wrap", UploadMaxSizeMB: 1}
	logger := zap.NewNop().Sugar()
	kv := cache.NewMemoryKV()

	userRepo := repo.NewUserRepository(db)
	keyRepo := repo.NewKeyRepository(db)
	roomRepo := repo.NewRoomRepository(db)
	fileRepo := repo.NewFileRepository(db)
	lockRepo := repo.NewLockRepository(db)
	shareRepo := repo.NewShareRepository(db)
	auditRepo := repo.NewAuditRepository(db)

	auditSvc := service.NewAuditService(auditRepo, logger)
	keySvc := service.NewKeyService(keyRepo, cfg.KeyWrapSecret)
	securitySvc := service.NewSecurityService(kv, userRepo, auditSvc, logger, 5, 10*time.Minute)
	userSvc := service.NewUserService(userRepo, keySvc, securitySvc, auditSvc)
	roomSvc := service.NewRoomService(roomRepo, fileRepo, keySvc, store, auditSvc, logger)
	chatSvc := service.NewChatService(repo.NewChatRepository(db), roomSvc, auditSvc)
	fileSvc := service.NewFileService(fileRepo, roomSvc, store, auditSvc, logger)
	lockSvc := service.NewLockService(lockRepo, fileRepo, auditSvc, 15*time.Minute)
	shareSvc := service.NewShareService(shareRepo, fileSvc, auditSvc)

	h := handlers.NewHandler(userSvc, fileSvc, roomSvc, chatSvc, lockSvc, shareSvc, auditSvc, logger, cfg)
	return h.Router
}

// registerUser регистрирует пользователя через API и возвращает auth-куку.
func registerUser(t *testing.T, router http.Handler, username string) *http.Cookie {
	t.Helper()
	body := fmt.Sprintf(`{"username":%q,"email":"%s@example.com","password":"password123"}`, username, username)
	req := httptest.NewRequest(http.MethodPost, "/api/user/register", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	for _, c := range rr.Result().Cookies() {
		if c.Name == "auth_token" {
			return c
		}
	}
	t.Fatal("Set-Cookie auth_token expected")
	return nil
}

func uploadFile(t *testing.T, router http.Handler, cookie *http.Cookie, path, filename, passphrase string, content []byte) map[string]any {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("passphrase", passphrase))
	require.NoError(t, mw.WriteField("algorithm", "AES-GCM"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.AddCookie(cookie)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var dto map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &dto))
	return dto
}

func doJSON(router http.Handler, method, path string, cookie *http.Cookie, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("{}")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestUser_RegisterLogin(t *testing.T) {
	router := newTestRouter(t)

	registerUser(t, router, "alice")

	t.Run("duplicate username", func(t *testing.T) {
		rr := doJSON(router, http.MethodPost, "/api/user/register", nil,
			`{"username":"alice","email":"dup@example.com","password":"p"}`)
		assert.Equal(t, http.StatusConflict, rr.Code)
	})

	t.Run("login ok", func(t *testing.T) {
		rr := doJSON(router, http.MethodPost, "/api/user/login", nil,
			`{"username":"alice","password":"password123"}`)
		assert.Equal(t, http.StatusOK, rr.Code)
		hasCookie := false
		for _, c := range rr.Result().Cookies() {
			if c.Name == "auth_token" {
				hasCookie = true
			}
		}
		assert.True(t, hasCookie)
	})

	t.Run("wrong password", func(t *testing.T) {
		rr := doJSON(router, http.MethodPost, "/api/user/login", nil,
			`{"username":"alice","password":"nope"}`)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("validation", func(t *testing.T) {
		rr := doJSON(router, http.MethodPost, "/api/user/register", nil,
			`{"username":"","email":"","password":""}`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestFiles_UploadDecryptFlow(t *testing.T) {
	router := newTestRouter(t)
	cookie := registerUser(t, router, "alice")

	content := []byte("secret document body")
	dto := uploadFile(t, router, cookie, "/api/files", "doc.txt", "phrase", content)
	fileID := int64(dto["id"].(float64))
	assert.Equal(t, "doc.txt", dto["filename"])
	assert.Equal(t, "AES-GCM", dto["algorithm"])

	t.Run("decrypt round trip", func(t *testing.T) {
		rr := doJSON(router, http.MethodPost, fmt.Sprintf("/api/files/%d/decrypt", fileID), cookie,
			`{"passphrase":"phrase"}`)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, content, rr.Body.Bytes())
		assert.Contains(t, rr.Header().Get("Content-Disposition"), "doc.txt")
	})

	t.Run("wrong passphrase", func(t *testing.T) {
		rr := doJSON(router, http.MethodPost, fmt.Sprintf("/api/files/%d/decrypt", fileID), cookie,
			`{"passphrase":"wrong"}`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("list", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/files", nil)
		req.AddCookie(cookie)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		require.Equal(t, http.StatusOK, rr.Code)

		var files []map[string]any
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &files))
		assert.Len(t, files, 1)
	})

	t.Run("unauthorized", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/files", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("delete", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/api/files/%d", fileID), nil)
		req.AddCookie(cookie)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusOK, rr.Code)

		rr = doJSON(router, http.MethodPost, fmt.Sprintf("/api/files/%d/decrypt", fileID), cookie,
			`{"passphrase":"phrase"}`)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestRooms_Flow(t *testing.T) {
	router := newTestRouter(t)
	ownerCookie := registerUser(t, router, "owner")
	memberCookie := registerUser(t, router, "member")

	// ID участника узнаём из ответа регистрации при логине.
	rr := doJSON(router, http.MethodPost, "/api/user/login", nil,
		`{"username":"member","password":"password123"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	var memberResp map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &memberResp))
	memberID := int64(memberResp["id"].(float64))

	rr = doJSON(router, http.MethodPost, "/api/rooms", ownerCookie,
		`{"name":"design","description":"drawings"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var room map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &room))
	roomID := int64(room["id"].(float64))
	assert.Equal(t, "owner", room["role"])

	t.Run("empty name rejected", func(t *testing.T) {
		rr := doJSON(router, http.MethodPost, "/api/rooms", ownerCookie, `{"name":""}`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("add member", func(t *testing.T) {
		rr := doJSON(router, http.MethodPost, fmt.Sprintf("/api/rooms/%d/members", roomID), ownerCookie,
			fmt.Sprintf(`{"user_id":%d,"role":"member"}`, memberID))
		assert.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	})

	t.Run("member uploads and owner decrypts", func(t *testing.T) {
		content := []byte("shared blueprint")
		dto := uploadFile(t, router, memberCookie, fmt.Sprintf("/api/rooms/%d/files", roomID), "plan.txt", "", content)
		fileID := int64(dto["id"].(float64))

		rr := doJSON(router, http.MethodPost,
			fmt.Sprintf("/api/rooms/%d/files/%d/decrypt", roomID, fileID), ownerCookie,
			`{"passphrase":""}`)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		assert.Equal(t, content, rr.Body.Bytes())
	})

	t.Run("member cannot add members", func(t *testing.T) {
		rr := doJSON(router, http.MethodPost, fmt.Sprintf("/api/rooms/%d/members", roomID), memberCookie,
			`{"user_id":12345,"role":"viewer"}`)
		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("outsider cannot see the room", func(t *testing.T) {
		outsider := registerUser(t, router, "outsider")
		req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/rooms/%d", roomID), nil)
		req.AddCookie(outsider)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("role change by owner", func(t *testing.T) {
		rr := doJSON(router, http.MethodPatch,
			fmt.Sprintf("/api/rooms/%d/members/%d", roomID, memberID), ownerCookie,
			`{"role":"admin"}`)
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("remove member", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete,
			fmt.Sprintf("/api/rooms/%d/members/%d", roomID, memberID), nil)
		req.AddCookie(ownerCookie)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusOK, rr.Code)
	})
}

func TestLocks_Flow(t *testing.T) {
	router := newTestRouter(t)
	cookie := registerUser(t, router, "alice")

	dto := uploadFile(t, router, cookie, "/api/files", "doc.txt", "p", []byte("x"))
	fileID := int64(dto["id"].(float64))

	rr := doJSON(router, http.MethodPost, fmt.Sprintf("/api/files/%d/lock", fileID), cookie, "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/files/%d/lock", fileID), nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var status map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, true, status["locked"])

	req = httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/api/files/%d/lock", fileID), nil)
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestShare_Flow(t *testing.T) {
	router := newTestRouter(t)
	cookie := registerUser(t, router, "alice")

	content := []byte("shared via link")
	dto := uploadFile(t, router, cookie, "/api/files", "doc.txt", "filephrase", content)
	fileID := int64(dto["id"].(float64))

	rr := doJSON(router, http.MethodPost, fmt.Sprintf("/api/files/%d/share", fileID), cookie,
		`{"ttl_minutes":60}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var share map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &share))
	token := share["token"].(string)

	// Доступ по токену не требует аутентификации.
	rr = doJSON(router, http.MethodPost, "/api/share/"+token, nil,
		`{"file_passphrase":"filephrase"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, content, rr.Body.Bytes())

	t.Run("unknown token", func(t *testing.T) {
		rr := doJSON(router, http.MethodPost, "/api/share/deadbeef", nil,
			`{"file_passphrase":"filephrase"}`)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestVersions_Flow(t *testing.T) {
	router := newTestRouter(t)
	cookie := registerUser(t, router, "alice")

	dto := uploadFile(t, router, cookie, "/api/files", "doc.txt", "p", []byte("v1"))
	fileID := int64(dto["id"].(float64))

	rr := doJSON(router, http.MethodPost, fmt.Sprintf("/api/files/%d/versions", fileID), cookie, "")
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/files/%d/versions", fileID), nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var listing map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listing))
	assert.Len(t, listing["versions"], 1)

	rr = doJSON(router, http.MethodPost, fmt.Sprintf("/api/files/%d/versions/1/restore", fileID), cookie, "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var restored map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &restored))
	assert.Equal(t, float64(2), restored["current_version"])
}

func TestChat_Flow(t *testing.T) {
	router := newTestRouter(t)
	ownerCookie := registerUser(t, router, "owner")
	memberCookie := registerUser(t, router, "member")
	viewerCookie := registerUser(t, router, "viewer")

	idOf := func(username string) int64 {
		rr := doJSON(router, http.MethodPost, "/api/user/login", nil,
			fmt.Sprintf(`{"username":%q,"password":"password123"}`, username))
		require.Equal(t, http.StatusOK, rr.Code)
		var resp map[string]any
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		return int64(resp["id"].(float64))
	}
	memberID := idOf("member")
	viewerID := idOf("viewer")

	rr := doJSON(router, http.MethodPost, "/api/rooms", ownerCookie, `{"name":"ops"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var room map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &room))
	roomID := int64(room["id"].(float64))

	rr = doJSON(router, http.MethodPost, fmt.Sprintf("/api/rooms/%d/members", roomID), ownerCookie,
		fmt.Sprintf(`{"user_id":%d,"role":"member"}`, memberID))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	rr = doJSON(router, http.MethodPost, fmt.Sprintf("/api/rooms/%d/members", roomID), ownerCookie,
		fmt.Sprintf(`{"user_id":%d,"role":"viewer"}`, viewerID))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	// Байтовые поля — base64 на проводе; сервер не видит открытого текста.
	body := fmt.Sprintf(`{"ciphertext":%q,"nonce":%q,"tag":%q}`,
		base64.StdEncoding.EncodeToString([]byte("sealed")),
		base64.StdEncoding.EncodeToString([]byte("nonce")),
		base64.StdEncoding.EncodeToString([]byte("tag16")))
	rr = doJSON(router, http.MethodPost, fmt.Sprintf("/api/rooms/%d/chat", roomID), memberCookie, body)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	t.Run("viewer reads history", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/rooms/%d/chat", roomID), nil)
		req.AddCookie(viewerCookie)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var history map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
		msgs := history["messages"].([]any)
		require.Len(t, msgs, 1)
		first := msgs[0].(map[string]any)
		assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("sealed")), first["ciphertext"])
		assert.Equal(t, "member", first["sender_username"])
	})

	t.Run("viewer cannot post", func(t *testing.T) {
		rr := doJSON(router, http.MethodPost, fmt.Sprintf("/api/rooms/%d/chat", roomID), viewerCookie, body)
		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("outsider denied", func(t *testing.T) {
		outsider := registerUser(t, router, "outsider")
		rr := doJSON(router, http.MethodPost, fmt.Sprintf("/api/rooms/%d/chat", roomID), outsider, body)
		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("incomplete triple rejected", func(t *testing.T) {
		rr := doJSON(router, http.MethodPost, fmt.Sprintf("/api/rooms/%d/chat", roomID), memberCookie,
			`{"ciphertext":"c2VhbGVk"}`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("unauthorized", func(t *testing.T) {
		rr := doJSON(router, http.MethodPost, fmt.Sprintf("/api/rooms/%d/chat", roomID), nil, body)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}
