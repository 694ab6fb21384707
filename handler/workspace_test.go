package handler

import (
	"bytes"
	"encoding/json"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/soumoditt-source/EcoDrone-AI/config"
	"github.com/soumoditt-source/EcoDrone-AI/middleware"
	"github.com/soumoditt-source/EcoDrone-AI/model"
	"github.com/soumoditt-source/EcoDrone-AI/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const partialBody = `{
	"status": "partial_error",
	"message": "OP3 unreadable for 2 pits",
	"total_pits": 3,
	"survival_rate": 33.3,
	"dead_count": 2,
	"details": [
		{"id": 1, "x": 100, "y": 200, "status": "alive", "confidence": 0.91},
		{"id": 2, "x": 10, "y": 20, "status": "dead", "confidence": 0.6},
		{"id": 3, "x": 30, "y": 40, "status": "dead", "confidence": 0.55}
	]
}`

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Kind    string          `json:"kind"`
	Data    json.RawMessage `json:"data"`
	State   json.RawMessage `json:"state"`
}

type testEnv struct {
	router   *gin.Engine
	requests *atomic.Int32
	previews *service.MemoryPreviewStore
}

func newTestEnv(t *testing.T, backend http.HandlerFunc) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		backend(w, r)
	}))
	t.Cleanup(srv.Close)

	cfg := config.Default()
	cfg.Analysis.Endpoint = srv.URL + "/api/analyze"
	cfg.Analysis.Timeout = 5 * time.Second

	previews := service.NewMemoryPreviewStore()
	sessions := service.NewSessionRegistry(&cfg.Session, service.NewAnalysisClient(&cfg.Analysis), previews)
	t.Cleanup(sessions.CloseAll)

	h := NewWorkspaceHandler(cfg, sessions,
		service.NewUploader(&cfg.Upload, previews),
		previews,
		service.NewOverlayRenderer(&cfg.Overlay),
		service.NewCompositor(&cfg.Snapshot))

	r := gin.New()
	r.MaxMultipartMemory = cfg.Upload.MaxSize + 1<<20
	h.Register(r.Group("/api/v1"), middleware.Session(sessions))

	return &testEnv{router: r, requests: &requests, previews: previews}
}

func (e *testEnv) do(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func (e *testEnv) createSession(t *testing.T) string {
	t.Helper()
	w, env := e.do(t, httptest.NewRequest(http.MethodPost, "/api/v1/sessions", nil))
	require.Equal(t, http.StatusCreated, w.Code)

	var state model.WorkflowState
	require.NoError(t, json.Unmarshal(env.Data, &state))
	assert.Equal(t, model.StateIdle, state.State)
	return state.Session
}

func pngImage(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

func uploadRequest(t *testing.T, session, slot, filename, contentType string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", `form-data; name="image"; filename="`+filename+`"`)
	hdr.Set("Content-Type", contentType)
	part, err := mw.CreatePart(hdr)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/"+session+"/images/"+slot, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func stateOf(t *testing.T, raw json.RawMessage) model.WorkflowState {
	t.Helper()
	var s model.WorkflowState
	require.NoError(t, json.Unmarshal(raw, &s))
	return s
}

func (e *testEnv) selectBoth(t *testing.T, session string) {
	t.Helper()
	for _, slot := range []string{"op1", "op3"} {
		w, _ := e.do(t, uploadRequest(t, session, slot, slot+".png", "image/png", pngImage(t, 2000, 1000)))
		require.Equal(t, http.StatusOK, w.Code, slot)
	}
}

func TestWorkspaceFullFlow(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, partialBody)
	})
	id := env.createSession(t)
	env.selectBoth(t, id)

	w, resp := env.do(t, httptest.NewRequest(http.MethodPost, "/api/v1/sessions/"+id+"/analysis?wait=true", nil))
	require.Equal(t, http.StatusOK, w.Code)
	state := stateOf(t, resp.Data)
	assert.Equal(t, model.StateSucceeded, state.State)
	assert.Equal(t, "OP3 unreadable for 2 pits", state.Warning)
	assert.True(t, state.CanExport)
	assert.True(t, state.CanSubmit)
	require.NotNil(t, state.Summary)
	assert.Equal(t, "33.3%", state.Summary.SurvivalRate)

	w, resp = env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/sessions/"+id+"/overlay?blend=25", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var scene model.Scene
	require.NoError(t, json.Unmarshal(resp.Data, &scene))
	require.Len(t, scene.Markers, 3)
	assert.Equal(t, [2]float64{800, 100}, scene.Markers[0].Center)
	op3, ok := scene.Layer(model.SlotOP3)
	require.True(t, ok)
	assert.Equal(t, 0.25, op3.Opacity)
	assert.Equal(t, "/api/v1/sessions/"+id+"/images/op3/preview", op3.URL)

	w, _ = env.do(t, httptest.NewRequest(http.MethodGet, op3.URL, nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	etag := w.Header().Get("ETag")
	require.NotEmpty(t, etag)

	req := httptest.NewRequest(http.MethodGet, op3.URL, nil)
	req.Header.Set("If-None-Match", etag)
	w, _ = env.do(t, req)
	assert.Equal(t, http.StatusNotModified, w.Code)

	w, _ = env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/sessions/"+id+"/export.csv", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Regexp(t, `attachment; filename="ecodrone_casualties_\d+\.csv"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "2", w.Header().Get("X-Export-Rows"))
	assert.Equal(t, "ID,X_Coordinate,Y_Coordinate,Confidence\n2,10,20,0.6\n3,30,40,0.55\n", w.Body.String())

	assert.EqualValues(t, 1, env.requests.Load())
}

func TestWorkspaceRejectsOversizedUpload(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {})
	id := env.createSession(t)

	big := append(pngImage(t, 4, 4), bytes.Repeat([]byte{0}, 12*1024*1024)...)
	w, resp := env.do(t, uploadRequest(t, id, "op1", "big.png", "image/png", big))
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, string(model.ErrValidation), resp.Kind)
	assert.Equal(t, model.StateIdle, stateOf(t, resp.State).State)
	assert.Zero(t, env.previews.Len())

	w, resp = env.do(t, uploadRequest(t, id, "op1", "notes.txt", "text/plain", []byte("hi")))
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, string(model.ErrValidation), resp.Kind)

	w, _ = env.do(t, httptest.NewRequest(http.MethodPost, "/api/v1/sessions/"+id+"/analysis", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, env.requests.Load())
}

func TestWorkspaceUploadWithoutFileIsNoop(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {})
	id := env.createSession(t)

	w, resp := env.do(t, httptest.NewRequest(http.MethodPost, "/api/v1/sessions/"+id+"/images/op1", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, model.StateIdle, stateOf(t, resp.Data).State)

	w, _ = env.do(t, httptest.NewRequest(http.MethodPost, "/api/v1/sessions/"+id+"/images/op2", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWorkspaceRejectsConcurrentSubmission(t *testing.T) {
	release := make(chan struct{})
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		<-release
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, partialBody)
	})
	id := env.createSession(t)
	env.selectBoth(t, id)

	w, resp := env.do(t, httptest.NewRequest(http.MethodPost, "/api/v1/sessions/"+id+"/analysis", nil))
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, model.StateSubmitting, stateOf(t, resp.Data).State)

	w, _ = env.do(t, httptest.NewRequest(http.MethodPost, "/api/v1/sessions/"+id+"/analysis", nil))
	assert.Equal(t, http.StatusConflict, w.Code)

	w, _ = env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/sessions/"+id+"/export.csv", nil))
	assert.Equal(t, http.StatusConflict, w.Code)

	close(release)
	assert.Eventually(t, func() bool {
		w := httptest.NewRecorder()
		env.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/sessions/"+id, nil))
		var resp struct {
			Data model.WorkflowState `json:"data"`
		}
		return json.Unmarshal(w.Body.Bytes(), &resp) == nil && resp.Data.State == model.StateSucceeded
	}, 5*time.Second, 10*time.Millisecond)

	assert.EqualValues(t, 1, env.requests.Load())
}

func TestWorkspaceServiceErrorIsReported(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"detail": "Could not decode OP3 image"}`)
	})
	id := env.createSession(t)
	env.selectBoth(t, id)

	w, resp := env.do(t, httptest.NewRequest(http.MethodPost, "/api/v1/sessions/"+id+"/analysis?wait=true", nil))
	require.Equal(t, http.StatusOK, w.Code)
	state := stateOf(t, resp.Data)
	assert.Equal(t, model.StateFailed, state.State)
	require.NotNil(t, state.Error)
	assert.Equal(t, model.ErrServiceError, state.Error.Kind)
	assert.Equal(t, "Could not decode OP3 image", state.Error.Message)
	assert.True(t, state.CanSubmit)
}

func TestWorkspaceOverlayValidationAndDeferral(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {})
	id := env.createSession(t)

	w, _ := env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/sessions/"+id+"/overlay", nil))
	assert.Equal(t, http.StatusAccepted, w.Code, "no OP1 yet: rendering is deferred")

	env.selectBoth(t, id)
	w, _ = env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/sessions/"+id+"/overlay?blend=150", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWorkspaceCloseSession(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {})
	id := env.createSession(t)
	env.selectBoth(t, id)
	assert.Equal(t, 2, env.previews.Len())

	w, _ := env.do(t, httptest.NewRequest(http.MethodDelete, "/api/v1/sessions/"+id, nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Zero(t, env.previews.Len())

	w, _ = env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/sessions/"+id, nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
