package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"crm_backend/internal/events"
	"crm_backend/internal/leads/leadstest"
	"crm_backend/internal/leads/service"
	"crm_backend/platform/logger"
	"crm_backend/platform/phone"
	"crm_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	store  *leadstest.MemStore
	router *gin.Engine
}

func newTestServer() *testServer {
	gin.SetMode(gin.TestMode)
	store := leadstest.NewMemStore()
	svc := service.New(store, nil, events.NewInMemoryBus(logger.Discard()), phone.NewNormalizer("US"), logger.Discard())
	r := gin.New()
	New(svc, validator.New(), logger.Discard()).RegisterRoutes(r.Group("/api/leads"))
	return &testServer{store: store, router: r}
}

func (s *testServer) do(t *testing.T, method, path, body string) (int, map[string]any) {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return w.Code, out
}

func (s *testServer) createLead(t *testing.T, body string) string {
	t.Helper()
	code, out := s.do(t, http.MethodPost, "/api/leads", body)
	require.Equal(t, http.StatusCreated, code, out)
	return out["data"].(map[string]any)["id"].(string)
}

func leadBody(email, extra string) string {
	return `{"firstName":"Ada","lastName":"Lovelace","email":"` + email + `","phone":"+1 650 253 0000"` + extra + `}`
}

func TestCreateAcceptsWrappedAndBareBodies(t *testing.T) {
	s := newTestServer()
	agent := s.store.AddAgent("a")

	code, out := s.do(t, http.MethodPost, "/api/leads", `{"lead":`+leadBody("ada@crm.test", `,"assignedTo":"`+agent.String()+`"`)+`}`)
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, true, out["success"])
	data := out["data"].(map[string]any)
	assert.Equal(t, "New", data["status"])
	assert.Equal(t, agent.String(), data["assignedTo"].(map[string]any)["id"])

	s.createLead(t, leadBody("grace@crm.test", ""))

	total, converted := s.store.Counters(agent)
	assert.Equal(t, 1, total)
	assert.Equal(t, 0, converted)
	assert.Equal(t, 2, s.store.LeadCount())
}

func TestCreateRejectsBadInput(t *testing.T) {
	s := newTestServer()
	s.createLead(t, leadBody("ada@crm.test", ""))

	code, out := s.do(t, http.MethodPost, "/api/leads", leadBody("ADA@crm.test", ""))
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, false, out["success"])

	code, out = s.do(t, http.MethodPost, "/api/leads", leadBody("new@crm.test", `,"status":"bogus"`))
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, msgValidationFailed, out["error"])
	assert.NotEmpty(t, out["details"])

	code, _ = s.do(t, http.MethodPost, "/api/leads", `{"lead":`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(t, http.MethodPost, "/api/leads", leadBody("other@crm.test", `,"assignedTo":"`+uuid.NewString()+`"`))
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, 1, s.store.LeadCount())
}

func TestUpdateWithNullAssigneeUnassigns(t *testing.T) {
	s := newTestServer()
	agent := s.store.AddAgent("a")
	id := s.createLead(t, leadBody("ada@crm.test", `,"assignedTo":"`+agent.String()+`","status":"Converted"`))

	total, converted := s.store.Counters(agent)
	require.Equal(t, 1, total)
	require.Equal(t, 1, converted)

	code, out := s.do(t, http.MethodPut, "/api/leads/"+id, `{"lead":{"assignedTo":null,"status":"Lost"}}`)
	require.Equal(t, http.StatusOK, code, out)
	data := out["data"].(map[string]any)
	assert.Nil(t, data["assignedTo"])
	assert.Equal(t, "Lost", data["status"])

	total, converted = s.store.Counters(agent)
	assert.Zero(t, total)
	assert.Zero(t, converted)
	assert.Empty(t, s.store.Drift())
}

func TestAssignAndStatusEndpoints(t *testing.T) {
	s := newTestServer()
	from, to := s.store.AddAgent("from"), s.store.AddAgent("to")
	id := s.createLead(t, leadBody("ada@crm.test", `,"assignedTo":"`+from.String()+`"`))

	code, _ := s.do(t, http.MethodPut, "/api/leads/"+id+"/assign", `{}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, out := s.do(t, http.MethodPut, "/api/leads/"+id+"/assign", `{"agentId":"`+to.String()+`"}`)
	require.Equal(t, http.StatusOK, code, out)
	assert.Equal(t, msgAssigned, out["message"])

	code, out = s.do(t, http.MethodPut, "/api/leads/"+id+"/status", `{"status":"Converted"}`)
	require.Equal(t, http.StatusOK, code, out)
	assert.Equal(t, msgStatusUpdated, out["message"])

	code, _ = s.do(t, http.MethodPut, "/api/leads/"+id+"/status", `{"status":"Won"}`)
	assert.Equal(t, http.StatusBadRequest, code)

	total, converted := s.store.Counters(to)
	assert.Equal(t, 1, total)
	assert.Equal(t, 1, converted)
	total, _ = s.store.Counters(from)
	assert.Zero(t, total)
	assert.Empty(t, s.store.Drift())
}

func TestGetListAndDelete(t *testing.T) {
	s := newTestServer()
	agent := s.store.AddAgent("a")
	id := s.createLead(t, leadBody("ada@crm.test", `,"assignedTo":"`+agent.String()+`"`))
	s.createLead(t, leadBody("grace@crm.test", ""))

	code, out := s.do(t, http.MethodGet, "/api/leads/"+id, "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, id, out["data"].(map[string]any)["id"])

	code, out = s.do(t, http.MethodGet, "/api/leads?assignedTo="+agent.String(), "")
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, out["data"], 1)
	assert.EqualValues(t, 1, out["pagination"].(map[string]any)["total"])

	code, _ = s.do(t, http.MethodGet, "/api/leads?status=bogus", "")
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(t, http.MethodGet, "/api/leads/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, code)

	code, out = s.do(t, http.MethodDelete, "/api/leads/"+id, "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, msgDeleted, out["message"])

	code, _ = s.do(t, http.MethodDelete, "/api/leads/"+id, "")
	assert.Equal(t, http.StatusNotFound, code)

	total, _ := s.store.Counters(agent)
	assert.Zero(t, total)
	assert.Empty(t, s.store.Drift())
}
