package httpkit

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"crm_backend/platform/apperr"
	"crm_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func decode(t *testing.T, w *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestHandleErrorMapsKinds(t *testing.T) {
	cases := []struct {
		err     error
		status  int
		message string
	}{
		{apperr.NotFound("Lead not found"), http.StatusNotFound, "Lead not found"},
		{apperr.Validation("firstName cannot be empty"), http.StatusBadRequest, "firstName cannot be empty"},
		{apperr.Conflict("Lead with this email already exists"), http.StatusConflict, "Lead with this email already exists"},
		{fmt.Errorf("wrapped: %w", apperr.BadRequest("bad")), http.StatusBadRequest, "bad"},
		{apperr.Inconsistent(errors.New("check violation")), http.StatusInternalServerError, apperr.InconsistentMessage},
		{apperr.Internal("db exploded"), http.StatusInternalServerError, msgInternal},
		{errors.New("raw"), http.StatusInternalServerError, msgInternal},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/x", nil)

		assert.True(t, HandleError(c, logger.Discard(), tc.err))
		assert.Equal(t, tc.status, w.Code, tc.err.Error())
		resp := decode(t, w)
		assert.False(t, resp.Success)
		assert.Equal(t, tc.message, resp.Error)
	}
}

func TestHandleErrorNil(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.False(t, HandleError(c, logger.Discard(), nil))
}

func TestNewPagination(t *testing.T) {
	assert.Equal(t, &Pagination{Total: 21, Page: 2, Limit: 10, Pages: 3}, NewPagination(21, 2, 10))
	assert.Equal(t, 0, NewPagination(0, 1, 10).Pages)
}

func TestCountedEnvelope(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	Counted(c, []int{1, 2}, 2)

	resp := decode(t, w)
	assert.True(t, resp.Success)
	require.NotNil(t, resp.Count)
	assert.Equal(t, 2, *resp.Count)
}

type payload struct {
	FirstName string `json:"firstName"`
}

func bind(t *testing.T, body string) (payload, error) {
	t.Helper()
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	var p payload
	err := BindWrappedJSON(c, "lead", &p)
	return p, err
}

func TestBindWrappedJSON(t *testing.T) {
	p, err := bind(t, `{"lead":{"firstName":"Ada"}}`)
	require.NoError(t, err)
	assert.Equal(t, "Ada", p.FirstName)

	p, err = bind(t, `{"firstName":"Grace"}`)
	require.NoError(t, err)
	assert.Equal(t, "Grace", p.FirstName)

	_, err = bind(t, ``)
	assert.Error(t, err)

	_, err = bind(t, `[1,2]`)
	assert.Error(t, err)
}

func TestRequestIDHeader(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "abc-123")
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(HeaderRequestID))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, w.Header().Get(HeaderRequestID))
}
