package utils

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idea-incubator-backend/pkg/apperrors"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestWriteErrorMapsKinds(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, apperrors.Conflict("Collaboration request already exists"))

	assert.Equal(t, http.StatusConflict, rec.Code)
	resp := decode(t, rec)
	assert.False(t, resp.Success)
	assert.Equal(t, "CONFLICT", resp.Error.Code)
	assert.Equal(t, "Collaboration request already exists", resp.Error.Message)
}

func TestWriteErrorMasksInternal(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, errors.New("pq: connection refused"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decode(t, rec)
	assert.Equal(t, "Internal server error", resp.Error.Message)
	assert.NotContains(t, rec.Body.String(), "connection refused")
}

func TestWritePaginatedResponse(t *testing.T) {
	rec := httptest.NewRecorder()
	WritePaginatedResponse(rec, []int{1, 2}, 1, 2, 5)

	resp := decode(t, rec)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, 3, resp.Meta.TotalPages)
	assert.Equal(t, 5, resp.Meta.Total)
}

func TestParseJSONBody(t *testing.T) {
	var v struct {
		Title string `json:"title"`
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"title":"x"}`))
	require.NoError(t, ParseJSONBody(req, &v))
	assert.Equal(t, "x", v.Title)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	err := ParseJSONBody(req, &v)
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{"))
	err = ParseJSONBody(req, &v)
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
}
