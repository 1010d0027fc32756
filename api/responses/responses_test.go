package responses

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/commercive/commerce-sync/pkg/errors"
	"github.com/commercive/commerce-sync/pkg/logger"
	"github.com/commercive/commerce-sync/pkg/types"
)

func TestWriteSuccess(t *testing.T) {
	w := httptest.NewRecorder()
	WriteSuccess(w, map[string]string{"hello": "world"})

	require.Equal(t, http.StatusOK, w.Code)
	var body types.SuccessEnvelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "world", body.Data.(map[string]any)["hello"])
}

func TestWriteErrorMapsTypedError(t *testing.T) {
	w := httptest.NewRecorder()
	err := pkgerrors.New(pkgerrors.CodeValidation, "bad input").
		WithDetails(map[string]string{"field": "demo"})
	WriteError(context.Background(), logger.New(logger.Options{ServiceName: "test", Output: io.Discard}), w, err)

	require.Equal(t, http.StatusBadRequest, w.Code)
	var body types.ErrorEnvelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, string(pkgerrors.CodeValidation), body.Error.Code)
	assert.Equal(t, "bad input", body.Error.Message)
	assert.NotNil(t, body.Error.Details)
}

func TestWriteErrorDefaultsToInternalForUntypedErrors(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(context.Background(), nil, w, errors.New("boom"))

	require.Equal(t, http.StatusInternalServerError, w.Code)
	var body types.ErrorEnvelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "internal server error", body.Error.Message)
	assert.Nil(t, body.Error.Details)
}

func TestWriteErrorHidesDependencyMessage(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(context.Background(), nil, w, pkgerrors.New(pkgerrors.CodeDependency, "redis at 10.0.0.1 refused"))

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	var body types.ErrorEnvelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "dependency unavailable", body.Error.Message)
}
