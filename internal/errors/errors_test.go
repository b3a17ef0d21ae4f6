package errors_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tserrs "github.com/dylantarre/trend-spotter/internal/errors"
)

func TestEConstructor(t *testing.T) {
	got := tserrs.E(
		"email is required",
		tserrs.Detail{Field: "email", Error: "required"},
		http.StatusBadRequest,
	)
	want := &tserrs.Error{
		Err: errors.New("email is required"),
		Details: []tserrs.Detail{
			{Field: "email", Error: "required"},
		},
		Status: http.StatusBadRequest,
	}

	assert.Equal(t, want, got)
}

func TestMarshalJSON(t *testing.T) {
	byts, err := json.Marshal(tserrs.E(http.StatusConflict, "already subscribed"))
	require.NoError(t, err)

	assert.JSONEq(t, `{"message":"already subscribed","status":409}`, string(byts))
}

func TestMarshalJSON_NoMessage(t *testing.T) {
	byts, err := json.Marshal(tserrs.E(http.StatusNotFound))
	require.NoError(t, err)

	assert.JSONEq(t, `{"message":"Not Found","status":404}`, string(byts))
}

func TestStatus(t *testing.T) {
	sentinel := errors.New("boom")
	wrapped := fmt.Errorf("error handling: %w", tserrs.E(sentinel, http.StatusBadRequest))

	assert.Equal(t, http.StatusBadRequest, tserrs.Status(wrapped))
	assert.ErrorIs(t, wrapped, sentinel)
	assert.Equal(t, http.StatusInternalServerError, tserrs.Status(sentinel))
	assert.Equal(t, http.StatusOK, tserrs.Status(nil))
}
