package schema

import (
	"encoding/json"
	"errors"
	"github.com/stretchr/testify/assert"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWriter_WriteRedirect(t *testing.T) {
	writer := &Writer{}
	recorder := httptest.NewRecorder()

	writer.WriteRedirect(recorder, "/login", map[string]string{"redirect": "/login"})
	assert.Equal(t, http.StatusSeeOther, recorder.Code)
	assert.Equal(t, "/login", recorder.Header().Get("Location"))
	assert.JSONEq(t, `{"redirect":"/login"}`, recorder.Body.String())
}

func TestWriter_WriteErrors(t *testing.T) {
	writer := &Writer{}
	recorder := httptest.NewRecorder()

	writer.WriteErrors(recorder, http.StatusConflict, Rejected("Machine exists"))
	assert.Equal(t, http.StatusConflict, recorder.Code)
	assert.Equal(t, "application/json", recorder.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"status":409,"errors":[{"type":"backend.rejected","message":"Machine exists","details":{}}]}`, recorder.Body.String())
}

func TestWriter_UnmarshallableValue(t *testing.T) {
	var hooked error
	writer := &Writer{
		InternalErrorHook: func(err error) {
			hooked = err
		},
	}
	recorder := httptest.NewRecorder()

	writer.WriteJSON(recorder, make(chan int))
	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
	var unsupported *json.UnsupportedTypeError
	assert.True(t, errors.As(hooked, &unsupported))
}
