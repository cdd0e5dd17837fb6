package response

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	apperr "github.com/rankboard/portalgate/domain/error"
)

func TestAppError(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		expectedCode int
		expectedBody string
	}{
		{
			name:         "catalog error",
			err:          apperr.ErrNotAuthorizedBackOffice(errors.New("both rejected")),
			expectedCode: http.StatusUnauthorized,
			expectedBody: `{"status":false,"message":"Not authorized for Admin or Staff","data":null,"code":"AUTH_2002"}`,
		},
		{
			name:         "wrapped catalog error",
			err:          errors.Join(errors.New("ctx"), apperr.ErrLoginInProgress()),
			expectedCode: http.StatusConflict,
			expectedBody: `{"status":false,"message":"Another login attempt is in progress","data":null,"code":"AUTH_2004"}`,
		},
		{
			name:         "foreign error",
			err:          errors.New("pq: connection refused"),
			expectedCode: http.StatusInternalServerError,
			expectedBody: `{"status":false,"message":"Internal server error","data":null}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			AppError(rr, tt.err)

			assert.Equal(t, tt.expectedCode, rr.Code)
			assert.JSONEq(t, tt.expectedBody, rr.Body.String())
			assert.Equal(t, "application/json; charset=utf-8", rr.Header().Get("Content-Type"))
		})
	}
}

func TestSuccess(t *testing.T) {
	rr := httptest.NewRecorder()
	Success(rr, http.StatusOK, "ok", map[string]string{"role": "Staff"})

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":true,"message":"ok","data":{"role":"Staff"}}`, rr.Body.String())
}
