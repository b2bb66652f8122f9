package serverutils

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"ai-topic-notes/internal/store"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleRequest struct {
	Name  string `validate:"required,max=5"`
	Limit int    `validate:"gte=1"`
}

func TestValidateRequest(t *testing.T) {
	assert.NoError(t, ValidateRequest(sampleRequest{Name: "ok", Limit: 1}))

	err := ValidateRequest(sampleRequest{Limit: 0})
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, []string{"Name is required", "Limit must be greater than 1"}, validationErr.Fields)
}

func TestErrorHandlerMiddleware(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"validation", &ValidationError{Fields: []string{"Name is required"}}, fiber.StatusBadRequest},
		{"fiber error", fiber.NewError(fiber.StatusBadRequest, "bad id"), fiber.StatusBadRequest},
		{"not found", &store.Error{Op: "UpdateNotes", Kind: store.ErrNotFound}, fiber.StatusNotFound},
		{"constraint", &store.Error{Op: "DeleteConversation", Kind: store.ErrConstraintViolation}, fiber.StatusConflict},
		{"unavailable", &store.Error{Op: "ListConversations", Kind: store.ErrStoreUnavailable}, fiber.StatusServiceUnavailable},
		{"other", errors.New("boom"), fiber.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Use(ErrorHandlerMiddleware())
			app.Get("/", func(ctx *fiber.Ctx) error { return tt.err })

			resp, err := app.Test(httptest.NewRequest("GET", "/", nil), -1)
			require.NoError(t, err)
			assert.Equal(t, tt.code, resp.StatusCode)

			var body BaseResponse[any]
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.False(t, body.Success)
			assert.Equal(t, tt.code, body.Code)
		})
	}
}
