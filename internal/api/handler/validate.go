package handler

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/Rrens/rag-assistant/internal/api/response"
	"github.com/Rrens/rag-assistant/internal/domain"
)

var validate = validator.New()

// validationMessages maps struct validation failures to per-field messages
func validationMessages(err error) any {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err.Error()
	}

	messages := make(map[string]string)
	for _, e := range validationErrors {
		switch e.Tag() {
		case "required":
			messages[e.Field()] = "field is required"
		case "max":
			messages[e.Field()] = "must be at most " + e.Param() + " characters"
		default:
			messages[e.Field()] = "validation failed on " + e.Tag()
		}
	}
	return messages
}

// writeError maps service errors onto responses. Only validation messages
// and pipeline user messages reach the client.
func writeError(w http.ResponseWriter, err error) {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		response.BadRequest(w, ve.Error())
		return
	}

	var pe *domain.PipelineError
	if errors.As(err, &pe) {
		response.InternalError(w, map[string]string{
			"message": pe.UserMessage,
			"code":    pe.Code,
		})
		return
	}

	response.InternalError(w, "internal server error")
}
