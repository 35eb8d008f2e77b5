package llm

import (
	"reflect"
	"strings"

	"github.com/rs/zerolog/log"
)

// Fallback answers returned when a provider payload cannot be used
const (
	NoResponseMessage       = "I'm sorry, I couldn't generate a response at this time. Please try again."
	InadequateMessage       = "I couldn't generate an adequate response. Please rephrase your question."
	TechnicalProblemMessage = "I'm sorry, there was a technical problem. Please try again."
	UnexpectedErrorMessage  = "I'm sorry, I encountered a technical problem. Please try again later."
)

// Normalize converts a provider payload into the text shown to the user. It
// never panics and never returns an empty string.
func Normalize(raw any) string {
	return recovered(func() string { return classify(raw) })
}

func recovered(inspect func() string) (text string) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Recovered while normalizing model response")
			text = UnexpectedErrorMessage
		}
	}()
	return inspect()
}

func classify(raw any) string {
	if isNil(raw) {
		return NoResponseMessage
	}

	switch v := raw.(type) {
	case string:
		return textOr(v)
	case Message:
		return contentText(v.Content)
	case *Message:
		return contentText(v.Content)
	case map[string]any:
		content, ok := v["content"]
		if !ok {
			return TechnicalProblemMessage
		}
		return contentText(content)
	default:
		log.Warn().Str("type", reflect.TypeOf(raw).String()).Msg("Unrecognized model response shape")
		return TechnicalProblemMessage
	}
}

func contentText(content any) string {
	s, ok := content.(string)
	if !ok {
		return InadequateMessage
	}
	return textOr(s)
}

func textOr(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return InadequateMessage
	}
	return s
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
