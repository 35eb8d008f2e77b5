package llm

import (
	"fmt"
	"io"
	"net/http"
	"strings"
)

const maxErrorBody = 2048

// StatusError builds an error for a non-2xx provider response. The upstream
// body is included so callers can classify rejections such as unsupported
// parameters.
func StatusError(provider string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		return fmt.Errorf("%s returned status %d", provider, resp.StatusCode)
	}
	return fmt.Errorf("%s returned status %d: %s", provider, resp.StatusCode, msg)
}
