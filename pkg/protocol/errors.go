package protocol

import (
	"errors"
	"fmt"

	"github.com/zynthex/zynthex/pkg/models"
)

// ValidationError reports a missing or malformed input field, raised before
// any external call is made.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Validationf builds a ValidationError with a formatted message.
func Validationf(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// HTTPError wraps a non-2xx response from an external API, carrying the
// status code and raw body.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// DispatchError reports an unknown provider id, or an unknown operation for
// a known provider. Not recoverable.
type DispatchError struct {
	Provider  string
	Operation string
}

func (e *DispatchError) Error() string {
	if e.Operation == "" {
		return fmt.Sprintf("unknown provider %q", e.Provider)
	}

	return fmt.Sprintf("provider %q does not support operation %q", e.Provider, e.Operation)
}

// IsValidationError reports whether err is (or wraps) a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError

	return errors.As(err, &ve)
}

// RequireAPIKey asserts the credential is an api_key credential for the
// given provider and returns its key.
func RequireAPIKey(credential *models.Credential, provider string) (string, error) {
	if credential == nil || credential.Type != models.CredentialTypeAPIKey {
		return "", Validationf("%s requires API key credentials", provider)
	}

	key := credential.APIKey()
	if key == "" {
		return "", Validationf("%s credential has no API key", provider)
	}

	return key, nil
}

// RequireAccessToken asserts the credential is an oauth credential for the
// given provider and returns its access token.
func RequireAccessToken(credential *models.Credential, provider string) (string, error) {
	if credential == nil || credential.Type != models.CredentialTypeOAuth {
		return "", Validationf("%s requires OAuth credentials", provider)
	}

	token := credential.AccessToken()
	if token == "" {
		return "", Validationf("%s credential has no access token", provider)
	}

	return token, nil
}
