package sdk

import "fmt"

// APIError is a non-2xx answer from the service.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("rankfuse api: http %d", e.Status)
	}
	return fmt.Sprintf("rankfuse api: http %d (%s): %s", e.Status, e.Code, e.Message)
}

// API error codes.
const (
	CodeInvalidQuery            = "invalid_query"
	CodeUnsupportedModalityPair = "unsupported_modality_pair"
	CodeDimensionMismatch       = "dimension_mismatch"
	CodeAllSourcesFailed        = "all_sources_failed"
	CodeEmbeddingProviderError  = "embedding_provider_error"
	CodeTimeout                 = "timeout"
	CodeUnauthorized            = "unauthorized"
)

// IsCode reports whether err is an APIError with the given code.
func IsCode(err error, code string) bool {
	apiErr, ok := err.(*APIError)
	return ok && apiErr.Code == code
}
