package social

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ProviderError reports a failed call to a provider API. Profile fetch
// failures surface as ProviderError rather than authist taxonomy errors.
// Status is zero when the request never got a response.
type ProviderError struct {
	Provider    string
	Operation   string
	Status      int
	Code        string
	Description string
	Err         error
	Raw         map[string]any
}

func (e *ProviderError) Error() string {
	if e == nil {
		return "provider error"
	}

	parts := make([]string, 0, 2)
	for _, p := range []string{e.Provider, e.Operation} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		parts = append(parts, "provider")
	}
	msg := strings.Join(parts, " ") + " failed"

	switch {
	case e.Description != "":
		return msg + ": " + e.Description
	case e.Code != "":
		return msg + ": " + e.Code
	case e.Err != nil:
		return msg + ": " + e.Err.Error()
	case e.Status != 0:
		return fmt.Sprintf("%s: status %d", msg, e.Status)
	}
	return msg
}

func (e *ProviderError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Retryable reports whether the same token may succeed later: the request
// failed in transport, was throttled, or hit a provider side error.
func (e *ProviderError) Retryable() bool {
	if e == nil {
		return false
	}
	if e.Status == 0 {
		return e.Err != nil
	}
	return e.Status == http.StatusTooManyRequests || e.Status >= http.StatusInternalServerError
}

// Metadata flattens the error for logs and activity events.
func (e *ProviderError) Metadata() map[string]any {
	if e == nil {
		return nil
	}

	meta := map[string]any{"retryable": e.Retryable()}
	set := func(key string, value string) {
		if value != "" {
			meta[key] = value
		}
	}
	set("provider", e.Provider)
	set("operation", e.Operation)
	set("code", e.Code)
	set("description", e.Description)
	if e.Status != 0 {
		meta["status"] = e.Status
	}
	if len(e.Raw) > 0 {
		meta["raw"] = e.Raw
	}
	return meta
}

// AsProviderError unwraps err to a ProviderError.
func AsProviderError(err error) (*ProviderError, bool) {
	var perr *ProviderError
	if errors.As(err, &perr) && perr != nil {
		return perr, true
	}
	return nil, false
}
