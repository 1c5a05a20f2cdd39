// Package errors classifies errors for metric tags.
package errors

import (
	goerrors "errors"
	"reflect"
	"strings"

	apperrors "github.com/target/engage-api/internal/errors"
)

// Classify returns a short, stable error class for tagging metrics and logs.
// Application errors are classified by code; anything else by the type name
// of the innermost wrapped error.
func Classify(err error) string {
	if err == nil {
		return ""
	}

	var appErr *apperrors.AppError
	if goerrors.As(err, &appErr) && appErr.Code != "" {
		return "app_" + string(appErr.Code)
	}

	for {
		unwrapped := goerrors.Unwrap(err)
		if unwrapped == nil {
			break
		}
		err = unwrapped
	}

	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return "unknown"
	}

	name := strings.ToLower(strings.ReplaceAll(t.String(), ".", "_"))
	if name == "" {
		return "unknown"
	}
	return name
}
