package errors

import (
	"context"
	goerrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "github.com/target/engage-api/internal/errors"
)

type customErr struct{}

func (*customErr) Error() string { return "custom" }

func TestClassify(t *testing.T) {
	assert.Empty(t, Classify(nil))
	assert.Equal(t, "app_not_found", Classify(fmt.Errorf("load: %w", apperrors.NotFound("gone"))))
	assert.Equal(t, "app_invalid_argument", Classify(apperrors.InvalidArgument("bad page size")))
	assert.Equal(t, "errors_customerr", Classify(fmt.Errorf("wrap: %w", &customErr{})))
	assert.Equal(t, "errors_errorstring", Classify(goerrors.New("plain")))
	assert.NotEmpty(t, Classify(context.DeadlineExceeded))
}
