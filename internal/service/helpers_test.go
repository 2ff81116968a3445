package service_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tuanvumaihuynh/pantry-sync/pkg/patch"
	"github.com/tuanvumaihuynh/pantry-sync/pkg/zerror"
)

func patchBool(v bool) patch.Field[bool] { return patch.Value(v) }

func assertZErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	var zErr zerror.ZError
	if assert.True(t, errors.As(err, &zErr), "expected ZError, got %v", err) {
		assert.Equal(t, code, zErr.Code())
	}
}
