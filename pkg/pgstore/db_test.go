// SPDX-License-Identifier: Apache-2.0

package pgstore

import (
	"errors"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestIsRetryableClassifiesLockAndSerializationErrors(t *testing.T) {
	t.Parallel()

	assert.True(t, isRetryable(&pq.Error{Code: lockNotAvailableErrorCode}))
	assert.True(t, isRetryable(&pq.Error{Code: serializationFailErrorCode}))
	assert.False(t, isRetryable(&pq.Error{Code: "23505"}))
	assert.False(t, isRetryable(errors.New("boom")))
	assert.False(t, isRetryable(nil))
}

func TestFakeDBIsNoop(t *testing.T) {
	t.Parallel()

	var db DB = &FakeDB{}
	res, err := db.ExecContext(nil, "select 1")
	assert.Nil(t, res)
	assert.NoError(t, err)
	assert.NoError(t, db.Close())
}
