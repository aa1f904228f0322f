package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFirstRecord(t *testing.T) {
	t.Parallel()

	rec := map[string]interface{}{"name": "FRU night"}

	got, err := FirstRecord([]interface{}{
		map[string]interface{}{"status": "OK", "result": []interface{}{rec}},
	})
	require.NoError(t, err)
	assert.Equal(t, rec, got)

	_, err = FirstRecord([]interface{}{
		map[string]interface{}{"status": "OK", "result": []interface{}{}},
	})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = FirstRecord(nil)
	assert.ErrorIs(t, err, ErrNotFound)

	got, err = FirstRecord([]interface{}{
		map[string]interface{}{"status": "OK", "result": float64(3)},
	})
	require.NoError(t, err)
	assert.Equal(t, float64(3), got)
}

func TestSurrealDB_NotConnected(t *testing.T) {
	t.Parallel()

	db := NewSurrealDB(Config{Host: "localhost", Port: "8000"})
	ctx := context.Background()

	assert.ErrorIs(t, db.Ping(ctx), ErrConnection)
	_, err := db.Query(ctx, "SELECT * FROM scheduled_event", nil)
	assert.ErrorIs(t, err, ErrConnection)
	assert.NoError(t, db.Close())
}
