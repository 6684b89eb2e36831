package database

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstraintClassifiers(t *testing.T) {
	db, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`INSERT INTO family_members (name, color) VALUES ('Alice', '#000000')`)
	require.NoError(t, err)

	_, err = db.Exec(`INSERT INTO family_members (name, color) VALUES ('', '#000000')`)
	require.Error(t, err)
	assert.True(t, IsCheckViolation(fmt.Errorf("insert member: %w", err)))
	assert.False(t, IsUniqueViolation(err))

	_, err = db.Exec(`INSERT INTO family_members (name, color) VALUES ('Alice', '#000000')`)
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))
	assert.False(t, IsCheckViolation(err))

	res, err := db.Exec(`INSERT INTO lists (name) VALUES ('Groceries')`)
	require.NoError(t, err)
	listID, err := res.LastInsertId()
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO tasks (title, list_id, assigned_to) VALUES ('Milk', ?, 9999)`, listID)
	require.Error(t, err)
	assert.True(t, IsForeignKeyViolation(err))

	assert.False(t, IsCheckViolation(errors.New("CHECK constraint failed")))
	assert.False(t, IsCheckViolation(nil))
}
