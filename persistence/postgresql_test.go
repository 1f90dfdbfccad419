package persistence

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/schema"

	"github.com/wfunc/boardserver/models"
)

// Both postgres sinks write session_records, so the raw DDL and the gorm
// model have to agree column for column.
func TestSessionRecordColumnsMatchModel(t *testing.T) {
	s, err := schema.Parse(&models.SessionRecord{}, &sync.Map{}, schema.NamingStrategy{})
	require.NoError(t, err)
	assert.Equal(t, "session_records", s.Table)

	seen := map[string]bool{"id": true}
	for _, c := range sessionRecordColumns {
		field, ok := s.FieldsByDBName[c.Name]
		require.True(t, ok, c.Name)
		assert.Equal(t, c.Type, field.TagSettings["TYPE"], c.Name)
		assert.Equal(t, strings.Contains(c.Extra, "NOT NULL"), field.NotNull, c.Name)
		seen[c.Name] = true
	}
	for name := range s.FieldsByDBName {
		assert.True(t, seen[name], "model column %s missing from DDL", name)
	}

	ddl := createTableSQL()
	assert.Contains(t, ddl, "players jsonb NOT NULL")
	assert.NotContains(t, ddl, "[]")
}
