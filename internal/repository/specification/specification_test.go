package specification

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func dryRunDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(postgres.New(postgres.Config{DSN: "host=localhost"}), &gorm.Config{
		DryRun:                 true,
		DisableAutomaticPing:   true,
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Skipf("dry-run dialector unavailable: %v", err)
	}
	return db
}

type row struct {
	Id int64
}

func TestSpecificationsComposeSQL(t *testing.T) {
	db := dryRunDB(t)

	var rows []row
	stmt := NewestFirst{}.Apply(
		ByConversationID{ConversationID: 7}.Apply(db.Table("messages")),
	).Find(&rows).Statement

	sql := stmt.SQL.String()
	assert.Contains(t, sql, "conversation_id = $1")
	assert.Contains(t, sql, "created_at DESC")
	assert.Contains(t, sql, "id DESC")
	assert.Equal(t, []interface{}{int64(7)}, stmt.Vars)
}

func TestOrderByAscending(t *testing.T) {
	db := dryRunDB(t)

	var rows []row
	stmt := OrderBy{Field: "seq"}.Apply(db.Table("messages")).Find(&rows).Statement

	assert.Contains(t, stmt.SQL.String(), "ORDER BY seq ASC")
}
