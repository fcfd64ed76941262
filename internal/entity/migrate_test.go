package entity

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func Test_MigrateTable(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, MigrateTable(db))

	for _, table := range []string{
		"users", "tickets", "draws", "draw_participations",
		"processed_events", "postback_logs",
	} {
		require.True(t, db.Migrator().HasTable(table), table)
	}
}
