package util

import (
	"database/sql"
	"strings"
	"sync"
	"testing"
)

var registerOnce sync.Once

func TestCustomFunction(t *testing.T) {
	registerOnce.Do(RegisterSQLiteFunctions)
	withDB := func(test func(db *sql.DB)) {
		db, err := sql.Open("sqlite", ":memory:")
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()
		test(db)
	}

	t.Run("Test SortedConcatenate", func(tt *testing.T) {
		withDB(func(db *sql.DB) {
			if _, err := db.Exec("CREATE TABLE test (id INTEGER, value TEXT); INSERT INTO test VALUES (2, '三'), (0, '一'), (1, '二'), (3, 'four')"); err != nil {
				tt.Fatalf("Error: %v", err)
			}
			row := db.QueryRow("SELECT sortconcat(id, value) FROM test")

			var result string
			if err := row.Scan(&result); err != nil {
				tt.Fatalf("Error: %v", err)
			}
			expected := strings.Join([]string{"一", "二", "三", "four"}, SortConcatSeparator)
			if result != expected {
				tt.Errorf("Expected: %q, got: %q", expected, result)
			}
		})
	})

	t.Run("Test SortedConcatenate empty", func(tt *testing.T) {
		withDB(func(db *sql.DB) {
			if _, err := db.Exec("CREATE TABLE test (id INTEGER, value TEXT)"); err != nil {
				tt.Fatalf("Error: %v", err)
			}
			var result string
			if err := db.QueryRow("SELECT sortconcat(id, value) FROM test").Scan(&result); err != nil {
				tt.Fatalf("Error: %v", err)
			}
			if result != "" {
				tt.Errorf("Expected empty result, got: %q", result)
			}
		})
	})
}
