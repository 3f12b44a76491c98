package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConstructDatabaseURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		baseURL      string
		databaseName string
		want         string
	}{
		{
			name:    "no database name keeps the url",
			baseURL: "postgres://ledger:secret@db:5432/lending",
			want:    "postgres://ledger:secret@db:5432/lending",
		},
		{
			name:         "appends name and sslmode",
			baseURL:      "postgres://ledger:secret@db:5432/",
			databaseName: "lending",
			want:         "postgres://ledger:secret@db:5432/lending?sslmode=disable",
		},
		{
			name:         "keeps existing query parameters",
			baseURL:      "postgres://ledger@db:5432?connect_timeout=5",
			databaseName: "lending_test",
			want:         "postgres://ledger@db:5432/lending_test?connect_timeout=5&sslmode=disable",
		},
		{
			name:         "explicit sslmode wins",
			baseURL:      "postgres://ledger@db:5432?sslmode=require",
			databaseName: "lending",
			want:         "postgres://ledger@db:5432/lending?sslmode=require",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ConstructDatabaseURL(tt.baseURL, tt.databaseName))
		})
	}
}
