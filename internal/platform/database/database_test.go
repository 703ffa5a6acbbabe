package database

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMigrateURL(t *testing.T) {
	cases := map[string]string{
		"postgres://dossier:pw@db:5432/dossier?sslmode=disable":   "pgx5://dossier:pw@db:5432/dossier?sslmode=disable",
		"postgresql://dossier:pw@db:5432/dossier?sslmode=disable": "pgx5://dossier:pw@db:5432/dossier?sslmode=disable",
		"pgx5://already/converted":                                "pgx5://already/converted",
	}
	for in, want := range cases {
		assert.Equal(t, want, migrateURL(in), in)
	}
}

func TestMigrationsAreEmbedded(t *testing.T) {
	entries, err := migrationsFS.ReadDir("migrations")
	assert.NoError(t, err)

	var up, down int
	for _, e := range entries {
		switch {
		case strings.HasSuffix(e.Name(), ".up.sql"):
			up++
		case strings.HasSuffix(e.Name(), ".down.sql"):
			down++
		}
	}
	assert.Positive(t, up)
	assert.Equal(t, up, down)
}
