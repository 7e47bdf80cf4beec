package migrations

import (
	"io/fs"
	"testing"
)

func TestEveryDialectHasMatchingMigrations(t *testing.T) {
	var reference []string
	for _, dialect := range []string{DialectSQLite, DialectPostgres, DialectMySQL} {
		files, err := fs.Glob(FS, dialect+"/*.sql")
		if err != nil {
			t.Fatal(err)
		}
		if len(files) == 0 {
			t.Fatalf("no migrations for %s", dialect)
		}
		names := make([]string, len(files))
		for i, f := range files {
			names[i] = f[len(dialect)+1:]
		}
		if reference == nil {
			reference = names
			continue
		}
		if len(names) != len(reference) {
			t.Fatalf("%s has %d migrations, expected %d", dialect, len(names), len(reference))
		}
		for i := range names {
			if names[i] != reference[i] {
				t.Fatalf("%s migration %q does not match %q", dialect, names[i], reference[i])
			}
		}
	}
}
