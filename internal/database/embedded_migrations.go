package database

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"sync"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var (
	loadMigrationsOnce sync.Once
	loadedMigrations   []*MigrationFile
	loadMigrationsErr  error
)

// embeddedMigrations returns the schema migrations shipped with the binary,
// ordered by version and with their SQL loaded. Versions must be unique.
func embeddedMigrations() ([]*MigrationFile, error) {
	loadMigrationsOnce.Do(func() {
		loadedMigrations, loadMigrationsErr = loadMigrations(migrationsFS, "migrations")
	})
	if loadMigrationsErr != nil {
		return nil, loadMigrationsErr
	}
	out := make([]*MigrationFile, len(loadedMigrations))
	copy(out, loadedMigrations)
	return out, nil
}

func loadMigrations(fsys fs.FS, dir string) ([]*MigrationFile, error) {
	names, err := fs.Glob(fsys, dir+"/*.sql")
	if err != nil {
		return nil, fmt.Errorf("failed to list migrations: %w", err)
	}

	migrations := make([]*MigrationFile, 0, len(names))
	versions := make(map[int]string, len(names))
	for _, name := range names {
		m, err := parseMigrationFileName(name[len(dir)+1:])
		if err != nil {
			return nil, err
		}
		if prev, dup := versions[m.Version]; dup {
			return nil, fmt.Errorf("migrations %s and %s share version %d", prev, m.FileName, m.Version)
		}
		versions[m.Version] = m.FileName

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("failed to read migration %s: %w", name, err)
		}
		if len(content) == 0 {
			return nil, fmt.Errorf("migration %s is empty", m.FileName)
		}
		m.SQL = string(content)
		migrations = append(migrations, m)
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}
