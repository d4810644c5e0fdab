package migrations

import (
	"context"
	"fmt"
	"io/fs"
	"slices"
	"strings"

	mailbox "github.com/goliatone/go-mailbox"
)

// Dialect names match the go-persistence-bun migration dialects.
const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

const sourceLabel = "go-mailbox"

var dialectDirs = []struct {
	dialect string
	dir     string
}{
	{dialect: DialectPostgres, dir: "data/sql/migrations"},
	{dialect: DialectSQLite, dir: "data/sql/migrations/sqlite"},
}

type FilesystemSpec struct {
	Dialect string
	Path    string
	FS      fs.FS
}

type Registration struct {
	SourceLabel       string
	ValidationTargets []string
	Filesystems       []FilesystemSpec
}

type RegisterFunc func(ctx context.Context, dialect string, sourceLabel string, fsys fs.FS) error

type Option func(*Registration)

// WithValidationTargets limits registration to the named dialects.
func WithValidationTargets(targets ...string) Option {
	return func(r *Registration) {
		next := make([]string, 0, len(targets))
		for _, target := range targets {
			target = strings.TrimSpace(strings.ToLower(target))
			if target == "" || slices.Contains(next, target) {
				continue
			}
			next = append(next, target)
		}
		if len(next) > 0 {
			r.ValidationTargets = next
		}
	}
}

// Filesystems returns the per-dialect migration trees of the embedded
// schema, or of root when given. Every dialect must ship at least one
// migration and a rollback for each of them.
func Filesystems(root ...fs.FS) ([]FilesystemSpec, error) {
	source := mailbox.GetMigrationsFS()
	if len(root) > 0 && root[0] != nil {
		source = root[0]
	}

	specs := make([]FilesystemSpec, 0, len(dialectDirs))
	for _, entry := range dialectDirs {
		sub, err := fs.Sub(source, entry.dir)
		if err != nil {
			return nil, fmt.Errorf("migrations: resolve %s filesystem: %w", entry.dialect, err)
		}
		if err := checkPairs(sub); err != nil {
			return nil, fmt.Errorf("migrations: %s %s: %w", entry.dialect, entry.dir, err)
		}
		specs = append(specs, FilesystemSpec{Dialect: entry.dialect, Path: entry.dir, FS: sub})
	}
	return specs, nil
}

func checkPairs(fsys fs.FS) error {
	ups, err := fs.Glob(fsys, "*.up.sql")
	if err != nil {
		return err
	}
	if len(ups) == 0 {
		return fmt.Errorf("no *.up.sql files")
	}
	for _, up := range ups {
		down := strings.TrimSuffix(up, ".up.sql") + ".down.sql"
		if _, err := fs.Stat(fsys, down); err != nil {
			return fmt.Errorf("missing rollback %s for %s", down, up)
		}
	}
	return nil
}

// Register hands each targeted dialect filesystem to registerFn, e.g. a
// go-persistence-bun client's RegisterSQLMigrations.
func Register(ctx context.Context, registerFn RegisterFunc, opts ...Option) (Registration, error) {
	reg := Registration{
		SourceLabel:       sourceLabel,
		ValidationTargets: []string{DialectPostgres, DialectSQLite},
	}
	if registerFn == nil {
		return reg, fmt.Errorf("migrations: register function is required")
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&reg)
		}
	}

	filesystems, err := Filesystems()
	if err != nil {
		return reg, err
	}
	reg.Filesystems = filesystems

	for _, fsys := range reg.Filesystems {
		if !slices.Contains(reg.ValidationTargets, fsys.Dialect) {
			continue
		}
		if err := registerFn(ctx, fsys.Dialect, reg.SourceLabel, fsys.FS); err != nil {
			return reg, fmt.Errorf("migrations: register %s (%s): %w", fsys.Dialect, fsys.Path, err)
		}
	}
	return reg, nil
}
