package db

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
)

func migrationsForTest(t *testing.T) *DB {
	t.Helper()
	db, err := OpenDB(filepath.Join(t.TempDir(), "migrate.db"))
	if err != nil {
		t.Fatalf("OpenDB failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestMigrateUpDown(t *testing.T) {
	db := migrationsForTest(t)
	migrations, err := getMigrationsFS()
	if err != nil {
		t.Fatalf("getMigrationsFS failed: %v", err)
	}

	version, dirty, err := db.MigrateVersion(migrations)
	if err != nil {
		t.Fatalf("MigrateVersion failed: %v", err)
	}
	if version != 0 || dirty {
		t.Errorf("fresh database: got version %d dirty %v", version, dirty)
	}

	if err := db.MigrateUp(migrations); err != nil {
		t.Fatalf("MigrateUp failed: %v", err)
	}
	// second run is a no-op
	if err := db.MigrateUp(migrations); err != nil {
		t.Fatalf("MigrateUp (no change) failed: %v", err)
	}
	latest, err := GetLatestMigrationVersion(migrations)
	if err != nil {
		t.Fatalf("GetLatestMigrationVersion failed: %v", err)
	}
	if latest != 2 {
		t.Errorf("latest version = %d, want 2", latest)
	}
	version, _, _ = db.MigrateVersion(migrations)
	if version != latest {
		t.Errorf("after up: version %d, want %d", version, latest)
	}
	if err := db.CheckMigrations(migrations); err != nil {
		t.Errorf("CheckMigrations after up: %v", err)
	}

	if err := db.MigrateDown(migrations); err != nil {
		t.Fatalf("MigrateDown failed: %v", err)
	}
	version, _, _ = db.MigrateVersion(migrations)
	if version != 1 {
		t.Errorf("after down: version %d, want 1", version)
	}
	if err := db.CheckMigrations(migrations); err == nil {
		t.Error("CheckMigrations should report pending migrations")
	}

	if err := db.MigrateTo(migrations, 2); err != nil {
		t.Fatalf("MigrateTo failed: %v", err)
	}
	status, err := db.GetMigrationStatus(migrations)
	if err != nil {
		t.Fatalf("GetMigrationStatus failed: %v", err)
	}
	if !status.SchemaMigrationsExists || status.Pending() || status.Dirty {
		t.Errorf("unexpected status %+v", status)
	}
}

func TestMigrateForce(t *testing.T) {
	db := migrationsForTest(t)
	migrations, _ := getMigrationsFS()
	if err := db.MigrateUp(migrations); err != nil {
		t.Fatalf("MigrateUp failed: %v", err)
	}
	if err := db.MigrateForce(migrations, 1); err != nil {
		t.Fatalf("MigrateForce failed: %v", err)
	}
	version, dirty, _ := db.MigrateVersion(migrations)
	if version != 1 || dirty {
		t.Errorf("after force: version %d dirty %v", version, dirty)
	}
}

func TestMigrate_NilFS(t *testing.T) {
	db := migrationsForTest(t)
	if err := db.MigrateUp(nil); err == nil {
		t.Error("expected error for nil filesystem")
	}
}

func TestGetLatestMigrationVersion(t *testing.T) {
	tests := []struct {
		name    string
		files   fstest.MapFS
		want    uint
		wantErr bool
	}{
		{"multiple", fstest.MapFS{
			"000001_a.up.sql":   {Data: []byte("")},
			"000003_c.up.sql":   {Data: []byte("")},
			"000003_c.down.sql": {Data: []byte("")},
		}, 3, false},
		{"empty", fstest.MapFS{}, 0, true},
		{"unnumbered", fstest.MapFS{"init.up.sql": {Data: []byte("")}}, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := GetLatestMigrationVersion(tt.files)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got version %d", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRunMigrate(t *testing.T) {
	db := migrationsForTest(t)
	migrations, _ := getMigrationsFS()

	var out bytes.Buffer
	if err := runMigrate(&out, strings.NewReader(""), db, migrations, []string{"status"}); err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if !strings.Contains(out.String(), "2 migration(s) pending") {
		t.Errorf("status output missing pending count:\n%s", out.String())
	}

	out.Reset()
	if err := runMigrate(&out, nil, db, migrations, []string{"up"}); err != nil {
		t.Fatalf("up failed: %v", err)
	}
	if !strings.Contains(out.String(), "Current version: 2") {
		t.Errorf("up output: %s", out.String())
	}

	out.Reset()
	if err := runMigrate(&out, strings.NewReader("n\n"), db, migrations, []string{"force", "1"}); err != nil {
		t.Fatalf("force failed: %v", err)
	}
	if !strings.Contains(out.String(), "Aborted") {
		t.Errorf("force without confirmation should abort: %s", out.String())
	}
	version, _, _ := db.MigrateVersion(migrations)
	if version != 2 {
		t.Errorf("aborted force changed version to %d", version)
	}

	if err := runMigrate(&out, nil, db, migrations, []string{"version"}); err == nil {
		t.Error("version without argument should fail")
	}
	if err := runMigrate(&out, nil, db, migrations, []string{"version", "x"}); err == nil {
		t.Error("version with bad argument should fail")
	}
	if err := runMigrate(&out, nil, db, migrations, []string{"bogus"}); err == nil {
		t.Error("unknown action should fail")
	}
}
