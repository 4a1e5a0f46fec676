package db

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"strconv"
	"strings"
)

// RunMigrateCommand handles the 'migrate' subcommand dispatching
func RunMigrateCommand(args []string, dbPath string) {
	if len(args) < 1 {
		PrintMigrateHelp(os.Stdout)
		os.Exit(1)
	}

	migrations, err := getMigrationsFS()
	if err != nil {
		log.Fatalf("Failed to get migrations filesystem: %v", err)
	}

	// migrations manage the schema, so open without applying them
	database, err := OpenDB(dbPath)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	if err := runMigrate(os.Stdout, os.Stdin, database, migrations, args); err != nil {
		log.Fatalf("migrate %s: %v", args[0], err)
	}
}

var errUsage = errors.New("usage")

func runMigrate(out io.Writer, in io.Reader, database *DB, migrations fs.FS, args []string) error {
	action := args[0]
	versionArg := func() (int, error) {
		if len(args) < 2 {
			return 0, fmt.Errorf("%w: cdc-server migrate %s <version_number>", errUsage, action)
		}
		v, err := strconv.Atoi(args[1])
		if err != nil || v < 0 {
			return 0, fmt.Errorf("invalid version number: %s", args[1])
		}
		return v, nil
	}

	switch action {
	case "up":
		log.Printf("Running migrations...")
		if err := database.MigrateUp(migrations); err != nil {
			return err
		}
		log.Println("All migrations applied successfully")
		return printVersion(out, database, migrations)

	case "down":
		log.Printf("Rolling back one migration...")
		if err := database.MigrateDown(migrations); err != nil {
			return err
		}
		log.Println("Migration rolled back successfully")
		return printVersion(out, database, migrations)

	case "status":
		status, err := database.GetMigrationStatus(migrations)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, "=== Migration Status ===")
		fmt.Fprintf(out, "Current version: %d\n", status.CurrentVersion)
		fmt.Fprintf(out, "Latest available: %d\n", status.LatestVersion)
		fmt.Fprintf(out, "Dirty: %v\n", status.Dirty)
		fmt.Fprintf(out, "Schema migrations table exists: %v\n", status.SchemaMigrationsExists)
		if status.Dirty {
			fmt.Fprintln(out, "\nWARNING: Database is in a dirty state!")
			fmt.Fprintln(out, "A migration failed mid-execution. Inspect the database, then run:")
			fmt.Fprintln(out, "  cdc-server migrate force <version>")
		} else if status.Pending() {
			fmt.Fprintf(out, "\n%d migration(s) pending. Run 'cdc-server migrate up' to update.\n", status.LatestVersion-status.CurrentVersion)
		}
		return nil

	case "version":
		v, err := versionArg()
		if err != nil {
			return err
		}
		log.Printf("Migrating to version %d...", v)
		if err := database.MigrateTo(migrations, uint(v)); err != nil {
			return err
		}
		return printVersion(out, database, migrations)

	case "force":
		v, err := versionArg()
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "WARNING: Forcing migration version to %d\n", v)
		fmt.Fprintln(out, "This should only be used to recover from a dirty migration state.")
		fmt.Fprint(out, "Continue? [y/N]: ")
		response, _ := bufio.NewReader(in).ReadString('\n')
		if r := strings.TrimSpace(response); r != "y" && r != "Y" {
			fmt.Fprintln(out, "Aborted")
			return nil
		}
		if err := database.MigrateForce(migrations, v); err != nil {
			return err
		}
		log.Printf("Migration version forced to %d", v)
		return nil

	case "help":
		PrintMigrateHelp(out)
		return nil

	default:
		PrintMigrateHelp(out)
		return fmt.Errorf("unknown migrate action: %s", action)
	}
}

func printVersion(out io.Writer, database *DB, migrations fs.FS) error {
	version, dirty, err := database.MigrateVersion(migrations)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Current version: %d (dirty: %v)\n", version, dirty)
	return nil
}

// PrintMigrateHelp displays the help message for the migrate command
func PrintMigrateHelp(out io.Writer) {
	fmt.Fprint(out, `Database Migration Commands

Usage: cdc-server migrate <command> [options]

Commands:
  up              Apply all pending migrations
  down            Rollback one migration
  status          Show current migration status and version
  version <N>     Migrate to specific version N
  force <N>       Force migration version to N (recovery only)
  help            Show this help message

Options:
  -db <path>      Path to database file (default: cdc.db)
`)
}
