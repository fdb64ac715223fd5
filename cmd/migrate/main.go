package main

import (
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/NukeThemAII/p2p/internal/config"
	"github.com/NukeThemAII/p2p/internal/infrastructure/db/postgres"
	"github.com/NukeThemAII/p2p/pkg/logger"
)

func main() {
	cfg := config.MustLoad()

	db, err := postgres.Connect(cfg, logger.New(cfg))
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()

	if _, err = db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		filename TEXT PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`); err != nil {
		log.Fatalf("ensure schema table failed: %v", err)
	}

	files, err := listSQLFiles("migrations")
	if err != nil {
		log.Fatalf("list migrations failed: %v", err)
	}

	for _, file := range files {
		var applied bool
		err = db.QueryRow(
			"SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE filename = $1)",
			filepath.Base(file)).Scan(&applied)
		if err != nil {
			log.Fatalf("check migration failed (%s): %v", file, err)
		}
		if applied {
			continue
		}

		contents, err := os.ReadFile(file)
		if err != nil {
			log.Fatalf("read migration failed (%s): %v", file, err)
		}

		if _, err = db.Exec(string(contents)); err != nil {
			log.Fatalf("apply migration failed (%s): %v", file, err)
		}

		if _, err = db.Exec(
			"INSERT INTO schema_migrations (filename) VALUES ($1)",
			filepath.Base(file)); err != nil {
			log.Fatalf("mark migration failed (%s): %v", file, err)
		}

		log.Printf("applied %s", file)
	}
}

func listSQLFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(files)

	return files, nil
}
