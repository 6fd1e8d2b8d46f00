// admin/reset.go

// Package admin holds destructive maintenance operations that are gated
// behind an explicit confirmation and never run as part of a normal
// pipeline stage.
package admin

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/gewnthar/firelake/config"
	"github.com/gewnthar/firelake/lake"
)

// Reset drops every table in every tier and clears the landing area, sparing
// the protected folders (hand-curated reference files that cannot be
// re-downloaded). The confirm callback must return true or nothing happens.
func Reset(store lake.Store, cfg *config.Config, confirm func() bool) error {
	if confirm == nil || !confirm() {
		log.Println("Admin: Reset aborted.")
		return nil
	}

	for _, tier := range lake.Tiers {
		tables, err := store.List(tier)
		if err != nil {
			return fmt.Errorf("failed to list %s tables: %w", tier, err)
		}
		for _, table := range tables {
			if err := store.Drop(tier, table); err != nil {
				log.Printf("ERROR Admin: Failed to drop %s/%s: %v\n", tier, table, err)
				continue
			}
			log.Printf("Admin: Dropped %s/%s.\n", tier, table)
		}
	}

	if cfg.Landing.Root == "" {
		log.Println("Admin: No landing root configured, skipping file cleanup.")
		return nil
	}

	entries, err := os.ReadDir(cfg.Landing.Root)
	if err != nil {
		if os.IsNotExist(err) {
			log.Println("Admin: Landing root does not exist, nothing to clean.")
			return nil
		}
		return fmt.Errorf("failed to read landing root: %w", err)
	}

	protected := make(map[string]bool, len(cfg.Landing.ProtectedFolders))
	for _, name := range cfg.Landing.ProtectedFolders {
		protected[name] = true
	}

	for _, entry := range entries {
		if protected[entry.Name()] {
			log.Printf("Admin: Keeping protected folder %s.\n", entry.Name())
			continue
		}
		path := filepath.Join(cfg.Landing.Root, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			log.Printf("ERROR Admin: Failed to remove %s: %v\n", path, err)
			continue
		}
		log.Printf("Admin: Removed %s.\n", path)
	}

	log.Println("Admin: Reset complete.")
	return nil
}
