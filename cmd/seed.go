package cmd

import (
	"fmt"
	"log"

	"github.com/driftlab/newsletter-service/internal/config"
	"github.com/driftlab/newsletter-service/internal/db"
	"github.com/driftlab/newsletter-service/internal/util"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with the newsletter categories",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		sqlDB, err := db.NewMySQLConnection(cfg.MySQL.DSN, db.MySQLOpts{
			MaxOpenConns:    cfg.MySQL.MaxOpenConns,
			MaxIdleConns:    cfg.MySQL.MaxIdleConns,
			ConnMaxLifetime: cfg.MySQL.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.MySQL.ConnMaxIdleTime,
			PingTimeout:     cfg.MySQL.PingTimeout,
		})
		if err != nil {
			return fmt.Errorf("mysql connect: %w", err)
		}
		defer sqlDB.Close()

		log.Println(">> Seeding categories...")

		if err := seedCategories(sqlDB); err != nil {
			return err
		}

		log.Println(">> Seed completed")
		return nil
	},
}

// seedCategories inserts the catalog (idempotent: the unique name index
// keeps existing rows, including their guids).
func seedCategories(dbx *sqlx.DB) error {
	names := []string{
		"Product updates",
		"Articles and market insights",
		"Case studies",
		"Industry news",
		"Technology trends",
		"Best practices",
		"Tips and tutorials",
		"Customer success stories",
		"Company announcements",
		"Event notifications",
		"Research reports",
		"Developer resources",
		"Security updates",
		"Feature highlights",
		"Community spotlight",
	}

	const q = `
INSERT INTO categories (guid, name, created_at, updated_at)
VALUES (?, ?, NOW(), NOW())
ON DUPLICATE KEY UPDATE updated_at = VALUES(updated_at)
`
	tx, err := dbx.Beginx()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, name := range names {
		if _, err := tx.Exec(q, util.NewGUID(), name); err != nil {
			return fmt.Errorf("insert category %q: %w", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit categories: %w", err)
	}
	return nil
}
