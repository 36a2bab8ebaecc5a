package migrations

import (
	"context"
	_ "embed"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

//go:embed 0001_create_biblia.sql
var createBibliaSQL string

var Migrations = migrate.NewMigrations()

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.Exec(createBibliaSQL)
			return err
		},
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.Exec(`
				DROP TABLE IF EXISTS submissions;
				DROP TABLE IF EXISTS answers;
				DROP TABLE IF EXISTS participants;
				DROP TABLE IF EXISTS questions;
				DROP TABLE IF EXISTS daily_content;
				DROP TABLE IF EXISTS tournaments;
			`)
			return err
		},
	)
}
