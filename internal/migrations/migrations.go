package migrations

import (
	_ "embed"

	"github.com/goran-ethernal/LoanIndexor/internal/db"
)

//go:embed 001_loan_schemes.sql
var mig001 string

//go:embed 002_indexed_blocks.sql
var mig002 string

func RunMigrations(dbPath string) error {
	migrations := []db.Migration{
		{
			ID:  "001_loan_schemes.sql",
			SQL: mig001,
		},
		{
			ID:  "002_indexed_blocks.sql",
			SQL: mig002,
		},
	}

	return db.RunMigrations(dbPath, migrations)
}
