package sources

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	_ "modernc.org/sqlite"

	"github.com/openqsrx/qumi-codes/entities"
	"github.com/openqsrx/qumi-codes/logging"
	"github.com/openqsrx/qumi-codes/ndc"
)

// RxNorm reads the NDC map and graph tables from an RxNorm SQLite database.
type RxNorm struct {
	db   *sql.DB
	path string
}

// OpenRxNorm opens an existing database. A missing file is an error; the
// driver would otherwise create an empty database.
func OpenRxNorm(path string) (*RxNorm, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("rxnorm database %s: %w", path, err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open rxnorm database %s: %w", path, err)
	}
	return &RxNorm{db: db, path: path}, nil
}

// Close releases the database handle.
func (x *RxNorm) Close() error {
	return x.db.Close()
}

func (x *RxNorm) requireTable(ctx context.Context, table string) error {
	var name string
	err := x.db.QueryRowContext(ctx,
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&name)
	if err == sql.ErrNoRows {
		return fmt.Errorf("%s: %w: table %s", x.path, ErrMissingColumn, table)
	}
	if err != nil {
		return fmt.Errorf("failed to inspect %s: %w", x.path, err)
	}
	return nil
}

// NDCLinks returns the NDC table with normalized NDCs and cleaned identifiers,
// in table order. Rows without an NDC or identifier are skipped.
func (x *RxNorm) NDCLinks(ctx context.Context) ([]entities.NDCLink, error) {
	if err := x.requireTable(ctx, "NDC"); err != nil {
		return nil, err
	}

	rows, err := x.db.QueryContext(ctx, "SELECT CAST(NDC AS TEXT), CAST(RXCUI AS TEXT) FROM NDC")
	if err != nil {
		return nil, fmt.Errorf("failed to query NDC table: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logging.Warn("Failed to close NDC rows", "error", err)
		}
	}()

	var links []entities.NDCLink
	skipped := 0
	for rows.Next() {
		var code, rxcui sql.NullString
		if err := rows.Scan(&code, &rxcui); err != nil {
			return nil, fmt.Errorf("failed to scan NDC row: %w", err)
		}
		if !code.Valid || !rxcui.Valid || rxcui.String == "" {
			skipped++
			continue
		}
		links = append(links, entities.NDCLink{
			NDC:   ndc.Normalize(code.String),
			RxCUI: ndc.CleanRxCUI(rxcui.String),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read NDC table: %w", err)
	}

	logging.Debug("RxNorm NDC table read", "links", len(links), "skipped", skipped)
	return links, nil
}

// Relations returns the RXNORM-sourced relationships with the given names.
func (x *RxNorm) Relations(ctx context.Context, relas []string) ([]entities.Relation, error) {
	if err := x.requireTable(ctx, "RXNREL"); err != nil {
		return nil, err
	}

	var out []entities.Relation
	for _, rela := range relas {
		rows, err := x.db.QueryContext(ctx,
			"SELECT CAST(RXCUI1 AS TEXT), CAST(RXCUI2 AS TEXT) FROM RXNREL WHERE SAB = 'RXNORM' AND RELA = ?", rela)
		if err != nil {
			return nil, fmt.Errorf("failed to query %s relations: %w", rela, err)
		}

		for rows.Next() {
			var a, b sql.NullString
			if err := rows.Scan(&a, &b); err != nil {
				rows.Close()
				return nil, fmt.Errorf("failed to scan %s relation: %w", rela, err)
			}
			if !a.Valid || !b.Valid {
				continue
			}
			out = append(out, entities.Relation{
				RxCUI1: ndc.CleanRxCUI(a.String),
				RxCUI2: ndc.CleanRxCUI(b.String),
				Rela:   rela,
			})
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read %s relations: %w", rela, err)
		}
	}
	return out, nil
}

// Concepts returns the RXNORM-sourced concept strings of the given term types.
func (x *RxNorm) Concepts(ctx context.Context, ttys []string) ([]entities.Concept, error) {
	if err := x.requireTable(ctx, "RXNCONSO"); err != nil {
		return nil, err
	}

	var out []entities.Concept
	for _, tty := range ttys {
		rows, err := x.db.QueryContext(ctx,
			"SELECT CAST(RXCUI AS TEXT), STR FROM RXNCONSO WHERE SAB = 'RXNORM' AND TTY = ?", tty)
		if err != nil {
			return nil, fmt.Errorf("failed to query %s concepts: %w", tty, err)
		}

		for rows.Next() {
			var id, str sql.NullString
			if err := rows.Scan(&id, &str); err != nil {
				rows.Close()
				return nil, fmt.Errorf("failed to scan %s concept: %w", tty, err)
			}
			if !id.Valid || !str.Valid {
				continue
			}
			out = append(out, entities.Concept{RxCUI: ndc.CleanRxCUI(id.String), Str: str.String, TTY: tty})
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read %s concepts: %w", tty, err)
		}
	}
	return out, nil
}
