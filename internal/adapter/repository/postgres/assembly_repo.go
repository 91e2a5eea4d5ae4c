package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/simaogato/quoteflow-backend/internal/domain"
)

// assemblyRepository implements domain.AssemblyRepository
type assemblyRepository struct {
	db *DB
}

// NewAssemblyRepository creates a new assembly repository
func NewAssemblyRepository(db *DB) domain.AssemblyRepository {
	return &assemblyRepository{db: db}
}

// GetByID retrieves an assembly and its lines
// This method joins assemblies and assembly_lines tables
func (r *assemblyRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Assembly, error) {
	// First, get the assembly header
	assemblyQuery := `
		SELECT id, name
		FROM assemblies
		WHERE id = $1
	`

	var assembly domain.Assembly
	err := r.db.QueryRowContext(ctx, assemblyQuery, id).Scan(
		&assembly.ID,
		&assembly.Name,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("assembly %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get assembly: %w", err)
	}

	// Then, get all lines in their stored order
	linesQuery := `
		SELECT ref_kind, ref_id, quantity
		FROM assembly_lines
		WHERE assembly_id = $1
		ORDER BY position ASC
	`

	rows, err := r.db.QueryContext(ctx, linesQuery, assembly.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to query assembly lines: %w", err)
	}
	defer rows.Close()

	lines := make([]domain.AssemblyLine, 0)
	for rows.Next() {
		var line domain.AssemblyLine
		var quantityStr string

		if err := rows.Scan(&line.RefKind, &line.RefID, &quantityStr); err != nil {
			return nil, fmt.Errorf("failed to scan assembly line: %w", err)
		}

		// Parse quantity (NUMERIC)
		quantity, err := decimal.NewFromString(quantityStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse assembly line quantity: %w", err)
		}
		line.Quantity = quantity

		lines = append(lines, line)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating assembly lines: %w", err)
	}

	assembly.Lines = lines

	return &assembly, nil
}

// Create creates a new assembly with all its lines in a database transaction
func (r *assemblyRepository) Create(ctx context.Context, assembly *domain.Assembly) error {
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer dbTx.Rollback()

	_, err = dbTx.ExecContext(ctx, `
		INSERT INTO assemblies (id, name)
		VALUES ($1, $2)
	`, assembly.ID, assembly.Name)
	if err != nil {
		return fmt.Errorf("failed to insert assembly: %w", err)
	}

	insertLineQuery := `
		INSERT INTO assembly_lines (assembly_id, position, ref_kind, ref_id, quantity)
		VALUES ($1, $2, $3, $4, $5)
	`

	for i, line := range assembly.Lines {
		_, err = dbTx.ExecContext(ctx, insertLineQuery,
			assembly.ID,
			i,
			string(line.RefKind),
			line.RefID,
			line.Quantity.String(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert assembly line: %w", err)
		}
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
