package store

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"groundwork/internal/source"
)

// PostgresDialect implements Dialect for PostgreSQL via pgx/stdlib.
type PostgresDialect struct{}

func (d *PostgresDialect) Name() string       { return "postgres" }
func (d *PostgresDialect) DriverName() string { return "pgx" }

func (d *PostgresDialect) NewParamBuilder() ParamBuilder {
	return &pgParamBuilder{}
}

// uniqueViolationCode is the PostgreSQL error class for unique
// constraint violations.
const uniqueViolationCode = "23505"

func (d *PostgresDialect) MapError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
		return fmt.Errorf("%w: %w", source.ErrUniqueViolation, err)
	}
	// pgx/stdlib sometimes flattens the error; fall back to the message.
	if strings.Contains(err.Error(), "duplicate key") {
		return fmt.Errorf("%w: %w", source.ErrUniqueViolation, err)
	}
	return err
}

var _ Dialect = (*PostgresDialect)(nil)
