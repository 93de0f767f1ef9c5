package write

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgconn"
	_ "github.com/jackc/pgx/v4/stdlib" // registers the "pgx" driver
	mssql "github.com/microsoft/go-mssqldb"

	"github.com/authzed/connector-scim/pkg/config"
	"github.com/authzed/connector-scim/pkg/mapping"
)

// OpenFunc opens a database handle. It matches sql.Open.
type OpenFunc func(driverName, dataSourceName string) (*sql.DB, error)

// SQLWriter invokes stored procedures and functions on a relational
// destination. Each Write opens its own handle, makes exactly one call and
// closes the handle before returning; handles are never shared between
// calls.
type SQLWriter struct {
	dest    config.Destination
	backend mapping.Backend
	open    OpenFunc
}

var _ Writer = &SQLWriter{}

// NewSQLWriter returns a writer for dest, failing if its driver is not a
// supported backend.
func NewSQLWriter(dest config.Destination) (*SQLWriter, error) {
	return NewSQLWriterWithOpener(dest, sql.Open)
}

// NewSQLWriterWithOpener is NewSQLWriter with a custom handle opener.
func NewSQLWriterWithOpener(dest config.Destination, open OpenFunc) (*SQLWriter, error) {
	backend, err := mapping.ClassifyDriver(dest.Driver)
	if err != nil {
		return nil, err
	}
	return &SQLWriter{dest: dest, backend: backend, open: open}, nil
}

func (w *SQLWriter) Write(ctx context.Context, req *Request) (*Response, error) {
	cmd, err := mapping.NewCommand(w.dest.Driver, req.Routine, req.Kind, req.Params)
	if err != nil {
		return nil, err
	}

	db, err := w.open(w.backend.DriverName(), w.dest.DSN)
	if err != nil {
		return nil, fmt.Errorf("opening %s destination: %w", w.backend, err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	if req.Kind != config.RequestGet {
		if _, err := db.ExecContext(ctx, cmd.Text, cmd.Args...); err != nil {
			return nil, classify(err)
		}
		return &Response{Status: http.StatusOK}, nil
	}

	rows, err := db.QueryContext(ctx, cmd.Text, cmd.Args...)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()
	docs, err := documents(rows)
	if err != nil {
		return nil, classify(err)
	}
	if len(docs) == 0 {
		return &Response{Status: http.StatusNotFound}, nil
	}
	return &Response{Status: http.StatusOK, Documents: docs}, nil
}

// documents reads every row into a column-keyed object.
func documents(rows *sql.Rows) ([]any, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	docs := make([]any, 0)
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		doc := make(map[string]any, len(cols))
		for i, c := range cols {
			if b, ok := values[i].([]byte); ok {
				doc[c] = string(b)
				continue
			}
			doc[c] = values[i]
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// classify turns driver errors into DestinationErrors. Data and constraint
// errors are the tenant's to fix; everything else is internal.
func classify(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		status := http.StatusInternalServerError
		switch {
		case pgErr.Code == "42883" || pgErr.Code == "42P01":
			status = http.StatusNotFound
		case strings.HasPrefix(pgErr.Code, "22"), strings.HasPrefix(pgErr.Code, "23"):
			status = http.StatusBadRequest
		}
		return &DestinationError{Status: status, Code: pgErr.Code, Message: pgErr.Message}
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		status := http.StatusInternalServerError
		switch myErr.Number {
		case 1062, 1048, 1264, 1366, 1406, 1452:
			status = http.StatusBadRequest
		case 1305:
			status = http.StatusNotFound
		}
		return &DestinationError{Status: status, Code: strconv.Itoa(int(myErr.Number)), Message: myErr.Message}
	}

	var msErr mssql.Error
	if errors.As(err, &msErr) {
		status := http.StatusInternalServerError
		switch msErr.Number {
		case 2627, 2601, 515, 8114, 8152, 547:
			status = http.StatusBadRequest
		case 2812:
			status = http.StatusNotFound
		}
		return &DestinationError{Status: status, Code: strconv.Itoa(int(msErr.Number)), Message: msErr.Message}
	}
	return err
}
