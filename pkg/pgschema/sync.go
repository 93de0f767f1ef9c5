package pgschema

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// SyncRoutines reads the signatures of the functions and procedures in a
// postgres schema. When includedRoutines is non-empty only those routines
// are returned, and it is an error for any of them to be missing. Overloaded
// routines are rejected since a tenant endpoint cannot pick between them.
func SyncRoutines(ctx context.Context, conn *pgxpool.Pool, schema string, includedRoutines ...string) ([]*Routine, error) {
	tx, err := conn.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	routines, specifics, err := syncRoutines(ctx, tx, schema, includedRoutines)
	if err != nil {
		return nil, err
	}
	for i, r := range routines {
		params, err := syncParameters(ctx, tx, schema, specifics[i])
		if err != nil {
			return nil, err
		}
		r.Params = params
	}
	return routines, nil
}

func syncRoutines(ctx context.Context, tx pgx.Tx, schema string, includedRoutines []string) ([]*Routine, []string, error) {
	expected := make(map[string]struct{}, len(includedRoutines))
	for _, r := range includedRoutines {
		expected[r] = struct{}{}
	}
	includes := func(name string) bool {
		if len(includedRoutines) == 0 {
			return true
		}
		_, ok := expected[name]
		return ok
	}

	rows, err := tx.Query(ctx, querySelectRoutines, schema)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	routines := make([]*Routine, 0)
	specifics := make([]string, 0)
	seen := make(map[string]struct{})
	for rows.Next() {
		var specific, name, kind string
		if err := rows.Scan(&specific, &name, &kind); err != nil {
			return nil, nil, err
		}
		if !includes(name) {
			continue
		}
		if _, ok := seen[name]; ok {
			return nil, nil, fmt.Errorf("routine %s.%s is overloaded", schema, name)
		}
		seen[name] = struct{}{}
		delete(expected, name)
		routines = append(routines, &Routine{Schema: schema, Name: name, Kind: kind})
		specifics = append(specifics, specific)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	if len(expected) > 0 {
		return nil, nil, fmt.Errorf("not all expected routines found in schema %s. missing: %v", schema, expected)
	}
	return routines, specifics, nil
}

func syncParameters(ctx context.Context, tx pgx.Tx, schema, specific string) ([]Param, error) {
	rows, err := tx.Query(ctx, querySelectParameters, schema, specific)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	params := make([]Param, 0)
	for rows.Next() {
		var p Param
		var maxLength *int32
		var mode *string
		if err := rows.Scan(&p.Position, &p.Name, &p.DataType, &maxLength, &mode); err != nil {
			return nil, err
		}
		if maxLength != nil {
			n := int(*maxLength)
			p.MaxLength = &n
		}
		p.Mode = "IN"
		if mode != nil {
			p.Mode = *mode
		}
		params = append(params, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return params, nil
}
