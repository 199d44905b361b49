package sql

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/syssam/relmap/dialect"
	"github.com/syssam/relmap/schema"
)

type ctxVarsKey struct{}

type sessionVar struct{ name, value string }

// WithVar returns a new context carrying a session variable. Sessions
// borrowed with that context (see Driver.Borrow) set the variable before
// their first statement, so every statement of a persister call, prepared
// ones included, runs with it. A later value for the same name wins.
func WithVar(ctx context.Context, name, value string) context.Context {
	vars := varsFromContext(ctx)
	next := make([]sessionVar, 0, len(vars)+1)
	for _, v := range vars {
		if v.name != name {
			next = append(next, v)
		}
	}
	return context.WithValue(ctx, ctxVarsKey{}, append(next, sessionVar{name: name, value: value}))
}

// WithIntVar calls WithVar with the string representation of the value.
func WithIntVar(ctx context.Context, name string, value int) context.Context {
	return WithVar(ctx, name, strconv.Itoa(value))
}

// VarFromContext returns the value of the session variable stored in ctx.
func VarFromContext(ctx context.Context, name string) (string, bool) {
	for _, v := range varsFromContext(ctx) {
		if v.name == name {
			return v.value, true
		}
	}
	return "", false
}

func varsFromContext(ctx context.Context) []sessionVar {
	vars, _ := ctx.Value(ctxVarsKey{}).([]sessionVar)
	return vars
}

// quoteValue renders s as a single-quoted SQL literal. Backslashes are
// doubled for MySQL.
func quoteValue(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// setVars runs one SET statement per variable on the session and returns the
// function undoing them. Inside a Postgres transaction the variables are set
// with SET LOCAL and vanish with the transaction.
func (s *Session) setVars(ctx context.Context, vars []sessionVar) (func() error, error) {
	if len(vars) == 0 {
		return func() error { return nil }, nil
	}
	d := baseDialect(s.dialect)
	if d == dialect.SQLite {
		return nil, fmt.Errorf("dialect/sql: session variables are not supported by %s", dialect.SQLite)
	}
	for _, v := range vars {
		if !schema.ValidIdentifier(v.name) {
			return nil, fmt.Errorf("dialect/sql: invalid session variable name: %q", v.name)
		}
	}
	local := d == dialect.Postgres && s.tx != nil
	var reset []string
	undo := func() error {
		// The caller's context may be canceled by now.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		var err error
		for _, q := range reset {
			err = errors.Join(err, s.Exec(ctx, q, []any{}, nil))
		}
		return err
	}
	for _, v := range vars {
		set := "set "
		if local {
			set = "set local "
		}
		if err := s.Exec(ctx, set+v.name+" = "+quoteValue(v.value), []any{}, nil); err != nil {
			return nil, errors.Join(err, undo())
		}
		switch {
		case local:
		case d == dialect.Postgres:
			reset = append(reset, "reset "+v.name)
		default:
			reset = append(reset, "set "+v.name+" = null")
		}
	}
	return undo, nil
}
