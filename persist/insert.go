package persist

import (
	"context"
	"fmt"

	"github.com/syssam/relmap"
	"github.com/syssam/relmap/dialect/sql"
	"github.com/syssam/relmap/mapping"
	"github.com/syssam/relmap/metrics"
	"github.com/syssam/relmap/schema"
)

// Insert inserts entities in batches. Identifiers are assigned first when the
// strategy assigns them, and read back when the database generates them.
// Versions are initialized by the lock manager.
func (p *Persister[E]) Insert(ctx context.Context, entities []E) (err error) {
	if len(entities) == 0 {
		return nil
	}
	s, release, err := p.borrow(ctx, "insert")
	if err != nil {
		return err
	}
	defer release(&err)

	assigner, _ := p.strategy.(mapping.IdentifierAssigner)
	generated, _ := p.strategy.(mapping.GeneratedKeySetter)
	if generated != nil && !generated.GeneratesID() {
		generated = nil
	}
	cols := p.strategy.InsertableColumns()
	query := p.dialect.Rebind(insertStatement(p.dialect, p.table, cols))
	if generated != nil && !p.dialect.SupportsLastInsertID() {
		return p.insertReturning(ctx, s, query+" returning "+p.pk.Name, entities, assigner, generated)
	}

	w, err := sql.NewWriteOperation(ctx, s, "insert", query)
	if err != nil {
		return err
	}
	defer closeAll(&err, w)
	for _, e := range entities {
		args, err := p.prepareInsert(s.Tx(), e, assigner, cols)
		if err != nil {
			return err
		}
		var after func(sql.Result) error
		if generated != nil {
			entity := any(e)
			after = func(r sql.Result) error {
				id, err := r.LastInsertId()
				if err != nil {
					return err
				}
				return generated.SetGeneratedID(entity, id)
			}
		}
		w.AddBatch(args, after)
		if w.Pending() >= p.dialect.BatchSize {
			if _, err := p.flush(ctx, "insert", w); err != nil {
				return err
			}
		}
	}
	_, err = p.flush(ctx, "insert", w)
	return err
}

// prepareInsert assigns the identifier and the initial version of e and
// returns its insert arguments.
func (p *Persister[E]) prepareInsert(tx *sql.Tx, e E, assigner mapping.IdentifierAssigner, cols []*schema.Column) ([]any, error) {
	if assigner != nil {
		if err := assigner.AssignID(e); err != nil {
			return nil, fmt.Errorf("persist: assign identifier: %w", err)
		}
	}
	if err := p.lock.InitVersion(tx, e); err != nil {
		return nil, fmt.Errorf("persist: initial version: %w", err)
	}
	return columnArgs(cols, p.strategy.InsertValues(e)), nil
}

// insertReturning inserts entities one statement at a time, reading the
// generated identifier from a returning clause.
func (p *Persister[E]) insertReturning(ctx context.Context, s *sql.Session, query string, entities []E, assigner mapping.IdentifierAssigner, generated mapping.GeneratedKeySetter) error {
	cols := p.strategy.InsertableColumns()
	for _, e := range entities {
		args, err := p.prepareInsert(s.Tx(), e, assigner, cols)
		if err != nil {
			return err
		}
		id, err := queryID(ctx, s, query, args)
		metrics.Batch("insert", 1)
		if err != nil {
			return classify(relmap.NewExecutionError("insert", query, err))
		}
		if err := generated.SetGeneratedID(e, id); err != nil {
			return err
		}
	}
	return nil
}

func queryID(ctx context.Context, s *sql.Session, query string, args []any) (id int64, err error) {
	rows := &sql.Rows{}
	if err := s.Query(ctx, query, args, rows); err != nil {
		return 0, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return 0, err
		}
		return 0, fmt.Errorf("no identifier returned")
	}
	if err := rows.Scan(&id); err != nil {
		return 0, err
	}
	return id, rows.Err()
}
