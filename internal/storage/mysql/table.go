package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	mysqldrv "github.com/go-sql-driver/mysql"

	"myrestaurants/internal/domain"
)

// MySQL error numbers the store translates.
const (
	errDupEntry        = 1062
	errNoReferencedRow = 1452
)

// Table is the generic gateway for one record type.
type Table[T any, P domain.Entity[T]] struct {
	db *sql.DB
	s  schema[T]

	selectSQL, insertSQL, updateSQL, upsertSQL, deleteSQL string
}

func newTable[T any, P domain.Entity[T]](db *sql.DB, s schema[T]) *Table[T, P] {
	return &Table[T, P]{
		db:        db,
		s:         s,
		selectSQL: s.selectSQL(),
		insertSQL: s.insertSQL(),
		updateSQL: s.updateSQL(),
		upsertSQL: s.upsertSQL(),
		deleteSQL: "DELETE FROM " + s.table + " WHERE id = ?",
	}
}

func (t *Table[T, P]) Get(ctx context.Context, id int64) (T, error) {
	var rec T
	row := t.db.QueryRowContext(ctx, t.selectSQL+" WHERE id = ?", id)
	if err := t.s.scan(row, &rec); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return rec, domain.ErrNotFound
		}
		return rec, fmt.Errorf("get %s %d: %w", t.s.table, id, err)
	}
	return rec, nil
}

func (t *Table[T, P]) List(ctx context.Context, f domain.Filter) ([]T, error) {
	var (
		where []string
		args  []any
	)
	if !f.Until.IsZero() {
		where = append(where, "`date` <= ?")
		args = append(args, f.Until)
	}
	if f.Restaurant != 0 {
		if t.s.parent == "" {
			return []T{}, nil
		}
		where = append(where, quote(t.s.parent)+" = ?")
		args = append(args, f.Restaurant)
	}
	q := t.selectSQL
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	if f.Newest {
		q += " ORDER BY `date` DESC, id DESC"
	} else {
		q += " ORDER BY `date` ASC, id ASC"
	}
	if f.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := t.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", t.s.table, err)
	}
	defer rows.Close()

	out := []T{}
	for rows.Next() {
		var rec T
		if err := t.s.scan(rows, &rec); err != nil {
			return nil, fmt.Errorf("scan %s: %w", t.s.table, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (t *Table[T, P]) Insert(ctx context.Context, rec T) (T, error) {
	res, err := t.db.ExecContext(ctx, t.insertSQL, t.s.values(&rec)...)
	if err != nil {
		return rec, t.translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return rec, err
	}
	P(&rec).SetID(id)
	return rec, nil
}

func (t *Table[T, P]) Update(ctx context.Context, rec T) error {
	id := P(&rec).RecordID()
	args := append(t.s.values(&rec), id)
	res, err := t.db.ExecContext(ctx, t.updateSQL, args...)
	if err != nil {
		return t.translate(err)
	}
	// MySQL reports 0 affected rows when nothing changed, so fall back to
	// an existence probe before calling it a miss.
	if n, _ := res.RowsAffected(); n == 0 {
		var one int
		err := t.db.QueryRowContext(ctx, "SELECT 1 FROM "+t.s.table+" WHERE id = ?", id).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrNotFound
		}
		return err
	}
	return nil
}

func (t *Table[T, P]) Delete(ctx context.Context, id int64) error {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range t.s.onDelete {
		if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
			return fmt.Errorf("delete %s %d: %w", t.s.table, id, err)
		}
	}
	res, err := tx.ExecContext(ctx, t.deleteSQL, id)
	if err != nil {
		return t.translate(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return tx.Commit()
}

func (t *Table[T, P]) Upsert(ctx context.Context, rec T) error {
	args := append([]any{P(&rec).RecordID()}, t.s.values(&rec)...)
	if _, err := t.db.ExecContext(ctx, t.upsertSQL, args...); err != nil {
		return t.translate(err)
	}
	return nil
}

// translate turns constraint violations into validation errors.
func (t *Table[T, P]) translate(err error) error {
	var me *mysqldrv.MySQLError
	if errors.As(err, &me) && me.Number == errNoReferencedRow {
		return domain.Invalid(referencedField(me.Message), "Select a valid choice. That choice is not one of the available choices.")
	}
	return fmt.Errorf("%s: %w", t.s.table, err)
}

// referencedField pulls the column out of "... FOREIGN KEY (`price_id`) ...".
func referencedField(msg string) string {
	i := strings.Index(msg, "FOREIGN KEY (`")
	if i < 0 {
		return "__all__"
	}
	rest := msg[i+len("FOREIGN KEY (`"):]
	j := strings.Index(rest, "`")
	if j < 0 {
		return "__all__"
	}
	return strings.TrimSuffix(rest[:j], "_id")
}
