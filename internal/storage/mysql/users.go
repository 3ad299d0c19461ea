package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	mysqldrv "github.com/go-sql-driver/mysql"

	"myrestaurants/internal/domain"
)

type Users struct{ db *sql.DB }

func (u *Users) Get(ctx context.Context, id int64) (domain.User, error) {
	return u.one(ctx, selectUserSQL+" WHERE id = ?", id)
}

func (u *Users) ByUsername(ctx context.Context, username string) (domain.User, error) {
	return u.one(ctx, selectUserSQL+" WHERE username = ?", username)
}

func (u *Users) one(ctx context.Context, q string, arg any) (domain.User, error) {
	var usr domain.User
	err := u.db.QueryRowContext(ctx, q, arg).Scan(&usr.ID, &usr.Username, &usr.PasswordHash, &usr.DateJoined)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("get user: %w", err)
	}
	return usr, nil
}

func (u *Users) Create(ctx context.Context, usr domain.User) (domain.User, error) {
	if usr.DateJoined.IsZero() {
		usr.DateJoined = time.Now().UTC()
	}
	res, err := u.db.ExecContext(ctx, insertUserSQL, usr.Username, usr.PasswordHash, usr.DateJoined)
	if err != nil {
		var me *mysqldrv.MySQLError
		if errors.As(err, &me) && me.Number == errDupEntry {
			return domain.User{}, domain.Invalid("username", "A user with that username already exists.")
		}
		return domain.User{}, fmt.Errorf("create user: %w", err)
	}
	if usr.ID, err = res.LastInsertId(); err != nil {
		return domain.User{}, err
	}
	return usr, nil
}

func (u *Users) Upsert(ctx context.Context, usr domain.User) error {
	if usr.DateJoined.IsZero() {
		usr.DateJoined = time.Now().UTC()
	}
	_, err := u.db.ExecContext(ctx, upsertUserSQL, usr.ID, usr.Username, usr.PasswordHash, usr.DateJoined)
	return err
}
