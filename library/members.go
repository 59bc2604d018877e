package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

func findUserByName(ctx context.Context, q dbtx, name string) (*User, error) {
	var u User
	err := q.QueryRowContext(ctx,
		`SELECT user_id,user_name,password FROM user WHERE user_name=? ORDER BY user_id LIMIT 1`, name).
		Scan(&u.ID, &u.Name, &u.Password)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %q", ErrUserNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("find user %q: %w", name, err)
	}
	return &u, nil
}

func insertUser(ctx context.Context, q dbtx, name, password string) (int64, error) {
	res, err := q.ExecContext(ctx, `INSERT INTO user(user_name,password) VALUES(?,?)`, name, password)
	if err != nil {
		return 0, fmt.Errorf("insert user: %w", err)
	}
	return res.LastInsertId()
}

func deleteUser(ctx context.Context, q dbtx, id int64) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM user WHERE user_id=?`, id); err != nil {
		return fmt.Errorf("delete user %d: %w", id, err)
	}
	return nil
}

// GetUser fetches a member by name.
func (d *Database) GetUser(ctx context.Context, name string) (*User, error) {
	return findUserByName(ctx, d.db, name)
}

// GetAllUsers returns every member ordered by id.
func (d *Database) GetAllUsers(ctx context.Context) ([]*User, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT user_id,user_name,password FROM user ORDER BY user_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Name, &u.Password); err != nil {
			return nil, err
		}
		users = append(users, &u)
	}
	return users, rows.Err()
}
