package main

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/lib/pq"
)

type PostgresDB struct {
	db  *sql.DB
	dsn string
}

func NewPostgresDB(dsn string) (*PostgresDB, error) {
	d, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	p := &PostgresDB{db: d, dsn: dsn}
	if err := p.Init(); err != nil {
		d.Close()
		return nil, err
	}
	return p, nil
}

func (p *PostgresDB) Init() error {
	// rely on migrations to create tables; just verify connectivity
	return p.db.Ping()
}

func (p *PostgresDB) CreateUser(ctx context.Context, name, email, password string, age int) (*User, error) {
	var id int64
	err := p.db.QueryRowContext(ctx, `INSERT INTO users(name,email,password,age,created_at) VALUES($1,$2,$3,$4,now()) RETURNING id`, name, email, password, age).Scan(&id)
	if err != nil {
		// unique violation surfaces as a conflict at the handler
		return nil, err
	}
	return &User{ID: id, Name: name, Email: email, Password: password, Age: age}, nil
}

func (p *PostgresDB) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	row := p.db.QueryRowContext(ctx, `SELECT id,name,email,password,age,points,created_at FROM users WHERE email = $1`, email)
	return scanUserPg(row)
}

func (p *PostgresDB) ListUsers(ctx context.Context) ([]*User, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT id,name,email,password,age,points,created_at FROM users ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var users []*User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Password, &u.Age, &u.Points, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, &u)
	}
	return users, rows.Err()
}

func (p *PostgresDB) UpdateUser(ctx context.Context, email, name, newEmail, password string, age int) error {
	res, err := p.db.ExecContext(ctx, `UPDATE users SET name = $1, email = $2, password = $3, age = $4 WHERE email = $5`, name, newEmail, password, age, email)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (p *PostgresDB) DeleteUser(ctx context.Context, email string) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM users WHERE email = $1`, email)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (p *PostgresDB) IncrementPoints(ctx context.Context, email string) (int64, error) {
	var points int64
	err := p.db.QueryRowContext(ctx, `UPDATE users SET points = points + 1 WHERE email = $1 RETURNING points`, email).Scan(&points)
	if err == sql.ErrNoRows {
		return 0, ErrUserNotFound
	}
	return points, err
}

func (p *PostgresDB) TopScorer(ctx context.Context) (*User, error) {
	row := p.db.QueryRowContext(ctx, `SELECT id,name,email,password,age,points,created_at FROM users ORDER BY points DESC LIMIT 1`)
	return scanUserPg(row)
}

func (p *PostgresDB) AveragePoints(ctx context.Context) (float64, error) {
	var avg float64
	err := p.db.QueryRowContext(ctx, `SELECT COALESCE(AVG(points), 0) FROM users`).Scan(&avg)
	return avg, err
}

func (p *PostgresDB) Revoke(ctx context.Context, token string, expiresAt time.Time) error {
	_, err := p.db.ExecContext(ctx, `INSERT INTO revoked_tokens(token,expires_at,created_at) VALUES($1,$2,now()) ON CONFLICT (token) DO NOTHING`, token, expiresAt)
	return err
}

func (p *PostgresDB) IsRevoked(ctx context.Context, token string) (bool, error) {
	var one int
	err := p.db.QueryRowContext(ctx, `SELECT 1 FROM revoked_tokens WHERE token = $1`, token).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (p *PostgresDB) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := p.db.ExecContext(ctx, `DELETE FROM revoked_tokens WHERE expires_at < $1`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanUserPg(row rowScanner) (*User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Password, &u.Age, &u.Points, &u.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func (p *PostgresDB) close() error { return p.db.Close() }
func (p *PostgresDB) ping() bool   { return p.db.Ping() == nil }
