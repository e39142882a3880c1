package main

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"
)

// Store holds user records. Email is the lookup key everywhere.
type Store interface {
	Init() error
	CreateUser(ctx context.Context, name, email, password string, age int) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	ListUsers(ctx context.Context) ([]*User, error)
	UpdateUser(ctx context.Context, email, name, newEmail, password string, age int) error
	DeleteUser(ctx context.Context, email string) error
	IncrementPoints(ctx context.Context, email string) (int64, error)
	TopScorer(ctx context.Context) (*User, error)
	AveragePoints(ctx context.Context) (float64, error)
}

// RevocationStore is the token denylist. Revoke is an idempotent insert;
// IsRevoked is an exact-string read that must be safe under concurrent
// verification. PurgeExpired is best-effort housekeeping only: a revoked but
// expired entry is redundant with signature-expiry rejection, so correctness
// never depends on pruning.
type RevocationStore interface {
	Revoke(ctx context.Context, token string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, token string) (bool, error)
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

// Memory DB
type MemDB struct {
	mu      sync.RWMutex
	users   map[string]*User
	revoked map[string]*RevokedToken
	seq     int64
}

func NewMemoryDB() *MemDB {
	return &MemDB{users: map[string]*User{}, revoked: map[string]*RevokedToken{}, seq: 1}
}

func (m *MemDB) Init() error { return nil }

func (m *MemDB) CreateUser(ctx context.Context, name, email, password string, age int) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[email]; ok {
		return nil, ErrUserExists
	}
	u := &User{ID: m.seq, Name: name, Email: email, Password: password, Age: age, CreatedAt: time.Now()}
	m.seq++
	m.users[email] = u
	return u, nil
}

func (m *MemDB) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if u, ok := m.users[email]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (m *MemDB) ListUsers(ctx context.Context) ([]*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*User, 0, len(m.users))
	for _, u := range m.users {
		cp := *u
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemDB) UpdateUser(ctx context.Context, email, name, newEmail, password string, age int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[email]
	if !ok {
		return ErrUserNotFound
	}
	if newEmail != email {
		if _, taken := m.users[newEmail]; taken {
			return ErrUserExists
		}
		delete(m.users, email)
		m.users[newEmail] = u
	}
	u.Name, u.Email, u.Password, u.Age = name, newEmail, password, age
	return nil
}

func (m *MemDB) DeleteUser(ctx context.Context, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[email]; !ok {
		return ErrUserNotFound
	}
	delete(m.users, email)
	return nil
}

func (m *MemDB) IncrementPoints(ctx context.Context, email string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[email]
	if !ok {
		return 0, ErrUserNotFound
	}
	u.Points++
	return u.Points, nil
}

func (m *MemDB) TopScorer(ctx context.Context) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var top *User
	for _, u := range m.users {
		if top == nil || u.Points > top.Points {
			top = u
		}
	}
	if top == nil {
		return nil, nil
	}
	cp := *top
	return &cp, nil
}

func (m *MemDB) AveragePoints(ctx context.Context) (float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.users) == 0 {
		return 0, nil
	}
	var sum int64
	for _, u := range m.users {
		sum += u.Points
	}
	return float64(sum) / float64(len(m.users)), nil
}

func (m *MemDB) Revoke(ctx context.Context, token string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.revoked[token]; ok {
		return nil
	}
	m.revoked[token] = &RevokedToken{Token: token, ExpiresAt: expiresAt, CreatedAt: time.Now()}
	return nil
}

func (m *MemDB) IsRevoked(ctx context.Context, token string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.revoked[token]
	return ok, nil
}

func (m *MemDB) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for tok, rec := range m.revoked {
		if now.After(rec.ExpiresAt) {
			delete(m.revoked, tok)
			n++
		}
	}
	return n, nil
}

// SQLite DB
type SQLiteDB struct {
	db   *sql.DB
	path string
}

func NewSQLiteDB(path string) (*SQLiteDB, error) {
	d, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	s := &SQLiteDB{db: d, path: path}
	if err := s.Init(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteDB) Init() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS users (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT, email TEXT UNIQUE, password TEXT, age INTEGER, points INTEGER DEFAULT 0, created_at TEXT);`,
		`CREATE TABLE IF NOT EXISTS revoked_tokens (token TEXT PRIMARY KEY, expires_at INTEGER, created_at TEXT);`,
	}
	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteDB) CreateUser(ctx context.Context, name, email, password string, age int) (*User, error) {
	res, err := s.db.ExecContext(ctx, `INSERT INTO users(name,email,password,age,created_at) VALUES(?,?,?,?,datetime('now'))`, name, email, password, age)
	if err != nil {
		return nil, err
	}
	id, _ := res.LastInsertId()
	return &User{ID: id, Name: name, Email: email, Password: password, Age: age}, nil
}

func (s *SQLiteDB) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id,name,email,password,age,points,created_at FROM users WHERE email = ?`, email)
	return scanUser(row)
}

func (s *SQLiteDB) ListUsers(ctx context.Context) ([]*User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id,name,email,password,age,points,created_at FROM users ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanUsers(rows)
}

func (s *SQLiteDB) UpdateUser(ctx context.Context, email, name, newEmail, password string, age int) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET name = ?, email = ?, password = ?, age = ? WHERE email = ?`, name, newEmail, password, age, email)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (s *SQLiteDB) DeleteUser(ctx context.Context, email string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE email = ?`, email)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (s *SQLiteDB) IncrementPoints(ctx context.Context, email string) (int64, error) {
	var points int64
	err := s.db.QueryRowContext(ctx, `UPDATE users SET points = points + 1 WHERE email = ? RETURNING points`, email).Scan(&points)
	if err == sql.ErrNoRows {
		return 0, ErrUserNotFound
	}
	return points, err
}

func (s *SQLiteDB) TopScorer(ctx context.Context) (*User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id,name,email,password,age,points,created_at FROM users ORDER BY points DESC LIMIT 1`)
	return scanUser(row)
}

func (s *SQLiteDB) AveragePoints(ctx context.Context) (float64, error) {
	var avg float64
	err := s.db.QueryRowContext(ctx, `SELECT COALESCE(AVG(points), 0) FROM users`).Scan(&avg)
	return avg, err
}

func (s *SQLiteDB) Revoke(ctx context.Context, token string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO revoked_tokens(token,expires_at,created_at) VALUES(?,?,datetime('now'))`, token, expiresAt.Unix())
	return err
}

func (s *SQLiteDB) IsRevoked(ctx context.Context, token string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM revoked_tokens WHERE token = ?`, token).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *SQLiteDB) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM revoked_tokens WHERE expires_at < ?`, now.Unix())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (*User, error) {
	var u User
	var created string
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Password, &u.Age, &u.Points, &created); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func scanUsers(rows *sql.Rows) ([]*User, error) {
	var users []*User
	for rows.Next() {
		var u User
		var created string
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Password, &u.Age, &u.Points, &created); err != nil {
			return nil, err
		}
		users = append(users, &u)
	}
	return users, rows.Err()
}

// lifecycle helpers
func (m *MemDB) close() error { return nil }
func (m *MemDB) ping() bool   { return true }

func (s *SQLiteDB) close() error { return s.db.Close() }
func (s *SQLiteDB) ping() bool   { return s.db.Ping() == nil }
