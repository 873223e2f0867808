// Package migrations holds the Go-coded schema migrations for the bookings
// database and the registry the runner reads them from.
package migrations

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/ridoystarlord/bookingsdb/generator"
	"github.com/ridoystarlord/bookingsdb/schema"
)

// Executor is anything that can run a statement: *sql.DB, *sql.Conn or *sql.Tx.
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// Migration is an immutable, named pair of forward and backward change lists.
// ID must sort in application order; timestamp tokens are used for that.
type Migration struct {
	ID   string
	Name string
	Up   []schema.Change
	Down []schema.Change
}

// FullName is the identifier recorded in the tracking table.
func (m Migration) FullName() string {
	return m.ID + "_" + m.Name
}

// Apply executes the forward statements in order. The first failing statement
// aborts the call and its error is returned as the driver produced it;
// statements already executed are not undone here.
func (m Migration) Apply(ctx context.Context, ex Executor) error {
	return m.exec(ctx, ex, m.Up)
}

// Revert executes the backward statements in order, with the same failure
// behavior as Apply.
func (m Migration) Revert(ctx context.Context, ex Executor) error {
	return m.exec(ctx, ex, m.Down)
}

func (m Migration) exec(ctx context.Context, ex Executor, changes []schema.Change) error {
	stmts, err := generator.Statements(changes)
	if err != nil {
		return fmt.Errorf("migration %s: %w", m.FullName(), err)
	}
	for _, stmt := range stmts {
		if _, err := ex.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// Statements renders the SQL for one direction.
func (m Migration) Statements(dir Direction) ([]string, error) {
	switch dir {
	case Up:
		return generator.Statements(m.Up)
	case Down:
		return generator.Statements(m.Down)
	default:
		return nil, fmt.Errorf("unknown direction %q", dir)
	}
}

// Checksum hashes the rendered up and down SQL.
func (m Migration) Checksum() (string, error) {
	up, err := m.Statements(Up)
	if err != nil {
		return "", err
	}
	down, err := m.Statements(Down)
	if err != nil {
		return "", err
	}
	content := strings.Join(up, ";\n") + "\n--\n" + strings.Join(down, ";\n")
	return fmt.Sprintf("%x", sha256.Sum256([]byte(content))), nil
}

// Tables lists the tables touched by the forward changes.
func (m Migration) Tables() []string {
	return schema.Tables(m.Up)
}

var (
	mu       sync.RWMutex
	registry = map[string]Migration{}
)

// Register adds m to the default registry. It panics on a duplicate ID, which
// can only happen through a programming error in an init function.
func Register(m Migration) {
	mu.Lock()
	defer mu.Unlock()
	if _, ok := registry[m.ID]; ok {
		panic(fmt.Sprintf("migrations: duplicate migration id %s", m.ID))
	}
	registry[m.ID] = m
}

// All returns every registered migration sorted by ID.
func All() []Migration {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]Migration, 0, len(registry))
	for _, m := range registry {
		out = append(out, m)
	}
	Sort(out)
	return out
}

// Find looks up a migration by ID or full name.
func Find(key string) (Migration, bool) {
	mu.RLock()
	defer mu.RUnlock()
	if m, ok := registry[key]; ok {
		return m, true
	}
	for _, m := range registry {
		if m.FullName() == key {
			return m, true
		}
	}
	return Migration{}, false
}

// Sort orders migrations by ID. IDs of different lengths compare numerically
// by length first so "999" sorts before "1000".
func Sort(ms []Migration) {
	sort.Slice(ms, func(i, j int) bool {
		a, b := ms[i].ID, ms[j].ID
		if len(a) != len(b) {
			return len(a) < len(b)
		}
		return a < b
	})
}
