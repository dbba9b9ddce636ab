package pilot

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/skyguard/fleet-backend/internal/db"
	"github.com/skyguard/fleet-backend/internal/errs"
)

func createTestRegistry(t *testing.T) *Registry {
	t.Helper()
	opts := db.DefaultOptions()
	opts.LogLevel = "silent"
	gdb, err := db.Open("sqlite:"+filepath.Join(t.TempDir(), "fleet.db"), opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close(gdb) })

	r := NewRegistry(gdb, 5*time.Second)
	require.NoError(t, r.Migrate(context.Background()))
	return r
}

func aigerim() Registration {
	return Registration{
		FirstName:   "Aigerim",
		LastName:    "Nurlanovna",
		PhoneNumber: "+77001234567",
		Email:       "aigerim.nurlanovna@example.com",
	}
}

func TestRegister_IdempotentByEmail(t *testing.T) {
	r := createTestRegistry(t)
	ctx := context.Background()

	id1, created, err := r.Register(ctx, aigerim())
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, uuid.Nil, id1)

	again := aigerim()
	again.FirstName = "Someone"
	again.Email = "  Aigerim.Nurlanovna@EXAMPLE.com "
	id2, created, err := r.Register(ctx, again)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, id1, id2)

	all, err := r.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Aigerim", all[0].FirstName, "existing record is untouched")
	assert.Equal(t, "aigerim.nurlanovna@example.com", all[0].Email)
}

func TestRegister_Concurrent(t *testing.T) {
	r := createTestRegistry(t)
	const callers = 12

	var wg sync.WaitGroup
	ids := make(chan uuid.UUID, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, _, err := r.Register(context.Background(), aigerim())
			assert.NoError(t, err)
			ids <- id
		}()
	}
	wg.Wait()
	close(ids)

	var first uuid.UUID
	for id := range ids {
		if first == uuid.Nil {
			first = id
		}
		assert.Equal(t, first, id)
	}
	all, err := r.ListAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestRegister_Validation(t *testing.T) {
	r := createTestRegistry(t)

	tests := map[string]func(*Registration){
		"empty first name":  func(in *Registration) { in.FirstName = " " },
		"empty last name":   func(in *Registration) { in.LastName = "" },
		"empty phone":       func(in *Registration) { in.PhoneNumber = "" },
		"empty email":       func(in *Registration) { in.Email = "" },
		"no at sign":        func(in *Registration) { in.Email = "aigerim.example.com" },
		"no domain dot":     func(in *Registration) { in.Email = "aigerim@localhost" },
		"display name form": func(in *Registration) { in.Email = "Aigerim <a@example.com>" },
		"long first name":   func(in *Registration) { in.FirstName = strings.Repeat("a", 51) },
		"long phone number": func(in *Registration) { in.PhoneNumber = strings.Repeat("7", 21) },
		"trailing dot":      func(in *Registration) { in.Email = "a@example." },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			in := aigerim()
			mutate(&in)
			_, _, err := r.Register(context.Background(), in)
			assert.True(t, errs.IsValidation(err), "got %v", err)
		})
	}
}

func TestListAll_OrdinalOrder(t *testing.T) {
	r := createTestRegistry(t)
	ctx := context.Background()

	for _, p := range []Registration{
		{"bolat", "Abenov", "+77000000001", "bolat@example.com"},
		{"Bolat", "Serikov", "+77000000002", "bolat.serikov@example.com"},
		{"Bolat", "Abenov", "+77000000003", "bolat.abenov@example.com"},
		{"Aruzhan", "Zhaksylykova", "+77000000004", "aruzhan@example.com"},
	} {
		_, _, err := r.Register(ctx, p)
		require.NoError(t, err)
	}

	all, err := r.ListAll(ctx)
	require.NoError(t, err)
	var names []string
	for _, p := range all {
		names = append(names, p.FullName())
	}
	assert.Equal(t, []string{"Aruzhan Zhaksylykova", "Bolat Abenov", "Bolat Serikov", "bolat Abenov"}, names)
}

func TestListAll_OrdersInQuery(t *testing.T) {
	r := createTestRegistry(t)
	var queries []string
	require.NoError(t, r.db.Callback().Query().After("gorm:query").Register("test:record_sql", func(tx *gorm.DB) {
		queries = append(queries, tx.Statement.SQL.String())
	}))

	_, err := r.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, queries, 1)
	assert.Contains(t, queries[0], "ORDER BY first_name, last_name")
}

func TestListAll_Empty(t *testing.T) {
	r := createTestRegistry(t)
	all, err := r.ListAll(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, all)
	assert.Empty(t, all)
}

func TestGetByID(t *testing.T) {
	r := createTestRegistry(t)
	ctx := context.Background()

	id, _, err := r.Register(ctx, aigerim())
	require.NoError(t, err)

	p, err := r.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Nurlanovna", p.LastName)
	assert.Equal(t, Summary{ID: id, FirstName: "Aigerim", LastName: "Nurlanovna", PhoneNumber: "+77001234567"}, p.Summary())

	_, err = r.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "pilot@example.com", NormalizeEmail("  Pilot@Example.COM\t"))
}
