//go:build unit || e2e

package dbtest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"redemption-guard/internal/domain/redemption"
	"redemption-guard/internal/pkg/geo"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

func CreateTestVoucher(t *testing.T, db DBLike, name string, limits redemption.Limits) uuid.UUID {
	t.Helper()

	voucherID := uuid.New()
	_, err := db.Exec(context.Background(),
		`INSERT INTO vouchers (id, name, max_redemptions, max_redemptions_per_user, valid_from, valid_to)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		voucherID, name, limits.MaxRedemptions, limits.MaxRedemptionsPerUser, limits.ValidFrom, limits.ValidTo)
	require.NoError(t, err)

	return voucherID
}

// CreateTestProvider registers a provider; a nil location leaves lat/lng NULL.
func CreateTestProvider(t *testing.T, db DBLike, name string, location *geo.Point) uuid.UUID {
	t.Helper()

	providerID := uuid.New()
	var lat, lng *float64
	if location != nil {
		lat, lng = &location.Lat, &location.Lng
	}
	_, err := db.Exec(context.Background(),
		"INSERT INTO providers (id, name, lat, lng) VALUES ($1, $2, $3, $4)",
		providerID, name, lat, lng)
	require.NoError(t, err)

	return providerID
}

// CountRedemptions returns the stored ledger rows and the voucher counter.
func CountRedemptions(t *testing.T, db DBLike, voucherID uuid.UUID) (rows, counter int) {
	t.Helper()

	ctx := context.Background()
	require.NoError(t, db.QueryRow(ctx, "SELECT count(*) FROM redemptions WHERE voucher_id = $1", voucherID).Scan(&rows))
	err := db.QueryRow(ctx, "SELECT COALESCE((SELECT count FROM voucher_redemption_counters WHERE voucher_id = $1), 0)", voucherID).Scan(&counter)
	require.NoError(t, err)
	return rows, counter
}

var (
	buildTruncateOnce sync.Once
	truncateSQL       atomic.Value // string
)

// truncates all tables
func ResetDB(pool *pgxpool.Pool) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	buildTruncateOnce.Do(func() {
		rows, err := pool.Query(ctx, `
		  SELECT 'public.' || quote_ident(tablename)
		  FROM pg_tables
		  WHERE schemaname = 'public'
		    AND tablename NOT IN ('schema_migrations')`)
		if err != nil {
			truncateSQL.Store("")
			return
		}
		defer rows.Close()
		var tables []string
		for rows.Next() {
			var t string
			if err := rows.Scan(&t); err != nil {
				truncateSQL.Store("")
				return
			}
			tables = append(tables, t)
		}
		if rows.Err() != nil {
			truncateSQL.Store("")
			return
		}
		if len(tables) == 0 {
			truncateSQL.Store("SELECT 1")
			return
		}
		truncateSQL.Store("TRUNCATE " + strings.Join(tables, ", ") + " RESTART IDENTITY CASCADE;")
	})
	sqlAny := truncateSQL.Load()
	if sqlAny == nil || sqlAny.(string) == "" {
		return fmt.Errorf("failed to build TRUNCATE SQL")
	}
	_, err := pool.Exec(ctx, sqlAny.(string))
	return err
}
