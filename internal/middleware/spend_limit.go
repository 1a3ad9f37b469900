package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gigvault/backend/internal/models"
)

const ctxBudgetKey contextKey = "parsed_budget"

// parsedBudget is stored in context so the handler can read the budget
// without re-parsing the body.
type parsedBudget struct {
	BudgetCents int64 `json:"budget_cents"`
}

// BudgetFromCtx returns the budget parsed by SpendLimit, or 0 if not set.
func BudgetFromCtx(ctx context.Context) int64 {
	if b, ok := ctx.Value(ctxBudgetKey).(*parsedBudget); ok {
		return b.BudgetCents
	}
	return 0
}

// SpendLimit validates per-project and daily spend limits for the
// account set by JWTAuth. Reads the body to extract "budget_cents",
// then replaces r.Body so downstream handlers can re-read it.
func SpendLimit(pool *pgxpool.Pool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			acc := AccountFromCtx(r.Context())
			if acc == nil {
				http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
				return
			}

			bodyBytes, err := io.ReadAll(r.Body)
			r.Body.Close()
			if err != nil {
				http.Error(w, `{"error":"failed to read body"}`, http.StatusBadRequest)
				return
			}
			// Restore body for the handler.
			r.Body = io.NopCloser(bytes.NewReader(bodyBytes))

			var peek parsedBudget
			if err := json.Unmarshal(bodyBytes, &peek); err != nil {
				http.Error(w, `{"error":"invalid JSON body"}`, http.StatusBadRequest)
				return
			}
			if peek.BudgetCents <= 0 {
				http.Error(w, `{"error":"budget_cents must be > 0"}`, http.StatusBadRequest)
				return
			}

			if acc.MaxPerProject != nil && peek.BudgetCents > *acc.MaxPerProject {
				http.Error(w, fmt.Sprintf(`{"error":"budget %d exceeds per-project limit %d"}`, peek.BudgetCents, *acc.MaxPerProject), http.StatusForbidden)
				return
			}

			if acc.MaxPerDay != nil {
				spent, err := dailySpendFn(r.Context(), pool, acc.ID)
				if err != nil {
					http.Error(w, `{"error":"failed to check daily spend"}`, http.StatusInternalServerError)
					return
				}
				if spent+peek.BudgetCents > *acc.MaxPerDay {
					http.Error(w, fmt.Sprintf(`{"error":"daily spend %d + budget %d exceeds daily limit %d"}`, spent, peek.BudgetCents, *acc.MaxPerDay), http.StatusForbidden)
					return
				}
			}

			ctx := context.WithValue(r.Context(), ctxBudgetKey, &peek)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// dailySpendFn is the function used to compute today's spend.
// Tests can replace this to avoid hitting a real database.
var dailySpendFn = defaultDailySpend

// defaultDailySpend sums project escrow debits for the account today (UTC).
func defaultDailySpend(ctx context.Context, pool *pgxpool.Pool, accountID uuid.UUID) (int64, error) {
	var total int64
	err := pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(-amount_cents), 0)
		FROM transactions
		WHERE account_id = $1 AND category = $2 AND amount_cents < 0
		  AND created_at >= CURRENT_DATE
	`, accountID, models.TxProjectCreation).Scan(&total)
	return total, err
}
