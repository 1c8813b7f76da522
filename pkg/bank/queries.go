package bank

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// whereClause accumulates AND-ed conditions and their arguments.
type whereClause struct {
	conds []string
	args  []any
}

func (w *whereClause) add(cond string, arg any) {
	w.conds = append(w.conds, cond)
	w.args = append(w.args, arg)
}

func (w *whereClause) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

// AccountBalance returns current balances for the accounts matching q.
func (s *Store) AccountBalance(ctx context.Context, q BalanceQuery) ([]Balance, error) {
	var w whereClause
	if q.CustomerName != "" {
		w.add("customer_name = ? COLLATE NOCASE", q.CustomerName)
	}
	if q.AccountNumber != "" {
		w.add("account_number = ? COLLATE NOCASE", q.AccountNumber)
	}

	query := `SELECT customer_name, bank_name, account_number, account_type, currency, current_balance
		FROM account_balances` + w.String() + ` ORDER BY account_id`
	s.logger.Debug("Querying account balances", slog.String("query", query), slog.Any("params", w.args))

	rows, err := s.db.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("account balance: %w", err)
	}
	defer rows.Close()

	var out []Balance
	for rows.Next() {
		var b Balance
		if err := rows.Scan(&b.CustomerName, &b.BankName, &b.AccountNumber, &b.AccountType, &b.Currency, &b.CurrentBalance); err != nil {
			return nil, fmt.Errorf("scan balance: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

const transactionColumns = `SELECT c.name, a.account_number, t.txn_date, t.amount, t.txn_type,
		IFNULL(t.merchant_name, ''), IFNULL(t.category, '')
	FROM transactions t
	JOIN accounts a ON a.id = t.account_id
	JOIN customers c ON c.id = a.customer_id`

// ErrInvalidDate is returned for filter dates not in YYYY-MM-DD form.
var ErrInvalidDate = errors.New("date must be YYYY-MM-DD")

// RecentTransactions lists transactions matching f, newest first.
func (s *Store) RecentTransactions(ctx context.Context, f TransactionFilter) ([]Transaction, error) {
	for _, d := range []string{f.StartDate, f.EndDate} {
		if d == "" {
			continue
		}
		if _, err := ParseDate(d); err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidDate, d)
		}
	}

	var w whereClause
	if f.StartDate != "" {
		w.add("t.txn_date >= ?", f.StartDate)
	}
	if f.EndDate != "" {
		w.add("t.txn_date <= ?", f.EndDate)
	}
	if f.Category != "" {
		w.add("t.category = ? COLLATE NOCASE", f.Category)
	}
	if f.Merchant != "" {
		w.add("t.merchant_name = ? COLLATE NOCASE", f.Merchant)
	}
	if f.CustomerName != "" {
		w.add("c.name = ? COLLATE NOCASE", f.CustomerName)
	}
	limit := f.LastN
	if limit <= 0 {
		limit = DefaultLastN
	}

	query := transactionColumns + w.String() + ` ORDER BY t.txn_date DESC, t.id DESC LIMIT ?`
	args := append(w.args, limit)
	s.logger.Debug("Querying recent transactions", slog.String("query", query), slog.Any("params", args))

	out, err := s.queryTransactions(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("recent transactions: %w", err)
	}
	s.logger.Debug("Recent transactions returned", slog.Int("rows", len(out)))
	return out, nil
}

func (s *Store) queryTransactions(ctx context.Context, query string, args ...any) ([]Transaction, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(&t.CustomerName, &t.AccountNumber, &t.Date, &t.Amount, &t.Type, &t.Merchant, &t.Category); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// SummarizeSpending totals debits per category since the start of
// q.TimePeriod and, when asked, compares each total with its budget.
func (s *Store) SummarizeSpending(ctx context.Context, q SpendingQuery) (SpendingSummary, error) {
	period := q.TimePeriod
	if period == "" {
		period = "this week"
	}
	since := s.since(PeriodDays(period))

	w := whereClause{}
	w.add("t.txn_type = ?", "debit")
	w.add("t.txn_date >= ?", since)
	if q.CustomerName != "" {
		w.add("c.name = ? COLLATE NOCASE", q.CustomerName)
	}

	query := `SELECT IFNULL(t.category, 'Uncategorized'), SUM(ABS(t.amount))
		FROM transactions t
		JOIN accounts a ON a.id = t.account_id
		JOIN customers c ON c.id = a.customer_id` + w.String() + `
		GROUP BY 1 ORDER BY 1`
	s.logger.Debug("Summarizing spending", slog.String("query", query), slog.Any("params", w.args))

	rows, err := s.db.QueryContext(ctx, query, w.args...)
	if err != nil {
		return SpendingSummary{}, fmt.Errorf("summarize spending: %w", err)
	}
	defer rows.Close()

	summary := SpendingSummary{Since: since, Totals: map[string]float64{}}
	for rows.Next() {
		var (
			category string
			spent    float64
		)
		if err := rows.Scan(&category, &spent); err != nil {
			return SpendingSummary{}, fmt.Errorf("scan spending: %w", err)
		}
		summary.Totals[category] = spent
	}
	if err := rows.Err(); err != nil {
		return SpendingSummary{}, fmt.Errorf("summarize spending: %w", err)
	}

	if q.WithBudget {
		budgets := q.Budgets
		if budgets == nil {
			budgets = DefaultBudgets
		}
		summary.Budget = CompareBudgets(summary.Totals, budgets)
	}
	return summary, nil
}

// CompareBudgets reports each category's status against budgets. Categories
// without a budget have no limit and are always within budget.
func CompareBudgets(totals, budgets map[string]float64) map[string]BudgetStatus {
	out := make(map[string]BudgetStatus, len(totals))
	for category, spent := range totals {
		st := BudgetStatus{Spent: spent, Status: StatusWithinBudget}
		if limit, ok := budgets[category]; ok {
			st.Budget = &limit
			if spent > limit {
				st.Status = StatusOverBudget
			}
		}
		out[category] = st
	}
	return out
}

// DetectUnusualSpending returns debits in the last UnusualWindowDays whose
// size exceeds the threshold. The default threshold is UnusualMultiplier
// times the average debit in the window; an empty window yields nothing.
func (s *Store) DetectUnusualSpending(ctx context.Context, q UnusualQuery) ([]Transaction, error) {
	since := s.since(UnusualWindowDays)

	w := whereClause{}
	w.add("t.txn_type = ?", "debit")
	w.add("t.txn_date >= ?", since)
	if q.CustomerName != "" {
		w.add("c.name = ? COLLATE NOCASE", q.CustomerName)
	}

	avgQuery := `SELECT AVG(ABS(t.amount))
		FROM transactions t
		JOIN accounts a ON a.id = t.account_id
		JOIN customers c ON c.id = a.customer_id` + w.String()
	s.logger.Debug("Averaging spend", slog.String("query", avgQuery), slog.Any("params", w.args))

	var avg sql.NullFloat64
	if err := s.db.QueryRowContext(ctx, avgQuery, w.args...).Scan(&avg); err != nil {
		return nil, fmt.Errorf("average spend: %w", err)
	}
	if !avg.Valid || avg.Float64 == 0 {
		s.logger.Debug("No transactions in window", slog.String("since", since))
		return nil, nil
	}

	threshold := avg.Float64 * UnusualMultiplier
	if q.Threshold != nil {
		threshold = *q.Threshold
	}

	w.add("ABS(t.amount) > ?", threshold)
	query := transactionColumns + w.String() + ` ORDER BY t.txn_date DESC, t.id DESC`
	s.logger.Debug("Finding unusual spending", slog.String("query", query), slog.Any("params", w.args))

	out, err := s.queryTransactions(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("unusual spending: %w", err)
	}
	s.logger.Debug("Unusual transactions found", slog.Int("rows", len(out)), slog.Float64("threshold", threshold))
	return out, nil
}

// BankSchemes lists schemes, optionally restricted to one bank (matched
// case-insensitively). Results are cached when the store has a cache.
func (s *Store) BankSchemes(ctx context.Context, bankName string) ([]Scheme, error) {
	key := strings.ToLower(strings.TrimSpace(bankName))
	if s.schemes != nil {
		if cached, ok := s.schemes.Get(key); ok {
			return cached, nil
		}
	}

	var w whereClause
	if key != "" {
		w.add("bank_name = ? COLLATE NOCASE", key)
	}
	query := `SELECT bank_name, scheme_name, IFNULL(description, ''), interest_rate, IFNULL(min_amount, 0), currency
		FROM bank_schemes` + w.String() + ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("bank schemes: %w", err)
	}
	defer rows.Close()

	var out []Scheme
	for rows.Next() {
		var (
			sc   Scheme
			rate sql.NullFloat64
		)
		if err := rows.Scan(&sc.BankName, &sc.SchemeName, &sc.Description, &rate, &sc.MinAmount, &sc.Currency); err != nil {
			return nil, fmt.Errorf("scan scheme: %w", err)
		}
		if rate.Valid {
			r := rate.Float64
			sc.InterestRate = &r
		}
		out = append(out, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("bank schemes: %w", err)
	}

	if s.schemes != nil {
		s.schemes.Add(key, out)
	}
	return out, nil
}
