package bank

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/matryer/is"
)

func newTestStore(t *testing.T, now time.Time) *Store {
	t.Helper()

	s, err := Open(":memory:", Options{
		Logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
		Now:             func() time.Time { return now },
		SchemeCacheSize: 8,
		SchemeCacheTTL:  time.Minute,
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	if err := s.Reset(context.Background()); err != nil {
		t.Fatalf("reset: %v", err)
	}
	return s
}

var feb12 = time.Date(2025, 2, 12, 15, 30, 0, 0, time.UTC)

func TestAccountBalance(t *testing.T) {
	is := is.New(t)
	s := newTestStore(t, feb12)
	ctx := context.Background()

	all, err := s.AccountBalance(ctx, BalanceQuery{})
	is.NoErr(err)
	is.Equal(len(all), len(SampleCustomers))

	got, err := s.AccountBalance(ctx, BalanceQuery{CustomerName: "shivamani"})
	is.NoErr(err)
	is.Equal(len(got), 1)
	is.Equal(got[0].AccountNumber, "SBI-100000")
	is.Equal(got[0].BankName, "SBI")
	is.Equal(got[0].Currency, "INR")
	is.Equal(got[0].CurrentBalance, 25000.0-8128.0) // opening minus seven debits

	got, err = s.AccountBalance(ctx, BalanceQuery{AccountNumber: "HDFC-100001"})
	is.NoErr(err)
	is.Equal(len(got), 1)
	is.Equal(got[0].CustomerName, "Mani")
	is.Equal(got[0].CurrentBalance, 30000.0-8128.0)
}

func TestRecentTransactions(t *testing.T) {
	s := newTestStore(t, feb12)

	tests := []struct {
		name      string
		filter    TransactionFilter
		wantLen   int
		wantFirst string
	}{
		{"default limit", TransactionFilter{}, DefaultLastN, "Amazon"},
		{"one customer", TransactionFilter{CustomerName: "Shivamani"}, 7, "Amazon"},
		{"last n", TransactionFilter{CustomerName: "Shivamani", LastN: 2}, 2, "Amazon"},
		{"category", TransactionFilter{CustomerName: "Shivamani", Category: "electronics"}, 2, "Amazon"},
		{"merchant", TransactionFilter{Merchant: "Dominos"}, 6, "Dominos"},
		{"date range", TransactionFilter{CustomerName: "Razak", StartDate: "2024-12-01", EndDate: "2024-12-31"}, 2, "Flipkart"},
		{"no match", TransactionFilter{Category: "Cosmetic"}, 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			is := is.New(t)
			got, err := s.RecentTransactions(context.Background(), tt.filter)
			is.NoErr(err)
			is.Equal(len(got), tt.wantLen)
			if tt.wantLen > 0 {
				is.Equal(got[0].Merchant, tt.wantFirst)
			}
			for i := 1; i < len(got); i++ {
				is.True(got[i-1].Date >= got[i].Date) // newest first
			}
		})
	}
}

func TestRecentTransactions_InvalidDate(t *testing.T) {
	s := newTestStore(t, feb12)

	for _, f := range []TransactionFilter{
		{StartDate: "yesterday"},
		{EndDate: "2024-13-01"},
		{StartDate: "12/01/2024"},
	} {
		_, err := s.RecentTransactions(context.Background(), f)
		if !errors.Is(err, ErrInvalidDate) {
			t.Errorf("RecentTransactions(%+v) error = %v, want ErrInvalidDate", f, err)
		}
	}
}

func TestRecentTransactions_DebitsAreNegative(t *testing.T) {
	is := is.New(t)
	s := newTestStore(t, feb12)

	got, err := s.RecentTransactions(context.Background(), TransactionFilter{CustomerName: "Sai", LastN: 1})
	is.NoErr(err)
	is.Equal(len(got), 1)
	is.Equal(got[0].Amount, -1299.0)
	is.Equal(got[0].Type, "debit")
}

func TestSummarizeSpending(t *testing.T) {
	is := is.New(t)
	s := newTestStore(t, feb12)
	ctx := context.Background()

	sum, err := s.SummarizeSpending(ctx, SpendingQuery{CustomerName: "Shivamani"})
	is.NoErr(err)
	is.Equal(sum.Since, "2025-02-05")
	is.Equal(len(sum.Totals), 3)
	is.Equal(sum.Totals["Electronics"], 1299.0)
	is.Equal(sum.Totals["Food"], 450.0)
	is.Equal(sum.Totals["Shopping"], 3200.0)
	is.True(sum.Budget == nil)

	month, err := s.SummarizeSpending(ctx, SpendingQuery{TimePeriod: "last month"})
	is.NoErr(err)
	is.Equal(month.Since, "2025-01-13")
	is.Equal(month.Totals["Travel"], 6*80.0)
}

func TestSummarizeSpending_Budget(t *testing.T) {
	is := is.New(t)
	s := newTestStore(t, feb12)

	sum, err := s.SummarizeSpending(context.Background(), SpendingQuery{
		CustomerName: "Aparna",
		WithBudget:   true,
		Budgets:      map[string]float64{"Shopping": 1000},
	})
	is.NoErr(err)

	shopping := sum.Budget["Shopping"]
	is.Equal(shopping.Status, StatusOverBudget)
	is.Equal(*shopping.Budget, 1000.0)

	food := sum.Budget["Food"]
	is.Equal(food.Status, StatusWithinBudget)
	is.True(food.Budget == nil) // no limit
}

func TestCompareBudgets_Defaults(t *testing.T) {
	is := is.New(t)

	got := CompareBudgets(map[string]float64{"Food": 60000, "Travel": 100}, DefaultBudgets)
	is.Equal(got["Food"].Status, StatusOverBudget)
	is.Equal(got["Travel"].Status, StatusWithinBudget)
}

func TestPeriodDays(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"this week", 7},
		{"Last Week", 7},
		{"this month", 30},
		{"past MONTH", 30},
		{"today", 7},
		{"", 7},
	}
	for _, tt := range tests {
		if got := PeriodDays(tt.in); got != tt.want {
			t.Errorf("PeriodDays(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestDetectUnusualSpending(t *testing.T) {
	is := is.New(t)
	s := newTestStore(t, feb12)
	ctx := context.Background()

	// Window average is (1299+450+3200+80)/4, so only Myntra clears 1.5x.
	got, err := s.DetectUnusualSpending(ctx, UnusualQuery{})
	is.NoErr(err)
	is.Equal(len(got), len(SampleCustomers))
	for _, txn := range got {
		is.Equal(txn.Merchant, "Myntra")
	}

	threshold := 100.0
	got, err = s.DetectUnusualSpending(ctx, UnusualQuery{Threshold: &threshold, CustomerName: "Nandhu"})
	is.NoErr(err)
	is.Equal(len(got), 3)
}

func TestDetectUnusualSpending_EmptyWindow(t *testing.T) {
	is := is.New(t)
	s := newTestStore(t, time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC))

	got, err := s.DetectUnusualSpending(context.Background(), UnusualQuery{TimePeriod: "this week"})
	is.NoErr(err)
	is.Equal(len(got), 0)
}

func TestBankSchemes(t *testing.T) {
	is := is.New(t)
	s := newTestStore(t, feb12)
	ctx := context.Background()

	all, err := s.BankSchemes(ctx, "")
	is.NoErr(err)
	is.Equal(len(all), 4)

	hdfc, err := s.BankSchemes(ctx, " hdfc ")
	is.NoErr(err)
	is.Equal(len(hdfc), 2)
	is.Equal(hdfc[0].SchemeName, "HDFC SavingsMax Account")
	is.True(hdfc[0].InterestRate == nil)
	is.Equal(*hdfc[1].InterestRate, 7.00)
}

func TestBankSchemes_Cached(t *testing.T) {
	is := is.New(t)
	s := newTestStore(t, feb12)
	ctx := context.Background()

	first, err := s.BankSchemes(ctx, "SBI")
	is.NoErr(err)
	is.Equal(len(first), 2)

	_, err = s.DB().ExecContext(ctx, `DELETE FROM bank_schemes`)
	is.NoErr(err)

	cached, err := s.BankSchemes(ctx, "sbi")
	is.NoErr(err)
	is.Equal(len(cached), 2) // served from cache

	is.NoErr(s.Reset(ctx))
	fresh, err := s.BankSchemes(ctx, "sbi")
	is.NoErr(err)
	is.Equal(len(fresh), 2)
}

func TestResetIsRepeatable(t *testing.T) {
	is := is.New(t)
	s := newTestStore(t, feb12)
	ctx := context.Background()

	is.NoErr(s.Reset(ctx))

	var n int
	is.NoErr(s.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions`).Scan(&n))
	is.Equal(n, len(SampleCustomers)*len(sampleTxns))
}

func TestResetLedger(t *testing.T) {
	is := is.New(t)
	s := newTestStore(t, feb12)
	ctx := context.Background()

	is.NoErr(s.ResetLedger(ctx))
	is.NoErr(s.ResetLedger(ctx))

	var (
		n     int
		total float64
	)
	is.NoErr(s.DB().QueryRowContext(ctx, `SELECT COUNT(*), SUM(transaction_amount) FROM `+ledgerTable+` WHERE user_name = ?`, "Mani").Scan(&n, &total))
	is.Equal(n, len(sampleTxns))
	is.Equal(total, 8128.0) // ledger amounts are positive

	// The normalized schema is untouched.
	got, err := s.AccountBalance(ctx, BalanceQuery{})
	is.NoErr(err)
	is.Equal(len(got), len(SampleCustomers))
}

func TestSampleAccounts(t *testing.T) {
	is := is.New(t)
	is.Equal(SampleAccountNumber(0), "SBI-100000")
	is.Equal(SampleAccountNumber(5), "HDFC-100005")
	is.Equal(SampleOpeningBalance(2), 35000.0)
}
