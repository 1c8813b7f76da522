package bank

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
)

// SampleCustomers are the demo customers created by Reset.
var SampleCustomers = []string{"Shivamani", "Mani", "Razak", "Nandhu", "Sai", "Aparna"}

// SampleBanks are assigned to customers round-robin.
var SampleBanks = []string{"SBI", "HDFC"}

type sampleTxn struct {
	merchant string
	amount   float64
	date     string
	category string
}

var sampleTxns = []sampleTxn{
	{"Amazon", 1299.0, "2025-02-10", "Electronics"},
	{"Swiggy", 450.0, "2025-02-08", "Food"},
	{"Myntra", 3200.0, "2025-02-05", "Shopping"},
	{"Rapido", 80.0, "2025-02-02", "Travel"},
	{"Flipkart", 999.0, "2024-12-20", "Electronics"},
	{"Dominos", 600.0, "2024-12-18", "Restaurant"},
	{"Reliance Trends", 1500.0, "2024-11-28", "Clothing"},
}

func rate(v float64) *float64 { return &v }

var sampleSchemes = []Scheme{
	{
		BankName:     "SBI",
		SchemeName:   "SBI Green Term Deposit",
		Description:  "Fixed deposit scheme encouraging investment in environmentally friendly projects.",
		InterestRate: rate(7.10),
		MinAmount:    10000.0,
	},
	{
		BankName:     "SBI",
		SchemeName:   "SBI Senior Citizen Savings",
		Description:  "Higher interest rate term deposit for senior citizens.",
		InterestRate: rate(7.50),
		MinAmount:    5000.0,
	},
	{
		BankName:    "HDFC",
		SchemeName:  "HDFC SavingsMax Account",
		Description: "Premium savings account with free insurance and offers.",
		MinAmount:   10000.0,
	},
	{
		BankName:     "HDFC",
		SchemeName:   "HDFC Fixed Deposit – Regular",
		Description:  "Standard fixed deposit product with flexible tenures.",
		InterestRate: rate(7.00),
		MinAmount:    5000.0,
	},
}

// SampleAccountNumber is the account number Reset assigns to the i-th sample customer.
func SampleAccountNumber(i int) string {
	bank := SampleBanks[i%len(SampleBanks)]
	return fmt.Sprintf("%s-%d", strings.ToUpper(bank), 100000+i)
}

// SampleOpeningBalance is the opening balance Reset assigns to the i-th sample customer.
func SampleOpeningBalance(i int) float64 {
	return 25000.0 + float64(i)*5000.0
}

// Reset drops and recreates the banking schema and loads the sample
// customers, accounts, transactions and schemes.
func (s *Store) Reset(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reset: %w", err)
	}
	defer tx.Rollback()

	s.logger.Info("Dropping old tables if they exist")
	for _, q := range dropStatements {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("drop: %w", err)
		}
	}

	s.logger.Info("Creating banking schema")
	for _, q := range createStatements {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create: %w", err)
		}
	}

	s.logger.Info("Inserting customers and accounts", slog.Int("customers", len(SampleCustomers)))
	var accountIDs []int64
	for i, name := range SampleCustomers {
		res, err := tx.ExecContext(ctx, `INSERT INTO customers (name) VALUES (?)`, name)
		if err != nil {
			return fmt.Errorf("insert customer %s: %w", name, err)
		}
		customerID, err := res.LastInsertId()
		if err != nil {
			return err
		}

		res, err = tx.ExecContext(ctx, `
			INSERT INTO accounts (customer_id, bank_name, account_number, account_type, opening_balance, currency)
			VALUES (?, ?, ?, 'savings', ?, 'INR')`,
			customerID, SampleBanks[i%len(SampleBanks)], SampleAccountNumber(i), SampleOpeningBalance(i))
		if err != nil {
			return fmt.Errorf("insert account for %s: %w", name, err)
		}
		accountID, err := res.LastInsertId()
		if err != nil {
			return err
		}
		accountIDs = append(accountIDs, accountID)
	}

	s.logger.Info("Inserting sample transactions")
	if err := insertSampleTransactions(ctx, tx, accountIDs); err != nil {
		return err
	}

	s.logger.Info("Inserting bank schemes", slog.Int("schemes", len(sampleSchemes)))
	for _, sc := range sampleSchemes {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO bank_schemes (bank_name, scheme_name, description, interest_rate, min_amount, currency)
			VALUES (?, ?, ?, ?, ?, 'INR')`,
			sc.BankName, sc.SchemeName, sc.Description, sc.InterestRate, sc.MinAmount); err != nil {
			return fmt.Errorf("insert scheme %s: %w", sc.SchemeName, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit reset: %w", err)
	}
	s.purgeCache()
	s.logger.Info("Banking database ready")
	return nil
}

func insertSampleTransactions(ctx context.Context, tx *sql.Tx, accountIDs []int64) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO transactions (account_id, txn_date, amount, txn_type, merchant_name, category)
		VALUES (?, ?, ?, 'debit', ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare transactions: %w", err)
	}
	defer stmt.Close()

	for _, id := range accountIDs {
		for _, t := range sampleTxns {
			if _, err := stmt.ExecContext(ctx, id, t.date, -t.amount, t.merchant, t.category); err != nil {
				return fmt.Errorf("insert transaction: %w", err)
			}
		}
	}
	return nil
}

// ResetLedger drops and recreates the flat transaction ledger and loads the
// same sample purchases for every sample customer.
func (s *Store) ResetLedger(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin ledger reset: %w", err)
	}
	defer tx.Rollback()

	s.logger.Info("Recreating transaction ledger", slog.String("table", ledgerTable))
	for _, q := range ledgerStatements {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ledger schema: %w", err)
		}
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO `+ledgerTable+` (user_name, transaction_amount, date, merchant_name, category)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare ledger insert: %w", err)
	}
	defer stmt.Close()

	for _, t := range sampleTxns {
		for _, user := range SampleCustomers {
			if _, err := stmt.ExecContext(ctx, user, t.amount, t.date, t.merchant, t.category); err != nil {
				return fmt.Errorf("insert ledger row: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit ledger reset: %w", err)
	}
	s.logger.Info("Transaction ledger reset", slog.Int("rows", len(sampleTxns)*len(SampleCustomers)))
	return nil
}
