package bank

var dropStatements = []string{
	`DROP VIEW IF EXISTS account_balances;`,
	`DROP TABLE IF EXISTS bank_schemes;`,
	`DROP TABLE IF EXISTS transactions;`,
	`DROP TABLE IF EXISTS accounts;`,
	`DROP TABLE IF EXISTS customers;`,
}

var createStatements = []string{
	`CREATE TABLE customers (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE
	);`,
	`CREATE TABLE accounts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		customer_id INTEGER NOT NULL,
		bank_name TEXT NOT NULL,
		account_number TEXT NOT NULL UNIQUE,
		account_type TEXT NOT NULL DEFAULT 'savings',
		opening_balance REAL NOT NULL DEFAULT 0.0,
		currency TEXT NOT NULL DEFAULT 'INR',
		created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (customer_id) REFERENCES customers(id) ON DELETE CASCADE
	);`,
	// amount is positive for credits and negative for debits.
	`CREATE TABLE transactions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		account_id INTEGER NOT NULL,
		txn_date TEXT NOT NULL,
		amount REAL NOT NULL,
		txn_type TEXT NOT NULL CHECK (txn_type IN ('debit', 'credit')),
		merchant_name TEXT,
		category TEXT,
		FOREIGN KEY (account_id) REFERENCES accounts(id) ON DELETE CASCADE
	);`,
	`CREATE INDEX idx_transactions_date ON transactions(txn_date);`,
	// interest_rate is a percentage, e.g. 7.10 for 7.10%.
	`CREATE TABLE bank_schemes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		bank_name TEXT NOT NULL,
		scheme_name TEXT NOT NULL,
		description TEXT,
		interest_rate REAL,
		min_amount REAL,
		currency TEXT NOT NULL DEFAULT 'INR'
	);`,
	`CREATE VIEW account_balances AS
	SELECT
		a.id AS account_id,
		c.name AS customer_name,
		a.bank_name,
		a.account_number,
		a.account_type,
		a.currency,
		a.opening_balance + IFNULL(SUM(t.amount), 0) AS current_balance
	FROM accounts a
	JOIN customers c ON c.id = a.customer_id
	LEFT JOIN transactions t ON t.account_id = a.id
	GROUP BY a.id;`,
}

// ledgerTable is the flat single-table transaction log used by early
// deployments. It shares the database file with the normalized schema.
const ledgerTable = "transaction_ledger"

var ledgerStatements = []string{
	`DROP TABLE IF EXISTS ` + ledgerTable + `;`,
	`CREATE TABLE ` + ledgerTable + ` (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_name TEXT,
		transaction_amount REAL,
		date TEXT,
		merchant_name TEXT,
		category TEXT
	);`,
}
