package bank

// Balance is one account's current position.
type Balance struct {
	CustomerName   string  `json:"customer_name"`
	BankName       string  `json:"bank_name"`
	AccountNumber  string  `json:"account_number"`
	AccountType    string  `json:"account_type"`
	Currency       string  `json:"currency"`
	CurrentBalance float64 `json:"current_balance"`
}

// Transaction is a single account movement. Amount is negative for debits.
type Transaction struct {
	CustomerName  string  `json:"customer_name"`
	AccountNumber string  `json:"account_number"`
	Date          string  `json:"date"`
	Amount        float64 `json:"amount"`
	Type          string  `json:"txn_type"`
	Merchant      string  `json:"merchant_name"`
	Category      string  `json:"category"`
}

// Scheme is a savings or deposit product offered by a bank.
type Scheme struct {
	BankName     string   `json:"bank_name"`
	SchemeName   string   `json:"scheme_name"`
	Description  string   `json:"description"`
	InterestRate *float64 `json:"interest_rate"`
	MinAmount    float64  `json:"min_amount"`
	Currency     string   `json:"currency"`
}

// BudgetStatus compares a category's spend with its budget. A nil Budget
// means the category has no limit.
type BudgetStatus struct {
	Spent  float64  `json:"spent"`
	Budget *float64 `json:"budget"`
	Status string   `json:"status"`
}

const (
	StatusOverBudget   = "over budget"
	StatusWithinBudget = "within budget"
)

// SpendingSummary holds per-category spend since a start date.
type SpendingSummary struct {
	Since  string                  `json:"since"`
	Totals map[string]float64      `json:"totals"`
	Budget map[string]BudgetStatus `json:"budget_status,omitempty"`
}

// DefaultBudgets are the monthly category limits used when the caller does
// not supply its own.
var DefaultBudgets = map[string]float64{
	"Cosmetic":    20000,
	"Travel":      100000,
	"Clothing":    300000,
	"Electronics": 150000,
	"Food":        50000,
	"Restaurant":  60000,
	"Shopping":    120000,
}

// BalanceQuery selects accounts. Empty fields match everything.
type BalanceQuery struct {
	CustomerName  string
	AccountNumber string
}

// TransactionFilter narrows RecentTransactions. Dates are inclusive.
type TransactionFilter struct {
	StartDate    string
	EndDate      string
	Category     string
	Merchant     string
	CustomerName string
	LastN        int
}

// DefaultLastN is the number of transactions returned when LastN is unset.
const DefaultLastN = 10

type SpendingQuery struct {
	TimePeriod   string
	CustomerName string
	WithBudget   bool
	Budgets      map[string]float64
}

type UnusualQuery struct {
	// Threshold overrides the default of UnusualMultiplier times the window average.
	Threshold    *float64
	TimePeriod   string
	CustomerName string
}

// UnusualMultiplier scales the window average into the default threshold.
const UnusualMultiplier = 1.5
