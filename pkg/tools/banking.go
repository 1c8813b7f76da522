package tools

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/finvox/finvox-go/pkg/bank"
)

// Banking tool names.
const (
	AccountBalanceTool     = "get_account_balance"
	RecentTransactionsTool = "get_recent_transactions"
	SummarizeSpendingTool  = "summarize_spending"
	UnusualSpendingTool    = "detect_unusual_spending"
	BankSchemesTool        = "get_bank_schemes"
)

const datePattern = `^[0-9]{4}-[0-9]{2}-[0-9]{2}$`

// Banking returns the banking tools backed by store. A failing query is
// logged and answered with an empty result so the agent can carry on.
func Banking(store *bank.Store, logger *slog.Logger) []Tool {
	if logger == nil {
		logger = slog.Default()
	}
	b := &bankingTools{store: store, logger: logger}

	return []Tool{
		{
			Name:        AccountBalanceTool,
			Description: "Get the current balance of customer bank accounts. Filter by customer name or account number.",
			Parameters: `{
				"type": "object",
				"properties": {
					"customer_name": {"type": "string", "description": "Account holder name"},
					"account_number": {"type": "string", "description": "Account number such as SBI-100000"}
				},
				"additionalProperties": false
			}`,
			Handler: b.accountBalance,
		},
		{
			Name:        RecentTransactionsTool,
			Description: "List recent transactions, newest first. Dates are YYYY-MM-DD and inclusive.",
			Parameters: `{
				"type": "object",
				"properties": {
					"start_date": {"type": "string", "pattern": "` + datePattern + `"},
					"end_date": {"type": "string", "pattern": "` + datePattern + `"},
					"category": {"type": "string"},
					"merchant": {"type": "string"},
					"customer_name": {"type": "string"},
					"last_n": {"type": "integer", "minimum": 1, "default": 10}
				},
				"additionalProperties": false
			}`,
			Handler: b.recentTransactions,
		},
		{
			Name:        SummarizeSpendingTool,
			Description: "Total spending per category for a period such as 'this week' or 'this month', optionally compared with budgets.",
			Parameters: `{
				"type": "object",
				"properties": {
					"time_period": {"type": "string", "default": "this week"},
					"return_budget_status": {"type": "boolean", "default": false},
					"budget_limits": {
						"type": "object",
						"additionalProperties": {"type": "number", "minimum": 0}
					},
					"customer_name": {"type": "string"}
				},
				"additionalProperties": false
			}`,
			Handler: b.summarizeSpending,
		},
		{
			Name:        UnusualSpendingTool,
			Description: "Find transactions in the last 30 days that are much larger than usual. The default threshold is 1.5 times the average.",
			Parameters: `{
				"type": "object",
				"properties": {
					"threshold": {"type": "number", "minimum": 0},
					"time_period": {"type": "string", "default": "last month"},
					"customer_name": {"type": "string"}
				},
				"additionalProperties": false
			}`,
			Handler: b.unusualSpending,
		},
		{
			Name:        BankSchemesTool,
			Description: "List savings and deposit schemes offered by banks, optionally for one bank such as SBI or HDFC.",
			Parameters: `{
				"type": "object",
				"properties": {
					"bank_name": {"type": "string"}
				},
				"additionalProperties": false
			}`,
			Handler: b.bankSchemes,
		},
	}
}

type bankingTools struct {
	store  *bank.Store
	logger *slog.Logger
}

func (b *bankingTools) failed(tool string, err error) {
	b.logger.Error("Banking query failed", slog.String("tool", tool), slog.String("error", err.Error()))
}

func (b *bankingTools) accountBalance(ctx context.Context, raw json.RawMessage) (any, error) {
	var args struct {
		CustomerName  string `json:"customer_name"`
		AccountNumber string `json:"account_number"`
	}
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, err
	}

	out, err := b.store.AccountBalance(ctx, bank.BalanceQuery{
		CustomerName:  args.CustomerName,
		AccountNumber: args.AccountNumber,
	})
	if err != nil {
		b.failed(AccountBalanceTool, err)
		return []bank.Balance{}, nil
	}
	return nonNil(out), nil
}

func (b *bankingTools) recentTransactions(ctx context.Context, raw json.RawMessage) (any, error) {
	var args struct {
		StartDate    string `json:"start_date"`
		EndDate      string `json:"end_date"`
		Category     string `json:"category"`
		Merchant     string `json:"merchant"`
		CustomerName string `json:"customer_name"`
		LastN        int    `json:"last_n"`
	}
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, err
	}

	out, err := b.store.RecentTransactions(ctx, bank.TransactionFilter{
		StartDate:    args.StartDate,
		EndDate:      args.EndDate,
		Category:     args.Category,
		Merchant:     args.Merchant,
		CustomerName: args.CustomerName,
		LastN:        args.LastN,
	})
	if err != nil {
		b.failed(RecentTransactionsTool, err)
		return []bank.Transaction{}, nil
	}
	return nonNil(out), nil
}

// summarizeSpending answers with category totals, or with per-category
// budget status when return_budget_status is set.
func (b *bankingTools) summarizeSpending(ctx context.Context, raw json.RawMessage) (any, error) {
	var args struct {
		TimePeriod   string             `json:"time_period"`
		WithBudget   bool               `json:"return_budget_status"`
		Budgets      map[string]float64 `json:"budget_limits"`
		CustomerName string             `json:"customer_name"`
	}
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, err
	}

	sum, err := b.store.SummarizeSpending(ctx, bank.SpendingQuery{
		TimePeriod:   args.TimePeriod,
		CustomerName: args.CustomerName,
		WithBudget:   args.WithBudget,
		Budgets:      args.Budgets,
	})
	if err != nil {
		b.failed(SummarizeSpendingTool, err)
		return map[string]any{}, nil
	}
	if args.WithBudget {
		return sum.Budget, nil
	}
	return sum.Totals, nil
}

func (b *bankingTools) unusualSpending(ctx context.Context, raw json.RawMessage) (any, error) {
	var args struct {
		Threshold    *float64 `json:"threshold"`
		TimePeriod   string   `json:"time_period"`
		CustomerName string   `json:"customer_name"`
	}
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, err
	}

	out, err := b.store.DetectUnusualSpending(ctx, bank.UnusualQuery{
		Threshold:    args.Threshold,
		TimePeriod:   args.TimePeriod,
		CustomerName: args.CustomerName,
	})
	if err != nil {
		b.failed(UnusualSpendingTool, err)
		return []bank.Transaction{}, nil
	}
	return nonNil(out), nil
}

func (b *bankingTools) bankSchemes(ctx context.Context, raw json.RawMessage) (any, error) {
	var args struct {
		BankName string `json:"bank_name"`
	}
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, err
	}

	out, err := b.store.BankSchemes(ctx, args.BankName)
	if err != nil {
		b.failed(BankSchemesTool, err)
		return []bank.Scheme{}, nil
	}
	return nonNil(out), nil
}

// nonNil keeps empty results encoding as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
