package accounts

import "github.com/cleared-dev/balancebook/internal/model"

// DefaultChart returns the default chart of accounts for an entity type.
// All opening balances start at zero.
func DefaultChart(entityType string) []model.Account {
	switch entityType {
	case "sole_proprietor":
		return soleProprietorChart()
	case "llc_single_member":
		return llcSingleMemberChart()
	default:
		return llcSingleMemberChart()
	}
}

func llcSingleMemberChart() []model.Account {
	return []model.Account{
		{Code: "1000", Name: "Cash", Type: model.AccountTypeAsset, Active: true, Description: "Operating cash"},
		{Code: "1010", Name: "Business Checking", Type: model.AccountTypeAsset, ParentCode: "1000", Active: true, Description: "Primary checking account"},
		{Code: "1020", Name: "Business Savings", Type: model.AccountTypeAsset, ParentCode: "1000", Active: true, Description: "Savings account"},
		{Code: "1200", Name: "Accounts Receivable", Type: model.AccountTypeAsset, Active: true},
		{Code: "2010", Name: "Credit Card", Type: model.AccountTypeLiability, Active: true, Description: "Business credit card"},
		{Code: "2100", Name: "Accounts Payable", Type: model.AccountTypeLiability, Active: true},
		{Code: "3010", Name: "Owner's Equity", Type: model.AccountTypeEquity, Active: true, Description: "Owner's capital contributions"},
		{Code: "3020", Name: "Owner's Draw", Type: model.AccountTypeEquity, Active: true},
		{Code: "4010", Name: "Service Revenue", Type: model.AccountTypeIncome, Active: true},
		{Code: "4020", Name: "Product Revenue", Type: model.AccountTypeIncome, Active: true},
		{Code: "5010", Name: "Advertising & Marketing", Type: model.AccountTypeExpense, Active: true, Description: "Advertising costs"},
		{Code: "5020", Name: "Software & SaaS", Type: model.AccountTypeExpense, Active: true, Description: "Software subscriptions"},
		{Code: "5030", Name: "Office Supplies", Type: model.AccountTypeExpense, Active: true, Description: "Office supplies and expenses"},
		{Code: "5040", Name: "Professional Services", Type: model.AccountTypeExpense, Active: true, Description: "Legal, accounting, consulting"},
	}
}

func soleProprietorChart() []model.Account {
	return []model.Account{
		{Code: "1000", Name: "Cash", Type: model.AccountTypeAsset, Active: true},
		{Code: "2010", Name: "Credit Card", Type: model.AccountTypeLiability, Active: true},
		{Code: "3010", Name: "Owner's Capital", Type: model.AccountTypeEquity, Active: true},
		{Code: "4010", Name: "Sales", Type: model.AccountTypeIncome, Active: true},
		{Code: "5010", Name: "General Expenses", Type: model.AccountTypeExpense, Active: true},
	}
}
