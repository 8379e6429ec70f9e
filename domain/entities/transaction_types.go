package entities

// TransactionType represents the type of balance change
type TransactionType string

const (
	// Draw pool transactions
	TransactionTypeSharePurchase TransactionType = "share_purchase"
	TransactionTypeRoundRefund   TransactionType = "round_refund"

	// System transactions
	TransactionTypeInitial TransactionType = "initial"
	TransactionTypeDeposit TransactionType = "deposit"
)

// IsDebit returns true if the transaction type removes funds
func (tt TransactionType) IsDebit() bool {
	return tt == TransactionTypeSharePurchase
}

// IsSystemGenerated returns true if the transaction type is system-generated
func (tt TransactionType) IsSystemGenerated() bool {
	return tt == TransactionTypeInitial || tt == TransactionTypeRoundRefund
}

// String returns the string representation of the transaction type
func (tt TransactionType) String() string {
	return string(tt)
}
