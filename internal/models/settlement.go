package models

// Settlement is a transfer that would clear balances within a group.
// Settlements are computed by the server; the client only reads them.
type Settlement struct {
	// FromUserID is the member who owes (debtor).
	FromUserID string `json:"fromUserId"`

	// ToUserID is the member who is owed (creditor).
	ToUserID string `json:"toUserId"`

	// Amount is the transfer amount.
	Amount Money `json:"amount"`
}

// GroupBalance is a counterparty's balance within a single group.
type GroupBalance struct {
	GroupID   string `json:"groupId"`
	GroupName string `json:"groupName"`
	Balance   Money  `json:"balance"`
}

// FriendBalance is the net position between the current user and one
// counterparty across every shared group.
//
// Positive NetBalance means the counterparty owes the current user; negative
// means the current user owes the counterparty. NetBalance always equals the
// sum of Groups[].Balance.
type FriendBalance struct {
	CounterpartyUserID string         `json:"counterpartyUserId"`
	Name               string         `json:"name"`
	NetBalance         Money          `json:"netBalance"`
	Groups             []GroupBalance `json:"groups"`
}

// GroupSettlementStatus summarizes a user's position in one group according
// to the server's optimized settlements.
type GroupSettlementStatus struct {
	GroupID    string `json:"groupId"`
	IsSettled  bool   `json:"isSettled"`
	NetBalance Money  `json:"netBalance"`
}
