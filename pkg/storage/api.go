package storage

// ApiStore defines the read and registration operations the API may reach directly.
// Every balance mutation goes through DepositStore or SettlementStore instead.
type ApiStore interface {
	UserStore
	SessionReader
	LedgerReader
}
