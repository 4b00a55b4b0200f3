package relay

type InstantiateMsg struct {
	QueryDenom string `json:"query_denom"`
}

type ExecuteMsg struct {
	Start *Start `json:"start,omitempty"`
}

type Start struct {
	Contract2Addr string `json:"contract2_addr"`
	QueryAddress  string `json:"query_address"`
}

type QueryMsg struct {
	BalanceInfo *struct{} `json:"balance_info,omitempty"`
}

type BalanceInfoResponse struct {
	Balance string `json:"balance"`
}

// ReporterInstantiateMsg carries no settings.
type ReporterInstantiateMsg struct{}

type ReporterExecuteMsg struct {
	TriggerFlow *TriggerFlow `json:"trigger_flow,omitempty"`
}

type TriggerFlow struct {
	QueryAddress string `json:"query_address"`
	QueryDenom   string `json:"query_denom"`
}
