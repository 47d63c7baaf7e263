package domain

// RecordStatistics summarises one owner's settled arbitrage results.
type RecordStatistics struct {
	TotalCount      int     `json:"total_count"`
	TotalProfit     float64 `json:"total_profit"`
	TotalInvestment float64 `json:"total_investment"`
	TotalReturnRate float64 `json:"total_return_rate"`
	ProfitableCount int     `json:"profitable_count"`
	LossCount       int     `json:"loss_count"`
	WinRate         float64 `json:"win_rate"`
	AvgProfitRate   float64 `json:"avg_profit_rate"`
	InProgressCount int     `json:"in_progress_count"`
}

// OwnerStatistics is the per-owner row of the admin report.
type OwnerStatistics struct {
	TotalRecords int     `json:"total_records"`
	Completed    int     `json:"completed"`
	InProgress   int     `json:"in_progress"`
	Cancelled    int     `json:"cancelled"`
	Pending      int     `json:"pending"`
	TotalProfit  float64 `json:"total_profit"`
	TotalAmount  float64 `json:"total_amount"`
	ProfitRate   float64 `json:"profit_rate"`
}

// AdminStatistics aggregates records across every owner.
type AdminStatistics struct {
	TotalRecords      int                        `json:"total_records"`
	TotalCompleted    int                        `json:"total_completed"`
	TotalInProgress   int                        `json:"total_in_progress"`
	TotalCancelled    int                        `json:"total_cancelled"`
	TotalPending      int                        `json:"total_pending"`
	TotalProfit       float64                    `json:"total_profit"`
	TotalAmount       float64                    `json:"total_amount"`
	OverallProfitRate float64                    `json:"overall_profit_rate"`
	Owners            map[string]OwnerStatistics `json:"user_statistics"`
}
