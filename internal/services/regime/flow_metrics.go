package regime

import (
	"math"

	"github.com/yekaipow/Hyper-Alpha-Arena2/internal/domain/market_data"
)

// FlowMetrics carries normalized order-flow readings plus the raw notionals
// they were derived from
type FlowMetrics struct {
	CVDRatio      float64 // CVD / total taker notional
	TakerLogRatio float64 // ln(buy / sell), 0 when either side is empty
	OIDelta       float64 // percent change, 0 when unknown
	TakerBuy      float64
	TakerSell     float64
	TotalNotional float64
}

// CalculateFlowMetrics normalizes windowed flow readings. Division hazards
// (zero notional, one-sided tape) produce 0, never NaN or infinity.
func CalculateFlowMetrics(flow *market_data.FlowIndicators) FlowMetrics {
	m := FlowMetrics{}

	if flow.Taker != nil {
		m.TakerBuy = flow.Taker.Buy
		m.TakerSell = flow.Taker.Sell
		m.TotalNotional = m.TakerBuy + m.TakerSell
	}

	if flow.CVD != nil && m.TotalNotional > 0 {
		m.CVDRatio = flow.CVD.Current / m.TotalNotional
	}

	if m.TakerBuy > 0 && m.TakerSell > 0 {
		m.TakerLogRatio = math.Log(m.TakerBuy / m.TakerSell)
	}

	if flow.OIDelta != nil {
		m.OIDelta = flow.OIDelta.Current
	}

	return m
}
