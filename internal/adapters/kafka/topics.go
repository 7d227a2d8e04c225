package kafka

// Topic definitions for Kafka event streaming
const (
	// Regime events
	TopicRegimeChange = "market.regime_change"

	// Data quality events
	TopicDataGap = "market.data_gaps"
)
