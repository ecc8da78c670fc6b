package constants

// Redis keys
const (
	RedisKeyRecentSwaps = "dex:swaps:recent"
)

// Redis Pub/Sub channels
const (
	PubSubChannelSwaps   = "dex:swaps:live"
	PubSubChannelMetrics = "dex:metrics:live"
)

// Limits
const (
	MaxRecentSwaps    = 100
	ArchiveBatchLimit = 500
)

// Basis-point scale shared by fee and slippage arithmetic.
const BpsDenominator = 10000
