package ledger

import (
	"fmt"
	"math/big"
	"strings"
)

// Event names as emitted by the pool contract and understood by the
// ledger gateway's dex_getEvents method.
const (
	EventSwap             = "Swap"
	EventLiquidityAdded   = "LiquidityAdded"
	EventLiquidityRemoved = "LiquidityRemoved"
)

// LatestBlock is the sentinel accepted for the toBlock parameter.
const LatestBlock = "latest"

// rpcRequest is the JSON-RPC 2.0 request envelope.
type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
}

// rpcResponse is the JSON-RPC 2.0 response envelope. Result stays raw so
// each call site can unmarshal into its own shape.
type rpcResponse struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      int       `json:"id"`
	Result  rawResult `json:"result"`
	Error   *rpcError `json:"error"`
}

type rawResult []byte

func (r *rawResult) UnmarshalJSON(data []byte) error {
	*r = append((*r)[:0], data...)
	return nil
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// LogRecord is one raw event log as returned by the gateway. Quantities in
// Args are 0x-prefixed hex strings; addresses and hashes are plain hex.
type LogRecord struct {
	Event       string            `json:"event"`
	Address     string            `json:"address"`
	Args        map[string]string `json:"args"`
	BlockNumber uint64            `json:"blockNumber"`
	LogIndex    uint32            `json:"logIndex"`
	TxHash      string            `json:"txHash"`
}

// BlockHeader carries the fields of dex_getBlock this service reads.
type BlockHeader struct {
	Number    uint64 `json:"number"`
	Timestamp uint64 `json:"timestamp"`
}

// reservesResult mirrors the dex_getReserves response.
type reservesResult struct {
	ReserveA       string `json:"reserveA"`
	ReserveB       string `json:"reserveB"`
	TotalLiquidity string `json:"totalLiquidity"`
}

// userLiquidityResult mirrors the dex_getUserLiquidity response.
type userLiquidityResult struct {
	Amount        string `json:"amount"`
	ShareBasisPts uint32 `json:"shareBasisPoints"`
}

// parseQuantity decodes a 0x-prefixed hex quantity, falling back to a
// plain decimal string for gateways that serve unprefixed numbers.
func parseQuantity(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty quantity")
	}

	base := 10
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		s = s[2:]
		base = 16
	}
	v, ok := new(big.Int).SetString(s, base)
	if !ok {
		return nil, fmt.Errorf("malformed quantity %q", s)
	}
	if v.Sign() < 0 {
		return nil, fmt.Errorf("negative quantity %q", s)
	}
	return v, nil
}
