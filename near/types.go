package near

import (
	"encoding/json"
	"fmt"
)

const (
	FinalityOptimistic = "optimistic"
	FinalityFinal      = "final"
)

// BlockReference selects the block a query runs against. Finality and BlockID
// are mutually exclusive.
type BlockReference struct {
	Finality string `json:"finality,omitempty"`
	BlockID  any    `json:"block_id,omitempty"`
}

func Final() BlockReference      { return BlockReference{Finality: FinalityFinal} }
func Optimistic() BlockReference { return BlockReference{Finality: FinalityOptimistic} }

func (r BlockReference) params() map[string]any {
	params := make(map[string]any)
	switch {
	case r.BlockID != nil:
		params["block_id"] = r.BlockID
	case r.Finality != "":
		params["finality"] = r.Finality
	default:
		params["finality"] = FinalityOptimistic
	}
	return params
}

type AccountView struct {
	Amount        string `json:"amount"`
	Locked        string `json:"locked"`
	CodeHash      string `json:"code_hash"`
	StorageUsage  uint64 `json:"storage_usage"`
	StoragePaidAt uint64 `json:"storage_paid_at"`
	BlockHeight   uint64 `json:"block_height"`
	BlockHash     string `json:"block_hash"`
}

type AccessKeyView struct {
	Nonce       uint64          `json:"nonce"`
	Permission  json.RawMessage `json:"permission"`
	BlockHeight uint64          `json:"block_height"`
	BlockHash   string          `json:"block_hash"`
}

// ByteArray decodes the JSON number arrays NEAR uses for raw call results.
type ByteArray []byte

func (b *ByteArray) UnmarshalJSON(data []byte) error {
	var values []int
	if err := json.Unmarshal(data, &values); err != nil {
		return err
	}
	out := make([]byte, len(values))
	for i, v := range values {
		if v < 0 || v > 255 {
			return fmt.Errorf("byte value %d out of range", v)
		}
		out[i] = byte(v)
	}
	*b = out
	return nil
}

func (b ByteArray) MarshalJSON() ([]byte, error) {
	values := make([]int, len(b))
	for i, v := range b {
		values[i] = int(v)
	}
	return json.Marshal(values)
}

type CallResult struct {
	Result      ByteArray `json:"result"`
	Logs        []string  `json:"logs"`
	BlockHeight uint64    `json:"block_height"`
	BlockHash   string    `json:"block_hash"`
}

type BlockHeader struct {
	Height    uint64 `json:"height"`
	Hash      string `json:"hash"`
	PrevHash  string `json:"prev_hash"`
	Timestamp uint64 `json:"timestamp"`
}

type BlockView struct {
	Author string      `json:"author"`
	Header BlockHeader `json:"header"`
}

type NodeStatus struct {
	ChainID  string `json:"chain_id"`
	SyncInfo struct {
		LatestBlockHash   string `json:"latest_block_hash"`
		LatestBlockHeight uint64 `json:"latest_block_height"`
		Syncing           bool   `json:"syncing"`
	} `json:"sync_info"`
	Version struct {
		Version string `json:"version"`
		Build   string `json:"build"`
	} `json:"version"`
}

type ProtocolConfigView struct {
	ProtocolVersion uint64 `json:"protocol_version"`
	RuntimeConfig   struct {
		StorageAmountPerByte string `json:"storage_amount_per_byte"`
	} `json:"runtime_config"`
}

type ExecutionOutcomeWithID struct {
	ID        string          `json:"id"`
	BlockHash string          `json:"block_hash,omitempty"`
	Outcome   json.RawMessage `json:"outcome"`
}

// FinalExecutionOutcome is the result of broadcast_tx_commit.
type FinalExecutionOutcome struct {
	Status             json.RawMessage          `json:"status"`
	Transaction        json.RawMessage          `json:"transaction"`
	TransactionOutcome ExecutionOutcomeWithID   `json:"transaction_outcome"`
	ReceiptsOutcome    []ExecutionOutcomeWithID `json:"receipts_outcome"`
}

func (o *FinalExecutionOutcome) statusFields() map[string]json.RawMessage {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(o.Status, &fields); err != nil {
		return nil
	}
	return fields
}

// Failure returns the failure payload when the transaction failed.
func (o *FinalExecutionOutcome) Failure() (json.RawMessage, bool) {
	raw, ok := o.statusFields()["Failure"]
	if !ok || string(raw) == "null" {
		return nil, false
	}
	return raw, true
}

// SuccessValue returns the base64 return value of a successful transaction.
func (o *FinalExecutionOutcome) SuccessValue() (string, bool) {
	raw, ok := o.statusFields()["SuccessValue"]
	if !ok {
		return "", false
	}
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return "", false
	}
	return value, true
}

// TransactionHash is the id of the transaction outcome.
func (o *FinalExecutionOutcome) TransactionHash() string {
	return o.TransactionOutcome.ID
}
