package clients

import (
	"encoding/json"
	"time"

	"github.com/hivepay/hivepay/types"
	"github.com/hivepay/hivepay/utils"
)

// Hive nodes render timestamps without a zone suffix.
const hiveTimeLayout = "2006-01-02T15:04:05"

// transferPayload is the op_data body of a transfer operation.
type transferPayload struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount string `json:"amount"`
	Memo   string `json:"memo"`
}

// historyEntry is the object-shaped account history record.
type historyEntry struct {
	Op        []json.RawMessage `json:"op"`
	TrxID     string            `json:"trx_id"`
	Timestamp string            `json:"timestamp"`
}

// flatOutput is the explorer-style record with the amount under "value"
// and the destination under "address".
type flatOutput struct {
	Address   string `json:"address"`
	Value     string `json:"value"`
	Memo      string `json:"memo"`
	From      string `json:"from"`
	TxID      string `json:"txid"`
	Timestamp string `json:"timestamp"`
}

// NormalizeTransfer maps one raw provider record into the canonical
// TransferRecord. It recognizes three shapes:
//
//	(a) positional tuple  [index, [opName, opData], trxId]
//	(b) history object    {"op": [opName, opData], "trx_id": ..., "timestamp": ...}
//	(c) explorer output   {"address": ..., "value": ..., "memo": ...}
//
// Records that are not transfer operations, lack a destination or
// amount, or whose amount string does not split into magnitude and
// symbol are filtered out by returning nil. Nothing here ever panics on
// malformed provider data.
func NormalizeTransfer(raw RawRecord) *types.TransferRecord {
	if rec := normalizeTuple(raw); rec != nil {
		return rec
	}
	if rec := normalizeHistoryObject(raw); rec != nil {
		return rec
	}
	return normalizeFlatOutput(raw)
}

// NormalizeAll filters a raw batch down to the canonical transfers it
// contains, preserving provider order.
func NormalizeAll(raws []RawRecord) []types.TransferRecord {
	out := make([]types.TransferRecord, 0, len(raws))
	for _, raw := range raws {
		if rec := NormalizeTransfer(raw); rec != nil {
			out = append(out, *rec)
		}
	}
	return out
}

func normalizeTuple(raw RawRecord) *types.TransferRecord {
	var tuple []json.RawMessage
	if err := json.Unmarshal(raw, &tuple); err != nil || len(tuple) < 2 {
		return nil
	}

	var op []json.RawMessage
	if err := json.Unmarshal(tuple[1], &op); err != nil {
		return nil
	}

	trxID := ""
	if len(tuple) >= 3 {
		_ = json.Unmarshal(tuple[2], &trxID)
	}

	return buildFromOp(op, trxID, "")
}

func normalizeHistoryObject(raw RawRecord) *types.TransferRecord {
	var entry historyEntry
	if err := json.Unmarshal(raw, &entry); err != nil || entry.Op == nil {
		return nil
	}
	return buildFromOp(entry.Op, entry.TrxID, entry.Timestamp)
}

func buildFromOp(op []json.RawMessage, trxID, timestamp string) *types.TransferRecord {
	if len(op) < 2 {
		return nil
	}

	var opName string
	if err := json.Unmarshal(op[0], &opName); err != nil || opName != "transfer" {
		return nil
	}

	var data transferPayload
	if err := json.Unmarshal(op[1], &data); err != nil {
		return nil
	}
	if data.To == "" || data.Amount == "" {
		return nil
	}

	amount, currency, ok := utils.ParseAmountString(data.Amount)
	if !ok {
		return nil
	}

	return &types.TransferRecord{
		From:      data.From,
		To:        data.To,
		Amount:    amount,
		Currency:  currency,
		Memo:      data.Memo,
		TxRef:     trxID,
		Timestamp: parseTimestamp(timestamp),
	}
}

func normalizeFlatOutput(raw RawRecord) *types.TransferRecord {
	var out flatOutput
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	if out.Address == "" || out.Value == "" {
		return nil
	}

	amount, currency, ok := utils.ParseAmountString(out.Value)
	if !ok {
		return nil
	}

	return &types.TransferRecord{
		From:      out.From,
		To:        out.Address,
		Amount:    amount,
		Currency:  currency,
		Memo:      out.Memo,
		TxRef:     out.TxID,
		Timestamp: parseTimestamp(out.Timestamp),
	}
}

func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(hiveTimeLayout, s); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	return time.Time{}
}
