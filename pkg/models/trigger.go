package models

import "encoding/json"

const lamportsPerSol = 1_000_000_000

// NormalizeTriggerPayload flattens the first transaction of a blockchain
// watch payload into top-level fields (signature, slot, blockTime, amount,
// from, to) so downstream nodes can reference them with short dot-paths.
// Payloads without a transactions array pass through unchanged.
func NormalizeTriggerPayload(payload map[string]any) map[string]any {
	if payload == nil {
		return map[string]any{}
	}

	transactions, ok := payload["transactions"].([]any)
	if !ok || len(transactions) == 0 {
		return payload
	}

	tx, ok := transactions[0].(map[string]any)
	if !ok {
		return payload
	}

	out := make(map[string]any, len(payload)+6)
	for k, v := range payload {
		out[k] = v
	}

	if sig := transactionSignature(tx); sig != "" {
		out["signature"] = sig
	}

	if slot, ok := tx["slot"]; ok {
		out["slot"] = slot
	}

	if blockTime, ok := tx["blockTime"]; ok {
		out["blockTime"] = blockTime
	}

	out["amount"] = extractAmount(tx)
	out["from"] = extractFromAddress(tx)
	out["to"] = extractToAddress(tx)

	return out
}

func transactionSignature(tx map[string]any) string {
	if sig, ok := tx["signature"].(string); ok && sig != "" {
		return sig
	}

	inner, _ := tx["transaction"].(map[string]any)

	signatures, _ := inner["signatures"].([]any)
	if len(signatures) > 0 {
		if sig, ok := signatures[0].(string); ok {
			return sig
		}
	}

	return ""
}

// extractAmount reads the SOL amount from either the raw (pre/post balances)
// or the enhanced (nativeTransfers) Helius webhook format.
func extractAmount(tx map[string]any) float64 {
	if meta, ok := tx["meta"].(map[string]any); ok {
		pre, preOK := meta["preBalances"].([]any)
		post, postOK := meta["postBalances"].([]any)

		if preOK && postOK && len(pre) > 0 && len(post) > 0 {
			change := asFloat(post[0]) - asFloat(pre[0])
			if change < 0 {
				change = -change
			}

			return change / lamportsPerSol
		}
	}

	if transfer := firstNativeTransfer(tx); transfer != nil {
		return asFloat(transfer["amount"]) / lamportsPerSol
	}

	return 0
}

func extractFromAddress(tx map[string]any) string {
	if transfer := firstNativeTransfer(tx); transfer != nil {
		from, _ := transfer["fromUserAccount"].(string)

		return from
	}

	return accountKeyAt(tx, 0)
}

func extractToAddress(tx map[string]any) string {
	if transfer := firstNativeTransfer(tx); transfer != nil {
		to, _ := transfer["toUserAccount"].(string)

		return to
	}

	return accountKeyAt(tx, 1)
}

func firstNativeTransfer(tx map[string]any) map[string]any {
	transfers, ok := tx["nativeTransfers"].([]any)
	if !ok || len(transfers) == 0 {
		return nil
	}

	transfer, _ := transfers[0].(map[string]any)

	return transfer
}

func accountKeyAt(tx map[string]any, index int) string {
	inner, _ := tx["transaction"].(map[string]any)

	message, _ := inner["message"].(map[string]any)

	keys, _ := message["accountKeys"].([]any)
	if index >= len(keys) {
		return ""
	}

	key, _ := keys[index].(string)

	return key
}

func asFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case json.Number:
		f, _ := n.Float64()

		return f
	default:
		return 0
	}
}
