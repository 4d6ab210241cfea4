package swap

import (
	"encoding/json"
	"fmt"
)

// Quote is a route chosen by the aggregator. The raw route document is kept
// verbatim so it can be handed back to the aggregator unmodified.
type Quote struct {
	raw  json.RawMessage
	meta quoteMeta
}

type quoteMeta struct {
	InputMint            string      `json:"inputMint"`
	OutputMint           string      `json:"outputMint"`
	InAmount             json.Number `json:"inAmount"`
	OutAmount            json.Number `json:"outAmount"`
	OtherAmountThreshold json.Number `json:"otherAmountThreshold"`
	SwapMode             string      `json:"swapMode"`
	SlippageBps          int         `json:"slippageBps"`
}

// ParseQuote wraps a raw route document, which must be a JSON object. Metadata fields the aggregator omits stay empty.
func ParseQuote(raw []byte) (*Quote, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("route is not a json object: %w", err)
	}
	if fields == nil {
		return nil, fmt.Errorf("route is null")
	}
	q := &Quote{raw: append(json.RawMessage(nil), raw...)}
	if err := json.Unmarshal(raw, &q.meta); err != nil {
		return nil, fmt.Errorf("decode route: %w", err)
	}
	return q, nil
}

func (q *Quote) InputMint() string            { return q.meta.InputMint }
func (q *Quote) OutputMint() string           { return q.meta.OutputMint }
func (q *Quote) InAmount() string             { return q.meta.InAmount.String() }
func (q *Quote) OutAmount() string            { return q.meta.OutAmount.String() }
func (q *Quote) OtherAmountThreshold() string { return q.meta.OtherAmountThreshold.String() }
func (q *Quote) SwapMode() string             { return q.meta.SwapMode }
func (q *Quote) SlippageBps() int             { return q.meta.SlippageBps }

// Raw returns a copy of the route document.
func (q *Quote) Raw() json.RawMessage { return append(json.RawMessage(nil), q.raw...) }

// MarshalJSON emits the route exactly as the aggregator returned it.
func (q *Quote) MarshalJSON() ([]byte, error) {
	if q == nil || len(q.raw) == 0 {
		return []byte("null"), nil
	}
	return q.Raw(), nil
}
