package types

import "time"

// TransitionEvent records one lifecycle transition of a TxRecord. One
// event is appended per transition; forwarding failures never roll the
// transition back.
type TransitionEvent struct {
	TxID            TxID          `json:"tx_id"`
	HandlerSelector Selector      `json:"handler_selector"`
	Status          TxStatus      `json:"status"`
	Requester       Address       `json:"requester"`
	Target          Address       `json:"target"`
	OperationType   OperationType `json:"operation_type"`
	Timestamp       time.Time     `json:"timestamp"`
}
