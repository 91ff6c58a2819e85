package core

import "encoding/json"

// ReplyType tags the inbound reply union.
type ReplyType string

const (
	ReplyAuth  ReplyType = "auth"
	ReplyTx    ReplyType = "tx"
	ReplyError ReplyType = "error"
)

// Reply is the wire shape delivered by the signer application, either through
// the window message channel or through a fallback feed entry.
type Reply struct {
	Type      ReplyType `json:"type"`
	OK        bool      `json:"ok"`
	Address   string    `json:"address,omitempty"`
	Signature string    `json:"signature,omitempty"`
	Message   string    `json:"message,omitempty"`
	Nonce     string    `json:"nonce,omitempty"`
	ChainID   uint64    `json:"chainId,omitempty"`
	TxHash    string    `json:"txHash,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// DecodeReply parses a raw payload into a Reply. A payload without a known
// type tag is not a protocol reply and is reported as malformed.
func DecodeReply(raw []byte) (*Reply, error) {
	var r Reply
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, ErrMalformedReply
	}
	switch r.Type {
	case ReplyAuth, ReplyTx, ReplyError:
		return &r, nil
	}
	return nil, ErrMalformedReply
}

// Matches reports whether the reply's type satisfies the method's family.
// Error replies match every method: they always settle the exchange.
func (r *Reply) Matches(m Method) bool {
	switch r.Type {
	case ReplyError:
		return true
	case ReplyAuth:
		return m.SignInFamily()
	case ReplyTx:
		return m.TransactionFamily()
	}
	return false
}
