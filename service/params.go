package service

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/wrenlabs/popsign/core"
	"github.com/wrenlabs/popsign/internal/eth"
)

var validate = validator.New()

// Transaction is the normalized transaction payload transmitted to the
// signer: hex gas limits converted to numeric form, amounts in decimal wei.
type Transaction struct {
	From     string `json:"from" validate:"required,eth_addr"`
	To       string `json:"to,omitempty" validate:"omitempty,eth_addr"`
	Value    string `json:"value,omitempty"`
	Gas      uint64 `json:"gas,omitempty"`
	GasPrice string `json:"gasPrice,omitempty"`
	Data     string `json:"data,omitempty" validate:"omitempty,hexadecimal"`
	Nonce    string `json:"nonce,omitempty"`
}

// rawTransaction is the loosely typed object callers hand in.
type rawTransaction struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Value    string `json:"value"`
	Gas      string `json:"gas"`
	GasPrice string `json:"gasPrice"`
	Data     string `json:"data"`
	Nonce    string `json:"nonce"`
}

// normalizeTransaction validates the transaction object shape and converts
// hex-encoded fields to their canonical forms.
func normalizeTransaction(param any) (*Transaction, error) {
	raw, err := json.Marshal(param)
	if err != nil {
		return nil, core.NewProviderError(core.CodeInvalidParams, "transaction must be an object")
	}
	var in rawTransaction
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, core.NewProviderError(core.CodeInvalidParams, "transaction must be an object")
	}

	tx := &Transaction{
		From:  in.From,
		To:    in.To,
		Data:  in.Data,
		Nonce: in.Nonce,
	}

	if in.Gas != "" {
		gas, err := parseQuantity(in.Gas)
		if err != nil {
			return nil, core.NewProviderError(core.CodeInvalidParams, fmt.Sprintf("invalid gas: %v", err))
		}
		tx.Gas = gas
	}
	if in.Value != "" {
		value, err := parseWei(in.Value)
		if err != nil {
			return nil, core.NewProviderError(core.CodeInvalidParams, fmt.Sprintf("invalid value: %v", err))
		}
		tx.Value = value.String()
	}
	if in.GasPrice != "" {
		price, err := parseWei(in.GasPrice)
		if err != nil {
			return nil, core.NewProviderError(core.CodeInvalidParams, fmt.Sprintf("invalid gasPrice: %v", err))
		}
		tx.GasPrice = price.String()
	}

	if err := validate.Struct(tx); err != nil {
		return nil, core.NewProviderError(core.CodeInvalidParams, fmt.Sprintf("invalid transaction: %v", err))
	}
	return tx, nil
}

// parseQuantity parses a hex or decimal unsigned quantity.
func parseQuantity(s string) (uint64, error) {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return hexutil.DecodeUint64(strings.ToLower(s))
	}
	return strconv.ParseUint(s, 10, 64)
}

// parseWei parses a hex or decimal wei amount into a non-negative decimal.
func parseWei(s string) (decimal.Decimal, error) {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		b, err := hexutil.DecodeBig(strings.ToLower(s))
		if err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromBigInt(b, 0), nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, err
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("amount cannot be negative")
	}
	return d, nil
}

// normalizeSignParams extracts the message from a personal_sign / eth_sign
// parameter pair. The two conventions disagree on whether the address comes
// first or second; whichever parameter is an address is treated as one, and
// a hex-encoded message body is decoded to text.
func normalizeSignParams(params []any, sessionAddress string) (string, error) {
	if len(params) < 2 {
		return "", core.NewProviderError(core.CodeInvalidParams, "expected [message, address] or [address, message]")
	}
	first, ok1 := params[0].(string)
	second, ok2 := params[1].(string)
	if !ok1 || !ok2 {
		return "", core.NewProviderError(core.CodeInvalidParams, "sign parameters must be strings")
	}

	var message string
	switch {
	case strings.EqualFold(first, sessionAddress):
		message = second
	case strings.EqualFold(second, sessionAddress):
		message = first
	case eth.ValidAddress(first) && !eth.ValidAddress(second):
		message = second
	case eth.ValidAddress(second) && !eth.ValidAddress(first):
		message = first
	default:
		return "", core.NewProviderError(core.CodeInvalidParams, "no address parameter found")
	}

	return decodeHexMessage(message), nil
}

// decodeHexMessage turns a 0x-encoded message body into text. Anything that
// is not valid hex is returned unchanged.
func decodeHexMessage(message string) string {
	if !strings.HasPrefix(message, "0x") {
		return message
	}
	b, err := hexutil.Decode(message)
	if err != nil {
		return message
	}
	return string(b)
}

// chainIDParam extracts the requested chain id from a switch/add chain call.
// It accepts the standard {"chainId": "0x..."} object or a bare string.
func chainIDParam(params []any) (uint64, error) {
	if len(params) < 1 {
		return 0, core.NewProviderError(core.CodeInvalidParams, "chainId required")
	}

	var s string
	switch v := params[0].(type) {
	case string:
		s = v
	case map[string]any:
		s, _ = v["chainId"].(string)
	default:
		raw, err := json.Marshal(v)
		if err == nil {
			var obj struct {
				ChainID string `json:"chainId"`
			}
			if json.Unmarshal(raw, &obj) == nil {
				s = obj.ChainID
			}
		}
	}
	if s == "" {
		return 0, core.NewProviderError(core.CodeInvalidParams, "chainId required")
	}

	id, err := parseQuantity(s)
	if err != nil {
		return 0, core.NewProviderError(core.CodeInvalidParams, fmt.Sprintf("invalid chainId: %v", err))
	}
	return id, nil
}
