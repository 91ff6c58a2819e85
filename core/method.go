package core

// Method enumerates the supported provider method surface. The set is closed:
// dispatch switches over it exhaustively, so adding a method is a
// compile-time-visible change.
type Method int

const (
	MethodUnknown Method = iota
	MethodChainID
	MethodNetVersion
	MethodAccounts
	MethodRequestAccounts
	MethodPersonalSign
	MethodLegacySign
	MethodSendTransaction
	MethodSwitchChain
	MethodAddChain
)

// Standard RPC method names accepted by ParseMethod.
const (
	RPCChainID         = "eth_chainId"
	RPCNetVersion      = "net_version"
	RPCAccounts        = "eth_accounts"
	RPCRequestAccounts = "eth_requestAccounts"
	RPCPersonalSign    = "personal_sign"
	RPCLegacySign      = "eth_sign"
	RPCSendTransaction = "eth_sendTransaction"
	RPCSwitchChain     = "wallet_switchEthereumChain"
	RPCAddChain        = "wallet_addEthereumChain"
)

// Transport-level method tags understood by the signer application. The whole
// sign-in family shares a single tag; the signer does not distinguish a
// sign-in from an arbitrary message signature at the URL level.
const (
	TransportSignIn          = "sign_in"
	TransportSendTransaction = "send_transaction"
)

var methodNames = map[Method]string{
	MethodChainID:         RPCChainID,
	MethodNetVersion:      RPCNetVersion,
	MethodAccounts:        RPCAccounts,
	MethodRequestAccounts: RPCRequestAccounts,
	MethodPersonalSign:    RPCPersonalSign,
	MethodLegacySign:      RPCLegacySign,
	MethodSendTransaction: RPCSendTransaction,
	MethodSwitchChain:     RPCSwitchChain,
	MethodAddChain:        RPCAddChain,
}

// ParseMethod maps a standard RPC method name onto the closed method set.
func ParseMethod(name string) (Method, error) {
	for m, n := range methodNames {
		if n == name {
			return m, nil
		}
	}
	return MethodUnknown, ErrUnsupportedMethod
}

func (m Method) String() string {
	if n, ok := methodNames[m]; ok {
		return n
	}
	return "unknown"
}

// TransportTag returns the tag transmitted in the popup navigation target.
// It is distinct from the semantic method: reply interpretation keeps using
// the original Method.
func (m Method) TransportTag() string {
	if m == MethodSendTransaction {
		return TransportSendTransaction
	}
	return TransportSignIn
}

// SignInFamily reports whether replies of type "auth" satisfy this method.
func (m Method) SignInFamily() bool {
	switch m {
	case MethodRequestAccounts, MethodPersonalSign, MethodLegacySign:
		return true
	}
	return false
}

// TransactionFamily reports whether replies of type "tx" satisfy this method.
func (m Method) TransactionFamily() bool {
	return m == MethodSendTransaction
}

// Popup reports whether the method is answered through a popup exchange
// rather than synchronously from configuration or the session store.
func (m Method) Popup() bool {
	return m.SignInFamily() || m.TransactionFamily()
}
