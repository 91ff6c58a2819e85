package ports

import "github.com/wrenlabs/popsign/core"

// SessionCodec converts between sessions and tamper-evident store records.
// Decoding an expired or modified record must fail; the session layer treats
// any decode failure as an eviction.
type SessionCodec interface {
	Encode(session *core.Session) (string, error)
	Decode(record string) (*core.Session, error)
}
