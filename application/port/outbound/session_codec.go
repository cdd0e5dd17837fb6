package outbound

// SessionCodec turns session values into the opaque blobs kept in the
// StateStore. Decode must fail on any malformed blob rather than fill v
// partially.
type SessionCodec interface {
	Encode(v interface{}) (string, error)
	Decode(blob string, v interface{}) error
}
