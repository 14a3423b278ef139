package server

//go:generate go tool mockgen -source=peer.go -destination=mock_peer_test.go -package=server

// Peer is one connected session as seen by the Hub.
type Peer interface {
	// ID is the session id, stable for the connection lifetime.
	ID() string
	// Send enqueues a frame without blocking. It reports false when the
	// frame was dropped because the peer is closed or its buffer is full.
	Send(data []byte) bool
	// Close tears down the underlying connection. Safe to call twice.
	Close()
}
