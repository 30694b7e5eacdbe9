/*
Package console relays newline-delimited text over a single TCP connection.

There are two endpoints. A Server listens on an address and services exactly one peer at a time: once a peer is accepted the listener is closed, and it is only reopened after the peer is known to be gone. A Client dials a Server and keeps redialing whenever the connection is lost.

Both endpoints track connection state with a pair of latches (connected and disconnected). The accept or dial loop flips the pair when a connection is established, and any I/O failure or failed liveness probe flips it back. Reads and writes wait on the connected latch before touching the socket, so callers simply block (or drop output) while no peer is attached.

Liveness is checked once per second with a non-blocking peek on the socket, which detects a peer that closed the connection without any unread data left. Accepted sockets also have TCP keep-alive enabled with a one second period.

The protocol is plain UTF-8 text, one message per line. There is no framing, authentication or encryption.
*/
package console
