// package transport implements the *message syntax* side of HTTP: request
// serialization and response parsing per RFC9112, with chunked framing in a
// subpackage. Semantics-level pieces ([net/http.Header], URL handling) are
// reused from the standard library and x/net.
//
// Transfer failures are classified at the point of first observation:
// connection-level failures carry the ErrConn marker, body framing
// violations become decode errors, everything else transfer errors.

package transport
