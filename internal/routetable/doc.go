// Package routetable implements the immutable longest-prefix routing table
// that maps request paths to backend addresses. Exact path matches take
// precedence over prefix matches; unmatched paths fall through to the
// default backend.
package routetable
