// Package proxy implements the per-connection pipeline: incremental header
// acquisition, route resolution, optional request-line rewriting, backend
// dialing with a synthesized 502 on failure, and the bidirectional byte
// relay. All errors terminate at the connection boundary.
package proxy
