package rewrite

import (
	"bytes"
	"strings"
)

// StripPrefix rewrites the request line of a buffered HTTP/1.x request so
// that its path no longer carries matchedPrefix. Only the first line is
// touched; every byte from the original first-line terminator onward is
// preserved exactly, including header casing and any body bytes already
// buffered.
//
// Rewriting is best-effort: if the prefix is empty, the first line does not
// split into exactly three tokens, or the buffer has no line terminator at
// all, the input is returned unchanged.
func StripPrefix(raw []byte, matchedPrefix string) []byte {
	if matchedPrefix == "" {
		return raw
	}

	end := bytes.IndexAny(raw, "\r\n")
	if end < 0 {
		return raw
	}

	parts := strings.Fields(string(raw[:end]))
	if len(parts) != 3 {
		return raw
	}
	method, path, version := parts[0], parts[1], parts[2]

	line := method + " " + NewPath(path, matchedPrefix) + " " + version

	rewritten := make([]byte, 0, len(line)+len(raw)-end)
	rewritten = append(rewritten, line...)
	rewritten = append(rewritten, raw[end:]...)
	return rewritten
}

// NewPath strips prefix from path, re-rooting the result so it stays an
// absolute path: stripping "/api" from "/api" yields "/", stripping "/api"
// from "/api/v1/x" yields "/v1/x". Paths that do not carry the prefix are
// returned unchanged.
func NewPath(path, prefix string) string {
	if prefix == "" || !strings.HasPrefix(path, prefix) {
		return path
	}

	stripped := path[len(prefix):]
	if stripped == "" || !strings.HasPrefix(stripped, "/") {
		return "/" + stripped
	}
	return stripped
}
