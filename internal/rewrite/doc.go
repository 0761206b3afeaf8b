// Package rewrite implements request-line path rewriting: stripping a
// matched route prefix from the forwarded request while leaving every other
// byte of the buffered request untouched.
package rewrite
