// Package certinfo captures immutable snapshots of observed or issued X.509
// certificates.
//
// A Certificate records the raw DER bytes (base64), a SHA-256 thumbprint of
// the DER encoding, the validity window and the subject/issuer names. The
// thumbprint is a deterministic function of the raw bytes and serves as the
// deduplication key when deciding whether a freshly observed certificate is
// the same one seen before.
package certinfo
