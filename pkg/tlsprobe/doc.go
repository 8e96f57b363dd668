// Package tlsprobe captures the certificate a remote endpoint presents
// during a TLS handshake.
//
// The prober opens a plain TCP connection, performs a TLS client handshake
// that accepts any server certificate, records the presented leaf and tears
// the session down. This is observation, not trust validation: the
// verification callback exists purely to capture what the server sent.
//
//	p := tlsprobe.New()
//	res := p.Probe(ctx, "example.com", ip, 443)
//	if res.Certificate != nil {
//	    // inspect the captured leaf
//	}
package tlsprobe
