package certinfo

import "errors"

// ErrNoCertificate is returned when PEM input contains no CERTIFICATE block.
var ErrNoCertificate = errors.New("no certificate found in PEM data")
