package logger

import (
	"log/slog"
	"time"
)

// Error creates an attribute for a single error under the key "error".
// Returns an empty Attr for nil errors, enabling safe usage without nil
// checks.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// Duration creates an attribute for a duration.
func Duration(d time.Duration) slog.Attr {
	return slog.Duration("duration", d)
}

// Elapsed calculates and logs the duration since the start time.
func Elapsed(start time.Time) slog.Attr {
	return slog.Duration("elapsed", time.Since(start))
}

// Domain creates an attribute for a domain name.
func Domain(domain string) slog.Attr {
	if domain == "" {
		return slog.Attr{}
	}
	return slog.String("domain", domain)
}

// Subject creates an attribute for a certificate subject.
func Subject(subject string) slog.Attr {
	if subject == "" {
		return slog.Attr{}
	}
	return slog.String("subject", subject)
}

// Email creates an attribute for a contact email.
func Email(email string) slog.Attr {
	if email == "" {
		return slog.Attr{}
	}
	return slog.String("email", email)
}

// OrderID creates an attribute for an ACME order identifier.
func OrderID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("order_id", id)
}

// OrderStatus creates an attribute for an ACME order status.
func OrderStatus(status string) slog.Attr {
	if status == "" {
		return slog.Attr{}
	}
	return slog.String("order_status", status)
}

// Thumbprint creates an attribute for a certificate thumbprint.
func Thumbprint(thumbprint string) slog.Attr {
	if thumbprint == "" {
		return slog.Attr{}
	}
	return slog.String("thumbprint", thumbprint)
}

// Nameserver creates an attribute for a DNS server address.
func Nameserver(addr string) slog.Attr {
	if addr == "" {
		return slog.Attr{}
	}
	return slog.String("nameserver", addr)
}

// Zone creates an attribute for a DNS zone.
func Zone(zone string) slog.Attr {
	if zone == "" {
		return slog.Attr{}
	}
	return slog.String("zone", zone)
}

// Attempt creates an attribute for a retry attempt counter.
func Attempt(n int) slog.Attr {
	return slog.Int("attempt", n)
}

// Component creates an attribute identifying the emitting component.
func Component(name string) slog.Attr {
	if name == "" {
		return slog.Attr{}
	}
	return slog.String("component", name)
}
