// Package scanner probes tracked domains over TLS and detects certificate
// changes. Each scan captures the presented leaf certificate and compares its
// thumbprint against the last successful scan of the same domain; a
// difference produces a ChangeEvent for downstream notification.
//
// Persistence is append-only and deliberately sparse: only the first
// successful observation and subsequent changes are stored. Failed scans and
// identical reconfirmations are returned to the caller but never persisted,
// so the baseline always reflects the last certificate actually seen.
//
// # Basic Usage
//
//	scn, err := scanner.New(store, tlsprobe.New())
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	scan, err := scn.Scan(ctx, "example.com")
//	if err != nil {
//		log.Fatal(err)
//	}
//	if scan.Success {
//		fmt.Println(scan.Certificate.Thumbprint)
//	}
//
//	// Scan a whole portfolio, four domains at a time.
//	scans, err := scn.ScanAll(ctx, []string{"example.com", "example.org"})
//
// Scans of the same domain are serialized by a per-domain lock; different
// domains proceed in parallel.
package scanner
