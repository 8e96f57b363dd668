package tlsprobe

import (
	"bytes"
	"context"
	"crypto/x509"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/crypto/ocsp"
)

const ocspTimeout = 10 * time.Second

// ocspStatus queries the leaf's OCSP responder and returns a diagnostic line.
// Any failure is reported in the line rather than aborting the probe.
func (p *Prober) ocspStatus(ctx context.Context, leaf, issuer *x509.Certificate) string {
	if issuer == nil || len(leaf.OCSPServer) == 0 {
		return "OCSP status: not available"
	}
	server := leaf.OCSPServer[0]

	reqDER, err := ocsp.CreateRequest(leaf, issuer, nil)
	if err != nil {
		return fmt.Sprintf("OCSP status: request build failed: %v", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, ocspTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodPost, server, bytes.NewReader(reqDER))
	if err != nil {
		return fmt.Sprintf("OCSP status: %v", err)
	}
	httpReq.Header.Set("Content-Type", "application/ocsp-request")

	httpResp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		return fmt.Sprintf("OCSP status: query failed: %v", err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, 1<<20))
	if err != nil {
		return fmt.Sprintf("OCSP status: read failed: %v", err)
	}

	resp, err := ocsp.ParseResponseForCert(body, leaf, issuer)
	if err != nil {
		return fmt.Sprintf("OCSP status: parse failed: %v", err)
	}

	switch resp.Status {
	case ocsp.Good:
		return "OCSP status: good"
	case ocsp.Revoked:
		return fmt.Sprintf("OCSP status: revoked at %s", resp.RevokedAt.Format(time.RFC3339))
	default:
		return "OCSP status: unknown"
	}
}
