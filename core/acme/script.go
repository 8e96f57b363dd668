package acme

import (
	"context"
	"log/slog"
	"strings"

	"github.com/dmitrymomot/certkit/core/dnscheck"
	"github.com/dmitrymomot/certkit/core/logger"
	"github.com/dmitrymomot/certkit/pkg/domainutil"
	"github.com/dmitrymomot/certkit/pkg/scriptrunner"
)

// DNSScripts names the external scripts that publish and remove dns-01 TXT
// records, together with their argument templates. Templates may reference
// {{FullRecord}}, {{Subject}}, {{Domain}}, {{Record}} and {{Value}}.
type DNSScripts struct {
	SetScript        string
	SetArguments     string
	CleanupScript    string
	CleanupArguments string
}

// scriptArgs holds the substitution values for one challenge. Explicit
// fields, no reflection: the template vocabulary is fixed.
type scriptArgs struct {
	// FullRecord is the fully qualified TXT record name,
	// e.g. _acme-challenge.www.example.com.
	FullRecord string

	// Subject is the domain being authorized, wildcard prefix included.
	Subject string

	// Domain is the registrable domain, e.g. example.com.
	Domain string

	// Record is the TXT record name relative to the zone,
	// e.g. _acme-challenge.www.
	Record string

	// Value is the TXT record value.
	Value string
}

// newScriptArgs derives the substitution values from a challenge.
func newScriptArgs(ch AuthorizationChallenge) scriptArgs {
	bare := strings.TrimPrefix(ch.Domain, "*.")
	record := "_acme-challenge"
	if sub := domainutil.Subdomain(bare); sub != "" {
		record += "." + sub
	}
	return scriptArgs{
		FullRecord: "_acme-challenge." + bare,
		Subject:    ch.Domain,
		Domain:     domainutil.Registrable(bare),
		Record:     record,
		Value:      ch.DNSRecordValue,
	}
}

// apply substitutes the template placeholders with the challenge's values.
func (a scriptArgs) apply(template string) string {
	return strings.NewReplacer(
		"{{FullRecord}}", a.FullRecord,
		"{{Subject}}", a.Subject,
		"{{Domain}}", a.Domain,
		"{{Record}}", a.Record,
		"{{Value}}", a.Value,
	).Replace(template)
}

// SetDNSRecords runs the set script once per pending dns-01 challenge. A
// non-zero script exit is logged but does not fail the operation; the later
// propagation check and the ACME server's own validation decide the outcome.
func (p *Provider) SetDNSRecords(ctx context.Context, runner *scriptrunner.Runner, scripts DNSScripts) error {
	if scripts.SetScript == "" {
		return ErrNoScripts
	}
	return p.runDNSScripts(ctx, runner, scripts.SetScript, scripts.SetArguments)
}

// CleanupDNSRecords runs the cleanup script once per pending dns-01
// challenge. Best-effort: failures are logged only, and cleanup runs even
// when the order did not complete.
func (p *Provider) CleanupDNSRecords(ctx context.Context, runner *scriptrunner.Runner, scripts DNSScripts) error {
	if scripts.CleanupScript == "" {
		return ErrNoScripts
	}
	return p.runDNSScripts(ctx, runner, scripts.CleanupScript, scripts.CleanupArguments)
}

func (p *Provider) runDNSScripts(ctx context.Context, runner *scriptrunner.Runner, script, argTemplate string) error {
	if runner == nil {
		runner = scriptrunner.New(scriptrunner.WithLogger(p.logger))
	}

	for _, ch := range p.challenges {
		if ch.DNSRecordValue == "" {
			continue
		}
		args := newScriptArgs(ch)
		code, output, err := runner.Run(ctx, script, args.apply(argTemplate), nil)
		if err != nil {
			return err
		}
		if code != 0 {
			p.logger.WarnContext(ctx, "dns script exited non-zero",
				logger.Domain(ch.Domain),
				slog.Int("exit_code", code),
				slog.String("output", strings.TrimSpace(output)))
		}
	}
	return nil
}

// PreValidateDNSRecords polls authoritative nameservers for each pending
// dns-01 TXT record before triggering validation. Purely advisory: the
// result is logged and the workflow proceeds either way, since only the ACME
// server's check matters.
func (p *Provider) PreValidateDNSRecords(ctx context.Context, verifier *dnscheck.Verifier) {
	if verifier == nil {
		return
	}
	for _, ch := range p.challenges {
		if ch.DNSRecordValue == "" {
			continue
		}
		args := newScriptArgs(ch)
		if !verifier.PreValidate(ctx, args.FullRecord, ch.DNSRecordValue) {
			p.logger.WarnContext(ctx, "dns record not confirmed before validation",
				logger.Domain(ch.Domain))
		}
	}
}
