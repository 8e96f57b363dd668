// Package acquirer orchestrates complete certificate acquisitions on top of
// the acme order workflow: begin the order, publish dns-01 records through
// external scripts, optionally confirm propagation, validate, complete, and
// always clean up afterwards.
//
// Record cleanup and challenge clearing are deferred, so they run on failed
// and cancelled acquisitions too. Unattended failures (renewals, scheduled
// runs) emit an AcquisitionFailed notification enriched with the previous
// valid certificate; interactive runs pass UserRequested and skip the event,
// since the caller already sees the outcome.
//
//	acq := acquirer.New(
//		acquirer.WithOrderStore(store),
//		acquirer.WithNotifier(notifier),
//		acquirer.WithDNSScripts(scripts),
//		acquirer.WithVerifier(verifier),
//	)
//
//	order, err := acq.Acquire(ctx, account, acme.Request{
//		Subject:       "example.com",
//		ChallengeType: acme.ChallengeTypeDNS01,
//	}, acquirer.UserRequested())
package acquirer
