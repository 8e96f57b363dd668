// Package monitor runs the background loops of the certificate lifecycle:
// ScanService rescans tracked domains whose last scan has grown stale, and
// RenewalService re-acquires certificates approaching expiry.
//
// Both services follow the same lifecycle: RunOnce for a single pass
// (useful under an external cron), blocking Start for a standalone loop, and
// Run for errgroup composition:
//
//	g, ctx := errgroup.WithContext(ctx)
//	g.Go(scanService.Run(ctx))
//	g.Go(renewalService.Run(ctx))
//	if err := g.Wait(); err != nil {
//		log.Fatal(err)
//	}
//
// Sources decide what is due: DomainSource returns domains scanned before a
// cutoff, RenewalSource returns certificates expiring within the renewal
// window (default 30 days).
package monitor
