// Package notification carries certificate lifecycle events to subscribers.
//
// Three event types exist: CertificateChanged (a tracked domain presents a
// different certificate), CertificateExpiring (a stored certificate crossed
// an expiry threshold) and AcquisitionFailed (an ACME acquisition ended in a
// terminal failure). Events are plain structs; Message renders a summary and
// delivery channels decide the final formatting.
//
// The Notifier interface decouples producers from transports.
// ChannelNotifier is the built-in in-memory implementation: a buffered
// channel drained by a consumer goroutine.
//
//	notifier := notification.NewChannelNotifier()
//	defer notifier.Close()
//
//	go func() {
//		for ev := range notifier.Events() {
//			log.Println(ev.EventType(), ev.Message())
//		}
//	}()
//
// ExpiryChecker emits CertificateExpiring as certificates cross the
// configured day thresholds (default 30, 14, 7, 3, 1), at most once per
// threshold per certificate. ChangeDispatcher drains the scanner's recorded
// ChangeEvents and marks them processed after successful delivery.
package notification
