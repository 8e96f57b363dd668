// Package scriptrunner executes external helper scripts, capturing their
// combined output and exit code.
//
// It exists for DNS challenge publication: operators point the ACME
// orchestrator at setup/cleanup scripts that create and remove TXT records
// in whatever DNS provider they use. The runner enforces a wall-clock
// budget and kills processes that overrun it.
package scriptrunner
