// Package wizard asks the questions the installer cannot answer from
// flags, environment or the answers file.
//
// It uses charmbracelet/huh forms. Complete fills the missing parts of a
// config.Config; Interactive answers the prompts raised while an install
// is running (license, user details, registry credentials, confirmations).
package wizard
