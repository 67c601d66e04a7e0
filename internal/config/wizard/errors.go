package wizard

import "errors"

// ErrLicenseDeclined is returned when the user does not accept the license.
var ErrLicenseDeclined = errors.New("you must agree to the terms and conditions to proceed")

// Validation errors for the interactive wizard.
var (
	errRequired       = errors.New("value is required")
	errNameTooShort   = errors.New("sorry, we need a real name, please")
	errEmailInvalid   = errors.New("that doesn't look like an email address")
	errNodeCount      = errors.New("node count must be a positive number")
	errKubeconfigPath = errors.New("kubeconfig file does not exist")
)
