package billing

import (
	"errors"
	"fmt"
)

// AuthenticityError means a webhook could not be proven to come from its provider.
// Nothing past verification runs for such a delivery.
type AuthenticityError struct {
	Provider string
	Reason   string
	Err      error
}

func (e *AuthenticityError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s webhook authenticity: %s: %v", e.Provider, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s webhook authenticity: %s", e.Provider, e.Reason)
}

func (e *AuthenticityError) Unwrap() error { return e.Err }

// ReconciliationError marks an event that is malformed or references data we do
// not have. It is acknowledged and logged, never retried.
type ReconciliationError struct {
	EventType string
	Reason    string
	Err       error
}

func (e *ReconciliationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("reconcile %s: %s: %v", e.EventType, e.Reason, e.Err)
	}
	return fmt.Sprintf("reconcile %s: %s", e.EventType, e.Reason)
}

func (e *ReconciliationError) Unwrap() error { return e.Err }

// ProvisioningError means a dependent external call failed while creating a
// user. The delivery must fail so the provider retries it.
type ProvisioningError struct {
	ExternalUserID string
	Err            error
}

func (e *ProvisioningError) Error() string {
	return fmt.Sprintf("provision billing customer for %s: %v", e.ExternalUserID, e.Err)
}

func (e *ProvisioningError) Unwrap() error { return e.Err }

func IsAuthenticityError(err error) bool {
	var target *AuthenticityError
	return errors.As(err, &target)
}

func IsReconciliationError(err error) bool {
	var target *ReconciliationError
	return errors.As(err, &target)
}

func IsProvisioningError(err error) bool {
	var target *ProvisioningError
	return errors.As(err, &target)
}

func missingReference(eventType, reason string) error {
	return &ReconciliationError{EventType: eventType, Reason: reason}
}
