package session

import "errors"

var (
	// ErrBusy is returned while a remote request is outstanding.
	ErrBusy = errors.New("session is busy")
	// ErrEmptyInput is returned for blank text.
	ErrEmptyInput = errors.New("input is empty")
	// ErrEmptyCart is returned when checkout or payment needs items.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrCheckoutInProgress is returned when a checkout is already running
	// or an image is sent mid-checkout.
	ErrCheckoutInProgress = errors.New("checkout in progress")
	// ErrNoCheckout is returned when there is no checkout to cancel.
	ErrNoCheckout = errors.New("no checkout in progress")
	// ErrNoPaymentPending is returned by Pay outside the settling step.
	ErrNoPaymentPending = errors.New("no payment pending")
	// ErrNothingToRetry is returned when the last request did not fail.
	ErrNothingToRetry = errors.New("nothing to retry")
	// ErrNotFound is returned for unknown session ids.
	ErrNotFound = errors.New("session not found")
	// ErrNoCatalog is returned before any catalog has been loaded.
	ErrNoCatalog = errors.New("catalog not loaded")
)
