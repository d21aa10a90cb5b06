package errors

import "errors"

var (
	// ErrNotFound is a generic sentinel for missing resources.
	ErrNotFound = errors.New("not found")
	// ErrInvalidArgument is a generic sentinel for invalid input.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrZeroInvoices marks a customer whose basket size would divide by zero.
	ErrZeroInvoices = errors.New("customer has zero invoices")
	// ErrSingleClass marks a label set with only churners or only non-churners.
	ErrSingleClass = errors.New("churn labels contain a single class")
	// ErrInsufficientSamples marks a partition too small to resample or fit.
	ErrInsufficientSamples = errors.New("insufficient samples")
	// ErrUnlabeledCustomers marks feature rows with no churn label. Trainers
	// drop such rows; the sentinel is used when reporting them.
	ErrUnlabeledCustomers = errors.New("customers without churn label")
	// ErrFeatureMismatch marks a scoring request whose feature vector does not
	// match the order and width the model was trained on.
	ErrFeatureMismatch = errors.New("feature vector does not match model")
)

func Is(err, target error) bool { return errors.Is(err, target) }

func As(err error, target any) bool { return errors.As(err, target) }
