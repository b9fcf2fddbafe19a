// Package services defines the business logic for document processing,
// reconciliation, the product catalog, supplier resolution, and feedback.
// This file centralizes common service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// These errors are intended for internal use by the service layer and translation
// into user-facing messages or HTTP status codes should be performed at the
// handler/controller layer.
package services

import "errors"

var (
	// ErrInvoiceNotFound indicates that the requested invoice does not exist
	// or is not accessible to the current restaurant.
	ErrInvoiceNotFound = errors.New("invoice not found")

	// ErrLinkNotFound indicates that the requested reconciliation link does
	// not exist or is not accessible to the current restaurant.
	ErrLinkNotFound = errors.New("link not found")

	// ErrProductNotFound indicates that the requested catalog product does
	// not exist or is not accessible to the current restaurant.
	ErrProductNotFound = errors.New("product not found")

	// ErrRestaurantNotFound indicates that the tenant referenced by a request
	// is unknown.
	ErrRestaurantNotFound = errors.New("restaurant not found")

	// ErrEmptyDocument is returned when a document upload contains no bytes.
	ErrEmptyDocument = errors.New("document is empty")

	// ErrDocumentTooLarge is returned when a document upload exceeds the
	// maximum configured size limit.
	ErrDocumentTooLarge = errors.New("document too large")

	// ErrEmptyDescription is returned when a product match is requested for
	// a blank descriptor.
	ErrEmptyDescription = errors.New("description is empty")

	// ErrBuyerAsSupplier is returned when the extracted supplier tax ID is
	// the restaurant's own tax ID, meaning the extraction confused the buyer
	// block with the seller block.
	ErrBuyerAsSupplier = errors.New("extracted supplier is the buying restaurant")

	// ErrLinkStateFinal is returned when a confirm or reject is attempted on
	// a link that has already been confirmed or rejected.
	ErrLinkStateFinal = errors.New("link state is final")

	// ErrInvalidFeedback is returned when a feedback payload names an unknown
	// decision kind or is missing the product the decision refers to.
	ErrInvalidFeedback = errors.New("invalid feedback payload")
)
