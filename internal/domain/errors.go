package domain

import "errors"

var (
	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrInvalidUrgency is returned when the urgency level is not one of urgent, high, normal or low
	ErrInvalidUrgency = errors.New("invalid urgency level")

	// ErrListingRejected is returned by the normalizer for a listing that cannot be compared
	ErrListingRejected = errors.New("listing rejected")

	// ErrRateLimited is returned when rate limit is exceeded
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrPlatformFailure is returned when a marketplace request fails
	ErrPlatformFailure = errors.New("platform request failed")

	// ErrNoPlatforms is returned when a search is attempted with no platforms configured
	ErrNoPlatforms = errors.New("no platforms configured")

	// ErrOrderNotFound is returned when an order record does not exist
	ErrOrderNotFound = errors.New("order not found")

	// ErrDuplicateOrder is returned when an order with the same idempotency key already exists
	ErrDuplicateOrder = errors.New("duplicate order")

	// ErrPurchaseFailed is returned when every purchase attempt failed
	ErrPurchaseFailed = errors.New("purchase failed")

	// ErrNotPurchasable is returned when a decision does not permit a purchase
	ErrNotPurchasable = errors.New("decision does not allow purchase")

	// ErrLLMDisabled is returned when narration is requested but no model is configured
	ErrLLMDisabled = errors.New("llm narration disabled")

	// ErrLLMFailure is returned when the model request fails or returns unusable output
	ErrLLMFailure = errors.New("llm request failed")
)
