package domain

import "errors"

var (
	ErrConfigMissing            = errors.New("account configuration missing")
	ErrPolicySyncFailed         = errors.New("policy sync failed")
	ErrStoreWriteFailed         = errors.New("store write failed")
	ErrNotificationFailed       = errors.New("notification failed")
	ErrInvalidTransitionRequest = errors.New("invalid transition request")

	ErrAccountNotFound     = errors.New("account not found")
	ErrBlockRecordNotFound = errors.New("block record not found")
	ErrPolicyNotFound      = errors.New("policy document not found")
	ErrLockNotAcquired     = errors.New("account lock not acquired")
	ErrEmptyAccountID      = errors.New("account id is empty")
)
