package models

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrPositionExists = errors.New("position already open")
	ErrInvalidSignal  = errors.New("invalid signal")
	ErrInvalidCandle  = errors.New("invalid candle")

	// venue responses
	ErrDuplicateOrder      = errors.New("duplicate order")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrOrderRejected       = errors.New("order rejected")
)
