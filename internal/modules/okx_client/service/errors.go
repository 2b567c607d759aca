package service

import (
	"fmt"

	"breakout_bot/internal/models"
)

const (
	codeInsufficientBalance = "51008"
	codeInsufficientMargin  = "51004"
	codeDuplicateClOrdID    = "51016"
)

type orderAck struct {
	OrdID   string `json:"ordId"`
	ClOrdID string `json:"clOrdId"`
	SCode   string `json:"sCode"`
	SMsg    string `json:"sMsg"`
}

// orderError maps a rejected order item to the shared venue errors.
func orderError(op string, ack orderAck) error {
	switch ack.SCode {
	case codeDuplicateClOrdID:
		return fmt.Errorf("%s: %w: %s", op, models.ErrDuplicateOrder, ack.SMsg)
	case codeInsufficientBalance, codeInsufficientMargin:
		return fmt.Errorf("%s: %w: %s", op, models.ErrInsufficientBalance, ack.SMsg)
	default:
		return fmt.Errorf("%s: %w: sCode=%s %s", op, models.ErrOrderRejected, ack.SCode, ack.SMsg)
	}
}
