package domain

import "fmt"

// ProtocolError is a refused inbound command and the numeric answering it
type ProtocolError struct {
	Command string
	Numeric string
	Message string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Numeric, e.Command, e.Message)
}

// DeliveryError is a chat-service call that failed after any fallback
type DeliveryError struct {
	Op     string
	ChatID string
	Err    error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("%s to %s: %v", e.Op, e.ChatID, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}
