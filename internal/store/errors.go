package store

import "errors"

var (
	ErrInvalidInput = errors.New("invalid input data")
	ErrEmptyChatID  = errors.New("chat id is required")
)
