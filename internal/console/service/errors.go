package service

import "errors"

// ErrInvalidInput — клиент прислал несогласованные счетчики или параметры.
var ErrInvalidInput = errors.New("invalid input")
