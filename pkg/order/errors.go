package order

import (
	"errors"
	"fmt"
	"strings"
)

// ErrValidation is matched by every user-correctable placement error.
var ErrValidation = errors.New("invalid order")

var ErrEmptyCart = fmt.Errorf("%w: your cart is empty, add items before placing an order", ErrValidation)

// MissingFieldError lists the required passenger fields that were blank.
type MissingFieldError struct {
	Fields []string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("please fill %s", strings.Join(e.Fields, ", "))
}

func (e *MissingFieldError) Is(target error) bool {
	return target == ErrValidation
}
