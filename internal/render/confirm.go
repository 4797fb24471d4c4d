package render

import "errors"

// ErrDeclined is returned when the user answers no to a confirmation prompt
var ErrDeclined = errors.New("action not confirmed")

// Confirmer asks the user a yes/no question before a destructive action
type Confirmer interface {
	Confirm(prompt string) bool
}

// ConfirmFunc adapts a function to Confirmer
type ConfirmFunc func(prompt string) bool

func (f ConfirmFunc) Confirm(prompt string) bool { return f(prompt) }
