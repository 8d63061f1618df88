package cards

import "errors"

// ErrInvalidHand is returned by evaluators given a malformed card list.
var ErrInvalidHand = errors.New("cards: invalid hand")

// ErrEmptyShoe is returned when a draw is attempted against an exhausted shoe.
var ErrEmptyShoe = errors.New("cards: shoe is empty")
