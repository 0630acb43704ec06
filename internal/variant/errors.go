package variant

import "errors"

// ErrMaskTooShort is returned by ParseSelectMask when given fewer than
// six mask positions.
var ErrMaskTooShort = errors.New("variant: select mask must have at least 6 positions")
