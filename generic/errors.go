package generic

import "errors"

var (
	// ErrInvalidDate is returned for dates not in YYYY-MM-DD form.
	ErrInvalidDate = errors.New("invalid date")

	// ErrInvalidMonth is returned for months not in YYYY-MM form.
	ErrInvalidMonth = errors.New("invalid month")
)
