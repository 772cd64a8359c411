// Package splitter computes per-participant shares of an amount. Pure
// functions only: no storage, no side effects.
package splitter

import "github.com/deepflow/settlement/internal/apperr"

// Split divides total by count using integer floor division and returns the
// base share and the remainder. It holds that
//
//	base*int64(count) + remainder == total
//
// for every positive total and count.
func Split(total int64, count int) (base, remainder int64, err error) {
	if count <= 0 {
		return 0, 0, apperr.New(apperr.CodeNoParticipants, "participant count must be positive")
	}
	if total <= 0 {
		return 0, 0, apperr.Newf(apperr.CodeInvalidInput, "amount must be a positive integer, got %d", total)
	}
	return total / int64(count), total % int64(count), nil
}

// EvenShare returns the amount each non-payer participant owes when total is
// divided among count participants.
//
// Remainder policy: when the division does not come out even, every
// participant's share is base + remainder. Each sharer absorbs the full
// remainder separately, so the collected sum can exceed total by
// (count-1)*remainder.
func EvenShare(total int64, count int) (int64, error) {
	base, remainder, err := Split(total, count)
	if err != nil {
		return 0, err
	}
	if remainder != 0 {
		return base + remainder, nil
	}
	return base, nil
}
