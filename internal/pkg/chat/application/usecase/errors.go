package usecase

import (
	"errors"
	"fmt"
)

// ErrPersistence marks a storage failure inside a use case. It is the only
// error the send worker retries.
var ErrPersistence = errors.New("chat: persistence failure")

// storeErr returns err unchanged when it matches one of the sentinels the
// caller can act on, and tags it with ErrPersistence otherwise.
func storeErr(err error, passthrough ...error) error {
	for _, p := range passthrough {
		if errors.Is(err, p) {
			return err
		}
	}
	return fmt.Errorf("%w: %v", ErrPersistence, err)
}
