package service

import (
	"fmt"

	"github.com/cwrk-planet/meet-service/pkg/errs"
)

// upstream ошибки хранилища наружу уходят как errs.ErrUpstream.
func upstream(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", errs.ErrUpstream, op, err)
}
