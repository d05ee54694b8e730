package domain

import (
	"fmt"

	"github.com/cwrk-planet/meet-service/pkg/errs"
)

var (
	ErrRoomNotFound = fmt.Errorf("room %w", errs.ErrNotFound)
	ErrUserNotFound = fmt.Errorf("user %w", errs.ErrNotFound)
	ErrRoomExists   = fmt.Errorf("room already exists")
)
