package stepio

import "github.com/robert-malhotra/go-stepio/internal/status"

// Code is a stable numeric error kind surfaced by every entry point.
type Code = status.Code

// Error codes. The numeric values are stable.
const (
	OK                      = status.OK
	NotFound                = status.NotFound
	SizeOverflow            = status.SizeOverflow
	OutOfMemory             = status.OutOfMemory
	TypeMismatch            = status.TypeMismatch
	EngineFailure           = status.EngineFailure
	InvalidArgument         = status.InvalidArgument
	UnsupportedType         = status.UnsupportedType
	CorruptInput            = status.CorruptInput
	DeviceAllocationFailure = status.DeviceAllocationFailure
)

// Common errors
var (
	ErrNotFound                = status.ErrNotFound
	ErrSizeOverflow            = status.ErrSizeOverflow
	ErrOutOfMemory             = status.ErrOutOfMemory
	ErrTypeMismatch            = status.ErrTypeMismatch
	ErrEngineFailure           = status.ErrEngineFailure
	ErrInvalidArgument         = status.ErrInvalidArgument
	ErrUnsupportedType         = status.ErrUnsupportedType
	ErrCorruptInput            = status.ErrCorruptInput
	ErrDeviceAllocationFailure = status.ErrDeviceAllocationFailure
)

// CodeOf returns the code of err; OK for nil.
func CodeOf(err error) Code {
	return status.CodeOf(err)
}

// MaxRank is the highest supported variable rank.
const MaxRank = 6
