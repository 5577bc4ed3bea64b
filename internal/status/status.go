// Package status defines the error taxonomy shared by every layer of the
// stepio core, and the stable numeric codes surfaced to callers.
package status

import "errors"

// Code is a stable numeric error kind. Zero means success.
type Code int

const (
	OK Code = iota
	NotFound
	SizeOverflow
	OutOfMemory
	TypeMismatch
	EngineFailure
	InvalidArgument
	UnsupportedType
	CorruptInput
	DeviceAllocationFailure
)

var codeNames = [...]string{
	OK:                      "OK",
	NotFound:                "NotFound",
	SizeOverflow:            "SizeOverflow",
	OutOfMemory:             "OutOfMemory",
	TypeMismatch:            "TypeMismatch",
	EngineFailure:           "EngineFailure",
	InvalidArgument:         "InvalidArgument",
	UnsupportedType:         "UnsupportedType",
	CorruptInput:            "CorruptInput",
	DeviceAllocationFailure: "DeviceAllocationFailure",
}

func (c Code) String() string {
	if c < 0 || int(c) >= len(codeNames) {
		return "Unknown"
	}
	return codeNames[c]
}

// Sentinel errors, one per Code.
var (
	ErrNotFound                = errors.New("not found")
	ErrSizeOverflow            = errors.New("selection size overflows addressable buffer")
	ErrOutOfMemory             = errors.New("out of memory")
	ErrTypeMismatch            = errors.New("element type mismatch")
	ErrEngineFailure           = errors.New("engine failure")
	ErrInvalidArgument         = errors.New("invalid argument")
	ErrUnsupportedType         = errors.New("unsupported element type")
	ErrCorruptInput            = errors.New("corrupt input")
	ErrDeviceAllocationFailure = errors.New("device allocation failure")
)

var sentinels = []struct {
	err  error
	code Code
}{
	{ErrNotFound, NotFound},
	{ErrSizeOverflow, SizeOverflow},
	{ErrOutOfMemory, OutOfMemory},
	{ErrTypeMismatch, TypeMismatch},
	{ErrInvalidArgument, InvalidArgument},
	{ErrUnsupportedType, UnsupportedType},
	{ErrCorruptInput, CorruptInput},
	{ErrDeviceAllocationFailure, DeviceAllocationFailure},
	{ErrEngineFailure, EngineFailure},
}

// CodeOf classifies err. Errors outside the taxonomy map to EngineFailure,
// since the only unclassified faults come from storage or transport.
func CodeOf(err error) Code {
	if err == nil {
		return OK
	}
	for _, s := range sentinels {
		if errors.Is(err, s.err) {
			return s.code
		}
	}
	return EngineFailure
}
