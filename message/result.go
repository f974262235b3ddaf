package message

import (
	"fmt"

	"mini-bridge/plugin"
)

// ResultCode is the ABI-independent form of a native result.
type ResultCode uint8

const (
	ResultOK ResultCode = iota
	ResultTrue
	ResultFalse
	ResultInvalidArgument
	ResultNotImplemented
	ResultInternalError
	ResultNotInitialized
	ResultOutOfMemory
	ResultNoInterface
	ResultUnknown
)

var resultNames = [...]string{
	ResultOK:              "kResultOk",
	ResultTrue:            "kResultTrue",
	ResultFalse:           "kResultFalse",
	ResultInvalidArgument: "kInvalidArgument",
	ResultNotImplemented:  "kNotImplemented",
	ResultInternalError:   "kInternalError",
	ResultNotInitialized:  "kNotInitialized",
	ResultOutOfMemory:     "kOutOfMemory",
	ResultNoInterface:     "kNoInterface",
}

// UniversalResult is a native result translated into something both sides
// understand. Raw keeps the original native value when Code is ResultUnknown.
type UniversalResult struct {
	Code ResultCode
	Raw  int32
}

func (UniversalResult) Kind() Kind  { return KindUniversalResult }
func (UniversalResult) isResponse() {}

// Result returns the universal result for code.
func Result(code ResultCode) UniversalResult {
	return UniversalResult{Code: code}
}

// FromNative translates a native result produced under abi. Unrecognized
// values are kept verbatim.
func FromNative(r plugin.TResult, abi plugin.ABI) UniversalResult {
	t := plugin.ResultsFor(abi)
	switch r {
	case t.OK:
		return Result(ResultOK)
	case t.False:
		return Result(ResultFalse)
	case t.InvalidArgument:
		return Result(ResultInvalidArgument)
	case t.NotImplemented:
		return Result(ResultNotImplemented)
	case t.InternalError:
		return Result(ResultInternalError)
	case t.NotInitialized:
		return Result(ResultNotInitialized)
	case t.OutOfMemory:
		return Result(ResultOutOfMemory)
	case t.NoInterface:
		return Result(ResultNoInterface)
	default:
		return UniversalResult{Code: ResultUnknown, Raw: int32(r)}
	}
}

// Native converts back to the native value expected under abi.
func (u UniversalResult) Native(abi plugin.ABI) plugin.TResult {
	t := plugin.ResultsFor(abi)
	switch u.Code {
	case ResultOK:
		return t.OK
	case ResultTrue:
		return t.True
	case ResultFalse:
		return t.False
	case ResultInvalidArgument:
		return t.InvalidArgument
	case ResultNotImplemented:
		return t.NotImplemented
	case ResultInternalError:
		return t.InternalError
	case ResultNotInitialized:
		return t.NotInitialized
	case ResultOutOfMemory:
		return t.OutOfMemory
	case ResultNoInterface:
		return t.NoInterface
	default:
		return plugin.TResult(u.Raw)
	}
}

// IsOK reports whether u is kResultOk or kResultTrue.
func (u UniversalResult) IsOK() bool {
	return u.Code == ResultOK || u.Code == ResultTrue
}

func (u UniversalResult) String() string {
	if int(u.Code) < len(resultNames) && resultNames[u.Code] != "" {
		return resultNames[u.Code]
	}
	return fmt.Sprintf("<unknown result 0x%08X>", uint32(u.Raw))
}
