package plugin

// TResult is a native status value as returned by a real interface
// implementation. Its numeric values depend on the ABI the implementation was
// built against.
type TResult int32

// ABI selects which native result table applies to a side of the bridge.
type ABI uint8

const (
	// ABIPosix is the table used by non-COM-compatible builds (Linux, macOS).
	ABIPosix ABI = iota
	// ABIWindows is the COM-compatible HRESULT table.
	ABIWindows
)

func (a ABI) String() string {
	switch a {
	case ABIPosix:
		return "posix"
	case ABIWindows:
		return "windows"
	default:
		return "unknown"
	}
}

// Results is the set of native result values for one ABI. Implementations
// keep one around instead of hard-coding numbers.
type Results struct {
	NoInterface     TResult
	OK              TResult
	True            TResult
	False           TResult
	InvalidArgument TResult
	NotImplemented  TResult
	InternalError   TResult
	NotInitialized  TResult
	OutOfMemory     TResult
}

func hresult(v uint32) TResult {
	return TResult(int32(v))
}

var (
	posixResults = Results{
		NoInterface:     -1,
		OK:              0,
		True:            0,
		False:           1,
		InvalidArgument: 2,
		NotImplemented:  3,
		InternalError:   4,
		NotInitialized:  5,
		OutOfMemory:     6,
	}
	windowsResults = Results{
		NoInterface:     hresult(0x80004002),
		OK:              0,
		True:            0,
		False:           1,
		InvalidArgument: hresult(0x80070057),
		NotImplemented:  hresult(0x80004001),
		InternalError:   hresult(0x80004005),
		NotInitialized:  hresult(0x8000FFFF),
		OutOfMemory:     hresult(0x8007000E),
	}
)

// ResultsFor returns the native result table for abi.
func ResultsFor(abi ABI) Results {
	if abi == ABIWindows {
		return windowsResults
	}
	return posixResults
}
