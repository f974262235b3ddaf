// Package plugin defines the interface contracts that the bridge proxies
// across the process boundary: a factory that creates components, the
// component and audio processor interfaces implemented by plugins, and the
// host application interface the host hands to a component on initialize.
//
// Real implementations live on the serving side. The proxy package provides
// implementations of the same interfaces that forward every call to the peer.
package plugin

// Info flags reported by FactoryInfo.Flags.
const (
	FactoryClassesDiscardable      int32 = 1 << 0
	FactoryLicenseCheck            int32 = 1 << 1
	FactoryComponentNonDiscardable int32 = 1 << 3
	FactoryUnicode                 int32 = 1 << 4
)

// Symbolic sample sizes for AudioProcessor.CanProcessSampleSize.
const (
	Sample32 int32 = 0
	Sample64 int32 = 1
)

// FactoryInfo describes the vendor of a plugin factory.
type FactoryInfo struct {
	Vendor string
	URL    string
	Email  string
	Flags  int32
}

// ClassInfo describes one class a factory can create.
type ClassInfo struct {
	CID         UID
	Cardinality int32
	Category    string
	Name        string
}

// AudioBusBuffers holds the channels of one bus. Samples are 64-bit.
type AudioBusBuffers struct {
	SilenceFlags uint64
	Channels     [][]float64
}

// ProcessData is the argument to AudioProcessor.Process. The processor reads
// Inputs and writes into Outputs in place.
type ProcessData struct {
	ProcessMode        int32
	SymbolicSampleSize int32
	NumSamples         int32
	Inputs             []AudioBusBuffers
	Outputs            []AudioBusBuffers
}

// HostApplication is implemented by the host and passed to PluginBase.Initialize.
type HostApplication interface {
	Name() (string, TResult)
}

// PluginBase is the lifecycle part of every plugin object. context may be nil.
type PluginBase interface {
	Initialize(context HostApplication) TResult
	Terminate() TResult
}

// Component is the main plugin object created by a Factory.
type Component interface {
	PluginBase
	GetControllerClassID() (UID, TResult)
	SetActive(state bool) TResult
}

// AudioProcessor is the real-time processing capability of a component.
type AudioProcessor interface {
	SetProcessing(state bool) TResult
	CanProcessSampleSize(symbolicSampleSize int32) TResult
	Process(data *ProcessData) TResult
}

// Factory creates plugin components by class id.
type Factory interface {
	Info() FactoryInfo
	CountClasses() int32
	ClassInfo(index int32) (ClassInfo, TResult)
	CreateInstance(cid, iid UID) (any, TResult)
}

// Querier lets an object hand out a different object for a capability, the
// way a component can expose a separate controller.
type Querier interface {
	QueryInterface(iid UID) (any, bool)
}
