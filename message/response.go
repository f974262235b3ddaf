package message

import "mini-bridge/plugin"

// Ack answers requests that have nothing to return.
type Ack struct{}

// Configuration is the host side's configuration as seen by the plugin side.
// Nil pointers mean the option was not set.
type Configuration struct {
	Version      string
	LogVerbosity int32
	FrameRate    *float64
	Group        *string
	HideDAW      bool
}

// FactoryConstructArgs describes the plugin side's factory.
type FactoryConstructArgs struct {
	Info       plugin.FactoryInfo
	NumClasses int32
	Classes    []plugin.ClassInfo
}

// FactoryConstructResult holds exactly one of Args or Result.
type FactoryConstructResult struct {
	Args   *FactoryConstructArgs
	Result *UniversalResult
}

// ComponentConstructArgs names the freshly created instance and the
// interfaces it provides.
type ComponentConstructArgs struct {
	InstanceID InstanceID
	Interfaces []plugin.UID
}

// ComponentConstructResult holds exactly one of Args or Result.
type ComponentConstructResult struct {
	Args   *ComponentConstructArgs
	Result *UniversalResult
}

// Supported answers a capability query that succeeded. InstanceID is the
// queried instance when the object provides the interface itself.
type Supported struct {
	InstanceID InstanceID
	Interfaces []plugin.UID
}

// Unsupported is the explicit marker for a capability the target lacks.
type Unsupported struct{}

// QueryInterfaceResult holds exactly one of Supported or Unsupported.
type QueryInterfaceResult struct {
	Supported   *Supported
	Unsupported *Unsupported
}

type ControllerClassIDResult struct {
	Result UniversalResult
	CID    plugin.UID
}

type ProcessResponse struct {
	Result  UniversalResult
	Outputs []plugin.AudioBusBuffers
}

type HostNameResult struct {
	Result UniversalResult
	Name   string
}

func (Ack) Kind() Kind                      { return KindAck }
func (Configuration) Kind() Kind            { return KindConfiguration }
func (FactoryConstructResult) Kind() Kind   { return KindFactoryConstructResult }
func (ComponentConstructResult) Kind() Kind { return KindComponentConstructResult }
func (QueryInterfaceResult) Kind() Kind     { return KindQueryInterfaceResult }
func (ControllerClassIDResult) Kind() Kind  { return KindControllerClassIDResult }
func (ProcessResponse) Kind() Kind          { return KindProcessResponse }
func (HostNameResult) Kind() Kind           { return KindHostNameResult }

func (Ack) isResponse()                      {}
func (Configuration) isResponse()            {}
func (FactoryConstructResult) isResponse()   {}
func (ComponentConstructResult) isResponse() {}
func (QueryInterfaceResult) isResponse()     {}
func (ControllerClassIDResult) isResponse()  {}
func (ProcessResponse) isResponse()          {}
func (HostNameResult) isResponse()           {}

// NoInterface is the QueryInterfaceResult for a missing capability.
func NoInterface() QueryInterfaceResult {
	return QueryInterfaceResult{Unsupported: &Unsupported{}}
}
