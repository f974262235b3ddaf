package message

import "mini-bridge/plugin"

// WantsConfiguration is sent by the plugin side right after connecting to
// fetch the host side's Configuration.
type WantsConfiguration struct{}

// FactoryConstruct asks the plugin side for its factory.
type FactoryConstruct struct{}

// ComponentConstruct asks the factory to create the class CID.
type ComponentConstruct struct {
	CID plugin.UID
}

// ComponentDestruct releases the calling side's reference to a component.
type ComponentDestruct struct {
	InstanceID InstanceID
}

// HostContextArgs names a host application object registered on the calling
// side.
type HostContextArgs struct {
	InstanceID InstanceID
}

// ComponentInitialize calls PluginBase.Initialize. HostContext is nil when the
// host passed no context.
type ComponentInitialize struct {
	InstanceID  InstanceID
	HostContext *HostContextArgs
}

type ComponentTerminate struct {
	InstanceID InstanceID
}

type ComponentSetActive struct {
	InstanceID InstanceID
	State      bool
}

type ComponentGetControllerClassID struct {
	InstanceID InstanceID
}

// QueryInterface asks an instance whether it provides IID.
type QueryInterface struct {
	InstanceID InstanceID
	IID        plugin.UID
}

type AudioProcessorSetProcessing struct {
	InstanceID InstanceID
	State      bool
}

type AudioProcessorCanProcessSampleSize struct {
	InstanceID         InstanceID
	SymbolicSampleSize int32
}

// AudioProcessorProcess carries one processing cycle. Outputs in Data must be
// allocated by the caller; the response carries their new contents.
type AudioProcessorProcess struct {
	InstanceID InstanceID
	Data       plugin.ProcessData
}

// HostApplicationGetName is sent by the plugin side to a host context.
type HostApplicationGetName struct {
	InstanceID InstanceID
}

// HostContextDestruct releases the plugin side's reference to a host context.
type HostContextDestruct struct {
	InstanceID InstanceID
}

func (WantsConfiguration) Kind() Kind                 { return KindWantsConfiguration }
func (FactoryConstruct) Kind() Kind                   { return KindFactoryConstruct }
func (ComponentConstruct) Kind() Kind                 { return KindComponentConstruct }
func (ComponentDestruct) Kind() Kind                  { return KindComponentDestruct }
func (ComponentInitialize) Kind() Kind                { return KindComponentInitialize }
func (ComponentTerminate) Kind() Kind                 { return KindComponentTerminate }
func (ComponentSetActive) Kind() Kind                 { return KindComponentSetActive }
func (ComponentGetControllerClassID) Kind() Kind      { return KindComponentGetControllerClassID }
func (QueryInterface) Kind() Kind                     { return KindQueryInterface }
func (AudioProcessorSetProcessing) Kind() Kind        { return KindAudioProcessorSetProcessing }
func (AudioProcessorCanProcessSampleSize) Kind() Kind { return KindAudioProcessorCanProcessSampleSize }
func (AudioProcessorProcess) Kind() Kind              { return KindAudioProcessorProcess }
func (HostApplicationGetName) Kind() Kind             { return KindHostApplicationGetName }
func (HostContextDestruct) Kind() Kind                { return KindHostContextDestruct }

func (WantsConfiguration) isRequest()                 {}
func (FactoryConstruct) isRequest()                   {}
func (ComponentConstruct) isRequest()                 {}
func (ComponentDestruct) isRequest()                  {}
func (ComponentInitialize) isRequest()                {}
func (ComponentTerminate) isRequest()                 {}
func (ComponentSetActive) isRequest()                 {}
func (ComponentGetControllerClassID) isRequest()      {}
func (QueryInterface) isRequest()                     {}
func (AudioProcessorSetProcessing) isRequest()        {}
func (AudioProcessorCanProcessSampleSize) isRequest() {}
func (AudioProcessorProcess) isRequest()              {}
func (HostApplicationGetName) isRequest()             {}
func (HostContextDestruct) isRequest()                {}

func (WantsConfiguration) pairsWith(Configuration)                      {}
func (FactoryConstruct) pairsWith(FactoryConstructResult)               {}
func (ComponentConstruct) pairsWith(ComponentConstructResult)           {}
func (ComponentDestruct) pairsWith(Ack)                                 {}
func (ComponentInitialize) pairsWith(UniversalResult)                   {}
func (ComponentTerminate) pairsWith(UniversalResult)                    {}
func (ComponentSetActive) pairsWith(UniversalResult)                    {}
func (ComponentGetControllerClassID) pairsWith(ControllerClassIDResult) {}
func (QueryInterface) pairsWith(QueryInterfaceResult)                   {}
func (AudioProcessorSetProcessing) pairsWith(UniversalResult)           {}
func (AudioProcessorCanProcessSampleSize) pairsWith(UniversalResult)    {}
func (AudioProcessorProcess) pairsWith(ProcessResponse)                 {}
func (HostApplicationGetName) pairsWith(HostNameResult)                 {}
func (HostContextDestruct) pairsWith(Ack)                               {}

func (r ComponentDestruct) Target() InstanceID                  { return r.InstanceID }
func (r ComponentInitialize) Target() InstanceID                { return r.InstanceID }
func (r ComponentTerminate) Target() InstanceID                 { return r.InstanceID }
func (r ComponentSetActive) Target() InstanceID                 { return r.InstanceID }
func (r ComponentGetControllerClassID) Target() InstanceID      { return r.InstanceID }
func (r QueryInterface) Target() InstanceID                     { return r.InstanceID }
func (r AudioProcessorSetProcessing) Target() InstanceID        { return r.InstanceID }
func (r AudioProcessorCanProcessSampleSize) Target() InstanceID { return r.InstanceID }
func (r AudioProcessorProcess) Target() InstanceID              { return r.InstanceID }
func (r HostApplicationGetName) Target() InstanceID             { return r.InstanceID }
func (r HostContextDestruct) Target() InstanceID                { return r.InstanceID }

func (WantsConfiguration) Failure(UniversalResult) Response { return Configuration{} }
func (FactoryConstruct) Failure(code UniversalResult) Response {
	return FactoryConstructResult{Result: &code}
}
func (ComponentConstruct) Failure(code UniversalResult) Response {
	return ComponentConstructResult{Result: &code}
}
func (ComponentDestruct) Failure(UniversalResult) Response                { return Ack{} }
func (ComponentInitialize) Failure(code UniversalResult) Response         { return code }
func (ComponentTerminate) Failure(code UniversalResult) Response          { return code }
func (ComponentSetActive) Failure(code UniversalResult) Response          { return code }
func (AudioProcessorSetProcessing) Failure(code UniversalResult) Response { return code }
func (AudioProcessorCanProcessSampleSize) Failure(code UniversalResult) Response {
	return code
}
func (ComponentGetControllerClassID) Failure(code UniversalResult) Response {
	return ControllerClassIDResult{Result: code}
}
func (QueryInterface) Failure(UniversalResult) Response {
	return QueryInterfaceResult{Unsupported: &Unsupported{}}
}
func (AudioProcessorProcess) Failure(code UniversalResult) Response {
	return ProcessResponse{Result: code}
}
func (HostApplicationGetName) Failure(code UniversalResult) Response {
	return HostNameResult{Result: code}
}
func (HostContextDestruct) Failure(UniversalResult) Response { return Ack{} }
