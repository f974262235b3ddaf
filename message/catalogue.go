package message

// catalogue holds a constructor for a pointer to the zero value of every kind.
var catalogue = map[Kind]func() any{
	KindWantsConfiguration:                 func() any { return new(WantsConfiguration) },
	KindFactoryConstruct:                   func() any { return new(FactoryConstruct) },
	KindComponentConstruct:                 func() any { return new(ComponentConstruct) },
	KindComponentDestruct:                  func() any { return new(ComponentDestruct) },
	KindComponentInitialize:                func() any { return new(ComponentInitialize) },
	KindComponentTerminate:                 func() any { return new(ComponentTerminate) },
	KindComponentSetActive:                 func() any { return new(ComponentSetActive) },
	KindComponentGetControllerClassID:      func() any { return new(ComponentGetControllerClassID) },
	KindQueryInterface:                     func() any { return new(QueryInterface) },
	KindAudioProcessorSetProcessing:        func() any { return new(AudioProcessorSetProcessing) },
	KindAudioProcessorCanProcessSampleSize: func() any { return new(AudioProcessorCanProcessSampleSize) },
	KindAudioProcessorProcess:              func() any { return new(AudioProcessorProcess) },
	KindHostApplicationGetName:             func() any { return new(HostApplicationGetName) },
	KindHostContextDestruct:                func() any { return new(HostContextDestruct) },
	KindAck:                                func() any { return new(Ack) },
	KindUniversalResult:                    func() any { return new(UniversalResult) },
	KindConfiguration:                      func() any { return new(Configuration) },
	KindFactoryConstructResult:             func() any { return new(FactoryConstructResult) },
	KindComponentConstructResult:           func() any { return new(ComponentConstructResult) },
	KindQueryInterfaceResult:               func() any { return new(QueryInterfaceResult) },
	KindControllerClassIDResult:            func() any { return new(ControllerClassIDResult) },
	KindProcessResponse:                    func() any { return new(ProcessResponse) },
	KindHostNameResult:                     func() any { return new(HostNameResult) },
}

// New returns a pointer to the zero value tagged k, for decoders that fill a
// value in place.
func New(k Kind) (any, bool) {
	ctor, ok := catalogue[k]
	if !ok {
		return nil, false
	}
	return ctor(), true
}
