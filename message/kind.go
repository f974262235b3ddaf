package message

import "fmt"

// Kind is the tag that precedes every encoded value. Requests and responses
// share one tag space; tags are never reused for a different shape.
type Kind uint16

const (
	KindWantsConfiguration                 Kind = 1
	KindFactoryConstruct                   Kind = 2
	KindComponentConstruct                 Kind = 3
	KindComponentDestruct                  Kind = 4
	KindComponentInitialize                Kind = 5
	KindComponentTerminate                 Kind = 6
	KindComponentSetActive                 Kind = 7
	KindComponentGetControllerClassID      Kind = 8
	KindQueryInterface                     Kind = 9
	KindAudioProcessorSetProcessing        Kind = 10
	KindAudioProcessorCanProcessSampleSize Kind = 11
	KindAudioProcessorProcess              Kind = 12
	KindHostApplicationGetName             Kind = 13
	KindHostContextDestruct                Kind = 14

	KindAck                      Kind = 128
	KindUniversalResult          Kind = 129
	KindConfiguration            Kind = 130
	KindFactoryConstructResult   Kind = 131
	KindComponentConstructResult Kind = 132
	KindQueryInterfaceResult     Kind = 133
	KindControllerClassIDResult  Kind = 134
	KindProcessResponse          Kind = 135
	KindHostNameResult           Kind = 136
)

var kindNames = map[Kind]string{
	KindWantsConfiguration:                 "WantsConfiguration",
	KindFactoryConstruct:                   "FactoryConstruct",
	KindComponentConstruct:                 "ComponentConstruct",
	KindComponentDestruct:                  "ComponentDestruct",
	KindComponentInitialize:                "ComponentInitialize",
	KindComponentTerminate:                 "ComponentTerminate",
	KindComponentSetActive:                 "ComponentSetActive",
	KindComponentGetControllerClassID:      "ComponentGetControllerClassID",
	KindQueryInterface:                     "QueryInterface",
	KindAudioProcessorSetProcessing:        "AudioProcessorSetProcessing",
	KindAudioProcessorCanProcessSampleSize: "AudioProcessorCanProcessSampleSize",
	KindAudioProcessorProcess:              "AudioProcessorProcess",
	KindHostApplicationGetName:             "HostApplicationGetName",
	KindHostContextDestruct:                "HostContextDestruct",
	KindAck:                                "Ack",
	KindUniversalResult:                    "UniversalResult",
	KindConfiguration:                      "Configuration",
	KindFactoryConstructResult:             "FactoryConstructResult",
	KindComponentConstructResult:           "ComponentConstructResult",
	KindQueryInterfaceResult:               "QueryInterfaceResult",
	KindControllerClassIDResult:            "ControllerClassIDResult",
	KindProcessResponse:                    "ProcessResponse",
	KindHostNameResult:                     "HostNameResult",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", uint16(k))
}

// Known reports whether k is part of the catalogue.
func (k Kind) Known() bool {
	_, ok := kindNames[k]
	return ok
}

// IsRequest reports whether k tags a request.
func (k Kind) IsRequest() bool {
	return k.Known() && k < KindAck
}
