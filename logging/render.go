package logging

import (
	"fmt"
	"strconv"
	"strings"

	"mini-bridge/message"
	"mini-bridge/plugin"
)

// RenderRequest formats req the way the call looks in the plugin API.
func RenderRequest(req message.Request) string {
	var b strings.Builder
	switch r := req.(type) {
	case message.WantsConfiguration:
		b.WriteString("Requesting <Configuration>")
	case message.FactoryConstruct:
		b.WriteString("GetPluginFactory()")
	case message.ComponentConstruct:
		fmt.Fprintf(&b, "IPluginFactory::createComponent(%s, IComponent::iid, &obj)", r.CID)
	case message.ComponentDestruct:
		fmt.Fprintf(&b, "<IComponent* #%d>::~IComponent()", r.InstanceID)
	case message.ComponentInitialize:
		fmt.Fprintf(&b, "<IComponent* #%d>::initialize(", r.InstanceID)
		if r.HostContext != nil {
			b.WriteString("IHostApplication*")
		} else {
			b.WriteString("nullptr")
		}
		b.WriteString(")")
	case message.ComponentTerminate:
		fmt.Fprintf(&b, "<IComponent* #%d>::terminate()", r.InstanceID)
	case message.ComponentSetActive:
		fmt.Fprintf(&b, "<IComponent* #%d>::setActive(%t)", r.InstanceID, r.State)
	case message.ComponentGetControllerClassID:
		fmt.Fprintf(&b, "<IComponent* #%d>::getControllerClassId(&classId)", r.InstanceID)
	case message.QueryInterface:
		fmt.Fprintf(&b, "<FUnknown* #%d>::queryInterface(%s, &obj)", r.InstanceID, iidName(r.IID))
	case message.AudioProcessorSetProcessing:
		fmt.Fprintf(&b, "<IAudioProcessor* #%d>::setProcessing(%t)", r.InstanceID, r.State)
	case message.AudioProcessorCanProcessSampleSize:
		fmt.Fprintf(&b, "<IAudioProcessor* #%d>::canProcessSampleSize(%s)", r.InstanceID, sampleSize(r.SymbolicSampleSize))
	case message.AudioProcessorProcess:
		fmt.Fprintf(&b, "<IAudioProcessor* #%d>::process(data with %d samples, %d input buses, %d output buses)",
			r.InstanceID, r.Data.NumSamples, len(r.Data.Inputs), len(r.Data.Outputs))
	case message.HostApplicationGetName:
		fmt.Fprintf(&b, "<IHostApplication* #%d>::getName(&name)", r.InstanceID)
	case message.HostContextDestruct:
		fmt.Fprintf(&b, "<IHostApplication* #%d>::~IHostApplication()", r.InstanceID)
	default:
		fmt.Fprintf(&b, "<%s>", req.Kind())
	}
	return b.String()
}

// RenderResponse formats resp as the value returned to the caller.
func RenderResponse(resp message.Response) string {
	switch r := resp.(type) {
	case message.Ack:
		return "ACK"
	case message.UniversalResult:
		return r.String()
	case message.Configuration:
		return "<Configuration>"
	case message.FactoryConstructResult:
		if r.Args != nil {
			return fmt.Sprintf("<IPluginFactory*> with %d registered classes", r.Args.NumClasses)
		}
		return r.Result.String()
	case message.ComponentConstructResult:
		if r.Args != nil {
			return fmt.Sprintf("<IComponent* #%d>", r.Args.InstanceID)
		}
		return r.Result.String()
	case message.QueryInterfaceResult:
		if r.Supported != nil {
			return fmt.Sprintf("<FUnknown* #%d>", r.Supported.InstanceID)
		}
		return message.Result(message.ResultNoInterface).String()
	case message.ControllerClassIDResult:
		return r.Result.String() + ", " + r.CID.String()
	case message.ProcessResponse:
		return fmt.Sprintf("%s, %d output buses", r.Result, len(r.Outputs))
	case message.HostNameResult:
		return r.Result.String() + ", " + strconv.Quote(r.Name)
	default:
		return fmt.Sprintf("<%s>", resp.Kind())
	}
}

func iidName(iid plugin.UID) string {
	if name := iid.Name(); name != "" {
		return name + "::iid"
	}
	return iid.String()
}

func sampleSize(symbolic int32) string {
	switch symbolic {
	case plugin.Sample32:
		return "kSample32"
	case plugin.Sample64:
		return "kSample64"
	default:
		return strconv.Itoa(int(symbolic))
	}
}
