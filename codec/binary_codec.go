package codec

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"mini-bridge/message"
	"mini-bridge/plugin"
)

// BinaryCodec writes the Kind as a varint followed by the value's fields in
// protobuf wire format. Optional fields and variant alternatives are present
// or absent fields; nested aggregates are length-delimited sub-messages.
// Unknown field numbers are rejected rather than skipped, since the catalogue
// is fixed on both sides.
type BinaryCodec struct{}

func (c *BinaryCodec) Encode(v message.Value) ([]byte, error) {
	if v == nil {
		return nil, fmt.Errorf("%w: nil value", ErrMalformed)
	}
	if err := checkVariant(v); err != nil {
		return nil, err
	}
	e := &encoder{b: protowire.AppendVarint(make([]byte, 0, 32), uint64(v.Kind()))}

	switch v := v.(type) {
	case message.WantsConfiguration, message.FactoryConstruct, message.Ack:
	case message.ComponentConstruct:
		e.uid(1, v.CID)
	case message.ComponentDestruct:
		e.uint(1, uint64(v.InstanceID))
	case message.ComponentInitialize:
		e.uint(1, uint64(v.InstanceID))
		if v.HostContext != nil {
			e.message(2, func(e *encoder) { e.uint(1, uint64(v.HostContext.InstanceID)) })
		}
	case message.ComponentTerminate:
		e.uint(1, uint64(v.InstanceID))
	case message.ComponentSetActive:
		e.uint(1, uint64(v.InstanceID))
		e.bool(2, v.State)
	case message.ComponentGetControllerClassID:
		e.uint(1, uint64(v.InstanceID))
	case message.QueryInterface:
		e.uint(1, uint64(v.InstanceID))
		e.uid(2, v.IID)
	case message.AudioProcessorSetProcessing:
		e.uint(1, uint64(v.InstanceID))
		e.bool(2, v.State)
	case message.AudioProcessorCanProcessSampleSize:
		e.uint(1, uint64(v.InstanceID))
		e.int(2, v.SymbolicSampleSize)
	case message.AudioProcessorProcess:
		e.uint(1, uint64(v.InstanceID))
		e.message(2, func(e *encoder) { encodeProcessData(e, &v.Data) })
	case message.HostApplicationGetName:
		e.uint(1, uint64(v.InstanceID))
	case message.HostContextDestruct:
		e.uint(1, uint64(v.InstanceID))

	case message.UniversalResult:
		e.uint(1, uint64(v.Code))
		e.int(2, v.Raw)
	case message.Configuration:
		e.string(1, v.Version)
		e.int(2, v.LogVerbosity)
		if v.FrameRate != nil {
			e.doubleAlways(3, *v.FrameRate)
		}
		if v.Group != nil {
			e.stringAlways(4, *v.Group)
		}
		e.bool(5, v.HideDAW)
	case message.FactoryConstructResult:
		if v.Args != nil {
			e.message(1, func(e *encoder) { encodeFactoryArgs(e, v.Args) })
		} else {
			e.result(2, *v.Result)
		}
	case message.ComponentConstructResult:
		if v.Args != nil {
			e.message(1, func(e *encoder) {
				e.uint(1, uint64(v.Args.InstanceID))
				for _, iid := range v.Args.Interfaces {
					e.bytesAlways(2, iid[:])
				}
			})
		} else {
			e.result(2, *v.Result)
		}
	case message.QueryInterfaceResult:
		if v.Supported != nil {
			e.message(1, func(e *encoder) {
				e.uint(1, uint64(v.Supported.InstanceID))
				for _, iid := range v.Supported.Interfaces {
					e.bytesAlways(2, iid[:])
				}
			})
		} else {
			e.message(2, func(*encoder) {})
		}
	case message.ControllerClassIDResult:
		e.result(1, v.Result)
		e.uid(2, v.CID)
	case message.ProcessResponse:
		e.result(1, v.Result)
		for i := range v.Outputs {
			e.message(2, func(e *encoder) { encodeBus(e, &v.Outputs[i]) })
		}
	case message.HostNameResult:
		e.result(1, v.Result)
		e.string(2, v.Name)
	default:
		return nil, fmt.Errorf("%w: %T (%d)", ErrUnknownTag, v, uint16(v.Kind()))
	}
	return e.b, nil
}

func encodeFactoryArgs(e *encoder, a *message.FactoryConstructArgs) {
	e.message(1, func(e *encoder) {
		e.string(1, a.Info.Vendor)
		e.string(2, a.Info.URL)
		e.string(3, a.Info.Email)
		e.int(4, a.Info.Flags)
	})
	e.int(2, a.NumClasses)
	for i := range a.Classes {
		ci := &a.Classes[i]
		e.message(3, func(e *encoder) {
			e.uid(1, ci.CID)
			e.int(2, ci.Cardinality)
			e.string(3, ci.Category)
			e.string(4, ci.Name)
		})
	}
}

func encodeProcessData(e *encoder, d *plugin.ProcessData) {
	e.int(1, d.ProcessMode)
	e.int(2, d.SymbolicSampleSize)
	e.int(3, d.NumSamples)
	for i := range d.Inputs {
		e.message(4, func(e *encoder) { encodeBus(e, &d.Inputs[i]) })
	}
	for i := range d.Outputs {
		e.message(5, func(e *encoder) { encodeBus(e, &d.Outputs[i]) })
	}
}

func encodeBus(e *encoder, b *plugin.AudioBusBuffers) {
	e.uint(1, b.SilenceFlags)
	for _, ch := range b.Channels {
		e.doubles(2, ch)
	}
}

func (c *BinaryCodec) Decode(data []byte) (message.Value, error) {
	tag, n := protowire.ConsumeVarint(data)
	if n < 0 {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
	}
	if tag > 0xFFFF || !message.Kind(tag).Known() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownTag, tag)
	}
	kind := message.Kind(tag)
	body := data[n:]

	v, err := decodeValue(kind, body)
	if err == nil {
		err = checkVariant(v)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", kind, err)
	}
	return v, nil
}

func decodeValue(kind message.Kind, body []byte) (message.Value, error) {
	switch kind {
	case message.KindWantsConfiguration:
		return message.WantsConfiguration{}, noFields(body)
	case message.KindFactoryConstruct:
		return message.FactoryConstruct{}, noFields(body)
	case message.KindAck:
		return message.Ack{}, noFields(body)
	case message.KindComponentConstruct:
		var v message.ComponentConstruct
		err := eachField(body, func(f field) (err error) {
			if f.num != 1 {
				return f.unknown()
			}
			v.CID, err = f.uid()
			return err
		})
		return v, err
	case message.KindComponentDestruct:
		id, err := decodeTarget(body)
		return message.ComponentDestruct{InstanceID: id}, err
	case message.KindComponentTerminate:
		id, err := decodeTarget(body)
		return message.ComponentTerminate{InstanceID: id}, err
	case message.KindComponentGetControllerClassID:
		id, err := decodeTarget(body)
		return message.ComponentGetControllerClassID{InstanceID: id}, err
	case message.KindHostApplicationGetName:
		id, err := decodeTarget(body)
		return message.HostApplicationGetName{InstanceID: id}, err
	case message.KindHostContextDestruct:
		id, err := decodeTarget(body)
		return message.HostContextDestruct{InstanceID: id}, err
	case message.KindComponentInitialize:
		var v message.ComponentInitialize
		err := eachField(body, func(f field) (err error) {
			switch f.num {
			case 1:
				v.InstanceID, err = f.instanceID()
			case 2:
				var id message.InstanceID
				id, err = decodeNestedTarget(f)
				v.HostContext = &message.HostContextArgs{InstanceID: id}
			default:
				err = f.unknown()
			}
			return err
		})
		return v, err
	case message.KindComponentSetActive:
		var v message.ComponentSetActive
		err := eachField(body, func(f field) (err error) {
			switch f.num {
			case 1:
				v.InstanceID, err = f.instanceID()
			case 2:
				v.State, err = f.bool()
			default:
				err = f.unknown()
			}
			return err
		})
		return v, err
	case message.KindAudioProcessorSetProcessing:
		var v message.AudioProcessorSetProcessing
		err := eachField(body, func(f field) (err error) {
			switch f.num {
			case 1:
				v.InstanceID, err = f.instanceID()
			case 2:
				v.State, err = f.bool()
			default:
				err = f.unknown()
			}
			return err
		})
		return v, err
	case message.KindAudioProcessorCanProcessSampleSize:
		var v message.AudioProcessorCanProcessSampleSize
		err := eachField(body, func(f field) (err error) {
			switch f.num {
			case 1:
				v.InstanceID, err = f.instanceID()
			case 2:
				v.SymbolicSampleSize, err = f.int()
			default:
				err = f.unknown()
			}
			return err
		})
		return v, err
	case message.KindQueryInterface:
		var v message.QueryInterface
		err := eachField(body, func(f field) (err error) {
			switch f.num {
			case 1:
				v.InstanceID, err = f.instanceID()
			case 2:
				v.IID, err = f.uid()
			default:
				err = f.unknown()
			}
			return err
		})
		return v, err
	case message.KindAudioProcessorProcess:
		var v message.AudioProcessorProcess
		err := eachField(body, func(f field) (err error) {
			switch f.num {
			case 1:
				v.InstanceID, err = f.instanceID()
			case 2:
				var raw []byte
				if raw, err = f.bytes(); err == nil {
					err = decodeProcessData(raw, &v.Data)
				}
			default:
				err = f.unknown()
			}
			return err
		})
		return v, err

	case message.KindUniversalResult:
		return (field{typ: protowire.BytesType, raw: body}).result()
	case message.KindConfiguration:
		return decodeConfiguration(body)
	case message.KindFactoryConstructResult:
		var v message.FactoryConstructResult
		err := eachField(body, func(f field) (err error) {
			switch f.num {
			case 1:
				var raw []byte
				if raw, err = f.bytes(); err == nil {
					v.Args = new(message.FactoryConstructArgs)
					err = decodeFactoryArgs(raw, v.Args)
				}
			case 2:
				var r message.UniversalResult
				r, err = f.result()
				v.Result = &r
			default:
				err = f.unknown()
			}
			return err
		})
		return v, err
	case message.KindComponentConstructResult:
		var v message.ComponentConstructResult
		err := eachField(body, func(f field) (err error) {
			switch f.num {
			case 1:
				var args message.ComponentConstructArgs
				args.InstanceID, args.Interfaces, err = decodeInstanceWithInterfaces(f)
				v.Args = &args
			case 2:
				var r message.UniversalResult
				r, err = f.result()
				v.Result = &r
			default:
				err = f.unknown()
			}
			return err
		})
		return v, err
	case message.KindQueryInterfaceResult:
		var v message.QueryInterfaceResult
		err := eachField(body, func(f field) (err error) {
			switch f.num {
			case 1:
				var s message.Supported
				s.InstanceID, s.Interfaces, err = decodeInstanceWithInterfaces(f)
				v.Supported = &s
			case 2:
				var raw []byte
				if raw, err = f.bytes(); err == nil {
					err = noFields(raw)
				}
				v.Unsupported = &message.Unsupported{}
			default:
				err = f.unknown()
			}
			return err
		})
		return v, err
	case message.KindControllerClassIDResult:
		var v message.ControllerClassIDResult
		err := eachField(body, func(f field) (err error) {
			switch f.num {
			case 1:
				v.Result, err = f.result()
			case 2:
				v.CID, err = f.uid()
			default:
				err = f.unknown()
			}
			return err
		})
		return v, err
	case message.KindProcessResponse:
		var v message.ProcessResponse
		err := eachField(body, func(f field) (err error) {
			switch f.num {
			case 1:
				v.Result, err = f.result()
			case 2:
				var bus plugin.AudioBusBuffers
				var raw []byte
				if raw, err = f.bytes(); err == nil {
					err = decodeBus(raw, &bus)
				}
				v.Outputs = append(v.Outputs, bus)
			default:
				err = f.unknown()
			}
			return err
		})
		return v, err
	case message.KindHostNameResult:
		var v message.HostNameResult
		err := eachField(body, func(f field) (err error) {
			switch f.num {
			case 1:
				v.Result, err = f.result()
			case 2:
				v.Name, err = f.string()
			default:
				err = f.unknown()
			}
			return err
		})
		return v, err
	}
	return nil, fmt.Errorf("%w: %d", ErrUnknownTag, uint16(kind))
}

func noFields(body []byte) error {
	return eachField(body, func(f field) error { return f.unknown() })
}

func decodeTarget(body []byte) (message.InstanceID, error) {
	var id message.InstanceID
	err := eachField(body, func(f field) (err error) {
		if f.num != 1 {
			return f.unknown()
		}
		id, err = f.instanceID()
		return err
	})
	return id, err
}

func decodeNestedTarget(f field) (message.InstanceID, error) {
	raw, err := f.bytes()
	if err != nil {
		return 0, err
	}
	return decodeTarget(raw)
}

func decodeInstanceWithInterfaces(f field) (message.InstanceID, []plugin.UID, error) {
	var (
		id   message.InstanceID
		iids []plugin.UID
	)
	raw, err := f.bytes()
	if err != nil {
		return 0, nil, err
	}
	err = eachField(raw, func(f field) (err error) {
		switch f.num {
		case 1:
			id, err = f.instanceID()
		case 2:
			var iid plugin.UID
			iid, err = f.uid()
			iids = append(iids, iid)
		default:
			err = f.unknown()
		}
		return err
	})
	return id, iids, err
}

func decodeConfiguration(body []byte) (message.Configuration, error) {
	var v message.Configuration
	err := eachField(body, func(f field) (err error) {
		switch f.num {
		case 1:
			v.Version, err = f.string()
		case 2:
			v.LogVerbosity, err = f.int()
		case 3:
			var rate float64
			rate, err = f.double()
			v.FrameRate = &rate
		case 4:
			var group string
			group, err = f.string()
			v.Group = &group
		case 5:
			v.HideDAW, err = f.bool()
		default:
			err = f.unknown()
		}
		return err
	})
	return v, err
}

func decodeFactoryArgs(body []byte, a *message.FactoryConstructArgs) error {
	return eachField(body, func(f field) (err error) {
		switch f.num {
		case 1:
			var raw []byte
			if raw, err = f.bytes(); err != nil {
				return err
			}
			err = eachField(raw, func(f field) (err error) {
				switch f.num {
				case 1:
					a.Info.Vendor, err = f.string()
				case 2:
					a.Info.URL, err = f.string()
				case 3:
					a.Info.Email, err = f.string()
				case 4:
					a.Info.Flags, err = f.int()
				default:
					err = f.unknown()
				}
				return err
			})
		case 2:
			a.NumClasses, err = f.int()
		case 3:
			var raw []byte
			if raw, err = f.bytes(); err != nil {
				return err
			}
			var ci plugin.ClassInfo
			err = eachField(raw, func(f field) (err error) {
				switch f.num {
				case 1:
					ci.CID, err = f.uid()
				case 2:
					ci.Cardinality, err = f.int()
				case 3:
					ci.Category, err = f.string()
				case 4:
					ci.Name, err = f.string()
				default:
					err = f.unknown()
				}
				return err
			})
			a.Classes = append(a.Classes, ci)
		default:
			err = f.unknown()
		}
		return err
	})
}

func decodeProcessData(body []byte, d *plugin.ProcessData) error {
	return eachField(body, func(f field) (err error) {
		switch f.num {
		case 1:
			d.ProcessMode, err = f.int()
		case 2:
			d.SymbolicSampleSize, err = f.int()
		case 3:
			d.NumSamples, err = f.int()
		case 4, 5:
			var raw []byte
			if raw, err = f.bytes(); err != nil {
				return err
			}
			var bus plugin.AudioBusBuffers
			err = decodeBus(raw, &bus)
			if f.num == 4 {
				d.Inputs = append(d.Inputs, bus)
			} else {
				d.Outputs = append(d.Outputs, bus)
			}
		default:
			err = f.unknown()
		}
		return err
	})
}

func decodeBus(body []byte, b *plugin.AudioBusBuffers) error {
	return eachField(body, func(f field) (err error) {
		switch f.num {
		case 1:
			b.SilenceFlags, err = f.uint()
		case 2:
			var ch []float64
			ch, err = f.doubles()
			b.Channels = append(b.Channels, ch)
		default:
			err = f.unknown()
		}
		return err
	})
}

func (c *BinaryCodec) Type() CodecType {
	return CodecTypeBinary
}
