package plugin

// capabilities maps the well-known ids to a check against the Go interface
// that implements them.
var capabilities = []struct {
	iid UID
	is  func(any) bool
}{
	{FUnknownIID, func(any) bool { return true }},
	{PluginBaseIID, func(o any) bool { _, ok := o.(PluginBase); return ok }},
	{ComponentIID, func(o any) bool { _, ok := o.(Component); return ok }},
	{AudioProcessorIID, func(o any) bool { _, ok := o.(AudioProcessor); return ok }},
	{PluginFactoryIID, func(o any) bool { _, ok := o.(Factory); return ok }},
	{HostApplicationIID, func(o any) bool { _, ok := o.(HostApplication); return ok }},
}

// Implements reports whether obj itself provides the interface iid.
func Implements(obj any, iid UID) bool {
	if obj == nil {
		return false
	}
	for _, c := range capabilities {
		if c.iid == iid {
			return c.is(obj)
		}
	}
	return false
}

// Capabilities lists the well-known interfaces obj provides, FUnknown first.
func Capabilities(obj any) []UID {
	if obj == nil {
		return nil
	}
	var out []UID
	for _, c := range capabilities {
		if c.is(obj) {
			out = append(out, c.iid)
		}
	}
	return out
}
