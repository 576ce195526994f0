package proto

// zcosmic_overlap_notification_v1's toplevel_enter/toplevel_leave
// events must not be forwarded when the referenced toplevel object
// belongs to a different client than the receiver. SameClientOnly
// models that as a per-event registry policy rather than a universal
// dispatcher rule.
var overlapNotificationInterface = &Interface{
	Name:       "zcosmic_overlap_notification_v1",
	Tag:        "ZcosmicOverlapNotificationV1",
	MaxVersion: 1,
	Requests: []Message{
		{Opcode: 0, Name: "destroy", Destructor: true},
	},
	Events: []Message{
		{Opcode: 0, Name: "toplevel_enter", Args: []Arg{
			{Name: "toplevel", Kind: KindObject, Interface: "zcosmic_toplevel_handle_v1"},
			{Name: "x", Kind: KindI32},
			{Name: "y", Kind: KindI32},
			{Name: "width", Kind: KindI32},
			{Name: "height", Kind: KindI32},
		}, SameClientOnly: true},
		{Opcode: 1, Name: "toplevel_leave", Args: []Arg{
			{Name: "toplevel", Kind: KindObject, Interface: "zcosmic_toplevel_handle_v1"},
		}, SameClientOnly: true},
	},
}

var toplevelHandleInterface = &Interface{
	Name:       "zcosmic_toplevel_handle_v1",
	Tag:        "ZcosmicToplevelHandleV1",
	MaxVersion: 1,
}

func allInterfaces() []*Interface {
	return []*Interface{
		displayInterface,
		registryInterface,
		callbackInterface,
		compositorInterface,
		surfaceInterface,
		subsurfaceInterface,
		keyboardInterface,
		outputInterface,
		regionInterface,
		xdgWmBaseInterface,
		xdgPositionerInterface,
		xdgSurfaceInterface,
		xdgOutputInterface,
		drmLeaseDeviceInterface,
		drmLeaseRequestInterface,
		drmLeaseConnectorInterface,
		overlapNotificationInterface,
		toplevelHandleInterface,
	}
}
