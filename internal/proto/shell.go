package proto

// wl_compositor creates the two object families clients build surfaces from.
var compositorInterface = &Interface{
	Name:       "wl_compositor",
	Tag:        "WlCompositor",
	MaxVersion: 5,
	Requests: []Message{
		{Opcode: 0, Name: "create_surface", Args: []Arg{
			{Name: "id", Kind: KindNewID, Interface: "wl_surface"},
		}},
		{Opcode: 1, Name: "create_region", Args: []Arg{
			{Name: "id", Kind: KindNewID, Interface: "wl_region"},
		}},
	},
}

// wl_surface is the base drawable object; destroy is the universal
// destructor request (opcode 0, by convention).
var surfaceInterface = &Interface{
	Name:       "wl_surface",
	Tag:        "WlSurface",
	MaxVersion: 5,
	Requests: []Message{
		{Opcode: 0, Name: "destroy", Destructor: true},
	},
	Events: []Message{
		{Opcode: 0, Name: "enter", Args: []Arg{
			{Name: "output", Kind: KindObject, Interface: "wl_output"},
		}},
		{Opcode: 1, Name: "leave", Args: []Arg{
			{Name: "output", Kind: KindObject, Interface: "wl_output"},
		}},
	},
}

// wl_subsurface.destroy exercises the destroy-then-delete_id handshake.
var subsurfaceInterface = &Interface{
	Name:       "wl_subsurface",
	Tag:        "WlSubsurface",
	MaxVersion: 1,
	Requests: []Message{
		{Opcode: 0, Name: "destroy", Destructor: true},
		{Opcode: 1, Name: "set_position", Args: []Arg{
			{Name: "x", Kind: KindI32},
			{Name: "y", Kind: KindI32},
		}},
		{Opcode: 2, Name: "place_above", Args: []Arg{
			{Name: "sibling", Kind: KindObject, Interface: "wl_surface"},
		}},
		{Opcode: 3, Name: "place_below", Args: []Arg{
			{Name: "sibling", Kind: KindObject, Interface: "wl_surface"},
		}},
	},
}

// wl_keyboard has no requests of interest here; it exists purely as a
// real, distinct interface to mismatch wl_surface against.
var keyboardInterface = &Interface{
	Name:       "wl_keyboard",
	Tag:        "WlKeyboard",
	MaxVersion: 7,
}

// wl_output is the target of wl_surface's enter/leave events.
var outputInterface = &Interface{
	Name:       "wl_output",
	Tag:        "WlOutput",
	MaxVersion: 4,
}

// wl_region backs wl_compositor.create_region.
var regionInterface = &Interface{
	Name:       "wl_region",
	Tag:        "WlRegion",
	MaxVersion: 1,
	Requests: []Message{
		{Opcode: 0, Name: "destroy", Destructor: true},
	},
}

// xdg_wm_base.create_positioner is the canonical new_id-in-a-request case.
var xdgWmBaseInterface = &Interface{
	Name:       "xdg_wm_base",
	Tag:        "XdgWmBase",
	MaxVersion: 5,
	Requests: []Message{
		{Opcode: 0, Name: "destroy", Destructor: true},
		{Opcode: 1, Name: "create_positioner", Args: []Arg{
			{Name: "id", Kind: KindNewID, Interface: "xdg_positioner"},
		}},
		{Opcode: 2, Name: "get_xdg_surface", Args: []Arg{
			{Name: "id", Kind: KindNewID, Interface: "xdg_surface"},
			{Name: "surface", Kind: KindObject, Interface: "wl_surface"},
		}},
	},
	Events: []Message{
		{Opcode: 0, Name: "ping", Args: []Arg{
			{Name: "serial", Kind: KindU32},
		}},
	},
}

var xdgPositionerInterface = &Interface{
	Name:       "xdg_positioner",
	Tag:        "XdgPositioner",
	MaxVersion: 5,
	Requests: []Message{
		{Opcode: 0, Name: "destroy", Destructor: true},
	},
}

var xdgSurfaceInterface = &Interface{
	Name:       "xdg_surface",
	Tag:        "XdgSurface",
	MaxVersion: 5,
	Requests: []Message{
		{Opcode: 0, Name: "destroy", Destructor: true},
	},
}

// zxdg_output_v1.destroy takes no arguments, so any non-header payload
// on it is excess.
var xdgOutputInterface = &Interface{
	Name:       "zxdg_output_v1",
	Tag:        "ZxdgOutputV1",
	MaxVersion: 3,
	Requests: []Message{
		{Opcode: 0, Name: "destroy", Destructor: true},
	},
}
