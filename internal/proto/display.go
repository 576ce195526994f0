package proto

// wl_display is the sentinel interface every connection binds at id 1.
// Its delete_id event is the universal id-reclamation mechanism;
// its error event is the last-resort teardown-with-reason report.
var displayInterface = &Interface{
	Name:       "wl_display",
	Tag:        "WlDisplay",
	MaxVersion: 1,
	Requests: []Message{
		{Opcode: 0, Name: "sync", Args: []Arg{
			{Name: "callback", Kind: KindNewID, Interface: "wl_callback"},
		}},
		{Opcode: 1, Name: "get_registry", Args: []Arg{
			{Name: "registry", Kind: KindNewID, Interface: "wl_registry"},
		}},
	},
	Events: []Message{
		{Opcode: 0, Name: "error", Args: []Arg{
			{Name: "object_id", Kind: KindObject, Nullable: true},
			{Name: "code", Kind: KindU32},
			{Name: "message", Kind: KindString},
		}},
		{Opcode: 1, Name: "delete_id", Args: []Arg{
			{Name: "id", Kind: KindU32},
		}},
	},
}

// wl_registry announces every interface from the catalogue at bind time
// and lets the client bind a new object to one of them.
var registryInterface = &Interface{
	Name:       "wl_registry",
	Tag:        "WlRegistry",
	MaxVersion: 1,
	Requests: []Message{
		{Opcode: 0, Name: "bind", Args: []Arg{
			{Name: "name", Kind: KindU32},
			{Name: "id", Kind: KindNewID, Interface: ""}, // interface resolved dynamically from "name"
		}},
	},
	Events: []Message{
		{Opcode: 0, Name: "global", Args: []Arg{
			{Name: "name", Kind: KindU32},
			{Name: "interface", Kind: KindString},
			{Name: "version", Kind: KindU32},
		}},
		{Opcode: 1, Name: "global_remove", Args: []Arg{
			{Name: "name", Kind: KindU32},
		}},
	},
}

// wl_callback carries the deprecated single-shot "done" completion
// event (named ready here to match the Open Question's vocabulary) plus
// its 64-bit-identity replacement ready2, both forwarded opaquely per
// the recorded decision not to transparently upgrade (registry.go).
var callbackInterface = &Interface{
	Name:       "wl_callback",
	Tag:        "WlCallback",
	MaxVersion: 2,
	Events: []Message{
		{Opcode: 0, Name: "ready", Args: []Arg{
			{Name: "data", Kind: KindU32},
		}, Destructor: true},
		{Opcode: 1, Name: "ready2", Args: []Arg{
			{Name: "data_hi", Kind: KindU32},
			{Name: "data_lo", Kind: KindU32},
		}, Since: 2, Destructor: true},
	},
}
