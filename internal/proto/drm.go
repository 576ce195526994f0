package proto

// wp_drm_lease_device_v1.drm_fd carries a single fd-typed argument, no
// payload words beyond the header, one ancillary fd per message.
var drmLeaseDeviceInterface = &Interface{
	Name:       "wp_drm_lease_device_v1",
	Tag:        "WpDrmLeaseDeviceV1",
	MaxVersion: 1,
	Requests: []Message{
		{Opcode: 0, Name: "create_lease_request", Args: []Arg{
			{Name: "id", Kind: KindNewID, Interface: "wp_drm_lease_request_v1"},
		}},
		{Opcode: 1, Name: "release", Destructor: true},
	},
	Events: []Message{
		{Opcode: 0, Name: "drm_fd", Args: []Arg{
			{Name: "fd", Kind: KindFd},
		}},
		{Opcode: 1, Name: "connector", Args: []Arg{
			{Name: "id", Kind: KindNewID, Interface: "wp_drm_lease_connector_v1"},
		}},
		{Opcode: 2, Name: "done"},
		{Opcode: 3, Name: "released", Destructor: true},
	},
}

var drmLeaseRequestInterface = &Interface{
	Name:       "wp_drm_lease_request_v1",
	Tag:        "WpDrmLeaseRequestV1",
	MaxVersion: 1,
}

var drmLeaseConnectorInterface = &Interface{
	Name:       "wp_drm_lease_connector_v1",
	Tag:        "WpDrmLeaseConnectorV1",
	MaxVersion: 1,
}
