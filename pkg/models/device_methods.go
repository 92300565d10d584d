package models

// Identifier returns the best available identity for the device: the record
// id when present, otherwise the IP, otherwise "unknown".
func (d *DeviceRecord) Identifier() string {
	if d.ID != "" {
		return d.ID
	}
	if d.IP != "" {
		return d.IP
	}
	return "unknown"
}

// HasOpenPort checks if the device reports the given port open.
func (d *DeviceRecord) HasOpenPort(port int) bool {
	for _, p := range d.Ports {
		if p == port {
			return true
		}
	}
	return false
}
