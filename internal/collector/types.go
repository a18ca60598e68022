package collector

// Type names a data source. The string form is part of the host contract.
type Type string

const (
	Accelerometer   Type = "Accelerometer"
	Battery         Type = "Battery"
	Bluetooth       Type = "Bluetooth"
	CoarseLocation  Type = "CoarseLocation"
	Gravity         Type = "Gravity"
	Gyroscope       Type = "Gyroscope"
	Magnetometer    Type = "Magnetometer"
	Metadata        Type = "Metadata"
	Pointer         Type = "Pointer"
	PreciseLocation Type = "PreciseLocation"
	Stylus          Type = "Stylus"
	Touch           Type = "Touch"
	WiFi            Type = "WiFi"
)

var allTypes = []Type{
	Accelerometer,
	Battery,
	Bluetooth,
	CoarseLocation,
	Gravity,
	Gyroscope,
	Magnetometer,
	Metadata,
	Pointer,
	PreciseLocation,
	Stylus,
	Touch,
	WiFi,
}

// Types returns every supported collector type.
func Types() []Type {
	return append([]Type(nil), allTypes...)
}

// Parse maps a host string onto a Type.
func Parse(tag string) (Type, error) {
	t := Type(tag)
	if !t.Valid() {
		return "", unknownCollector(tag)
	}
	return t, nil
}

func (t Type) Valid() bool {
	_, ok := sensitive[t]
	return ok
}

// RequiresPermission reports whether collecting t needs a platform grant.
func (t Type) RequiresPermission() bool {
	return sensitive[t]
}

func (t Type) String() string {
	return string(t)
}

// sensitive holds every valid type; the value tells whether the platform
// permission subsystem is involved.
var sensitive = map[Type]bool{
	Accelerometer:   false,
	Battery:         false,
	Bluetooth:       true,
	CoarseLocation:  true,
	Gravity:         false,
	Gyroscope:       false,
	Magnetometer:    false,
	Metadata:        false,
	Pointer:         false,
	PreciseLocation: true,
	Stylus:          false,
	Touch:           false,
	WiFi:            true,
}
