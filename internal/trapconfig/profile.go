package trapconfig

// ProfileKind names one of the three collection profiles.
type ProfileKind string

const (
	ProfileDefault    ProfileKind = "default"
	ProfileLowBattery ProfileKind = "lowBattery"
	ProfileLowData    ProfileKind = "lowData"
)

// Signals are the live device conditions profile selection depends on.
type Signals struct {
	// BatteryLevel is the charge fraction in [0, 1]; negative means unknown.
	BatteryLevel float64
	Charging     bool
	LowData      bool
}

// UnknownSignals reports nothing, which selects the default profile.
func UnknownSignals() Signals {
	return Signals{BatteryLevel: -1}
}

// SelectProfile picks the profile that should be active under s.
// Low battery wins over low data.
func (c Config) SelectProfile(s Signals) ProfileKind {
	if s.BatteryLevel >= 0 && !s.Charging && s.BatteryLevel < c.LowBatteryThreshold {
		return ProfileLowBattery
	}
	if s.LowData {
		return ProfileLowData
	}
	return ProfileDefault
}

// Profile returns the named profile; unknown kinds yield the default one.
func (c Config) Profile(kind ProfileKind) DataCollection {
	switch kind {
	case ProfileLowBattery:
		return c.LowBatteryDataCollection.clone()
	case ProfileLowData:
		return c.LowDataDataCollection.clone()
	default:
		return c.DefaultDataCollection.clone()
	}
}
