package state

const (
	ColorAmber  = "#fbbf24"
	ColorSky    = "#0ea5e9"
	ColorPurple = "#a855f7"
	ColorSlate  = "#64748b"
)

type IconDetails struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// GetDeviceIconDetails maps a device's type, state and activity level to an
// icon name and color. activityLevel > 0 marks an in-progress action and
// counts as active for every type. Coffee machines only look at
// activityLevel.
func GetDeviceIconDetails(t DeviceType, state string, activityLevel float64) IconDetails {
	isBrewing := activityLevel > 0
	isActive := IsActive(state) || isBrewing

	switch t {
	case TypeLight:
		if isActive {
			return IconDetails{Name: "lightbulb", Color: ColorAmber}
		}
		return IconDetails{Name: "lightbulb-outline", Color: ColorSlate}
	case TypeWindow:
		if isActive {
			return IconDetails{Name: "window-open-variant", Color: ColorSky}
		}
		return IconDetails{Name: "window-closed-variant", Color: ColorSlate}
	case TypeDoor:
		if isActive {
			return IconDetails{Name: "door-open", Color: ColorSky}
		}
		return IconDetails{Name: "door-closed", Color: ColorSlate}
	case TypeCoffeeMachine:
		if isBrewing {
			return IconDetails{Name: "coffee", Color: ColorPurple}
		}
		return IconDetails{Name: "coffee", Color: ColorSlate}
	default:
		return IconDetails{Name: "help-circle-outline", Color: ColorSlate}
	}
}

// Icon resolves the icon for d at the given activity level.
func (d Device) Icon(activityLevel float64) IconDetails {
	return GetDeviceIconDetails(d.Type, d.State, activityLevel)
}
