package engine

// Picker lookups. Each level narrows the previous one.

func DeviceListQuery() string {
	return "mlist device *"
}

func ChildListQuery(device string) string {
	return "mlist * " + quoted(device) + " *"
}

func AttributeListQuery(device, child string) string {
	return "mlist * " + quoted(device) + " " + quoted(child) + " *"
}

// EntityQuery picks the lookup for the deepest selector given.
func EntityQuery(device, child string) string {
	switch {
	case device != "" && child != "":
		return AttributeListQuery(device, child)
	case device != "":
		return ChildListQuery(device)
	}
	return DeviceListQuery()
}

// quoted wraps a name in double quotes without escaping it.
func quoted(name string) string {
	return `"` + name + `"`
}
