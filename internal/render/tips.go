package render

// GeneralTips is shown when no application-specific tip applies
var GeneralTips = []string{
	"Switch off appliances at the wall instead of leaving them on standby.",
	"Run heavy appliances (washing machine, iron, geyser) outside peak evening hours.",
	"Prefer natural light and ventilation during the day.",
	"Replace old incandescent and CFL bulbs with LEDs.",
	"Service air conditioners and refrigerators regularly to keep them efficient.",
}

var appTips = map[string]string{
	"Air Conditioner (Split 1.5 Ton)": "Tip: Set your thermostat to 24°C. Every degree below that can increase consumption by 6-8%. Clean filters monthly for optimal efficiency.",
	"Electric Water Heater (Geyser)":  "Tip: Geysers are high-wattage. Only turn on the geyser 15-20 minutes before use, or invest in a timer to heat water right before you need it.",
	"Refrigerator (Standard)":         "Tip: Check the door seals regularly. A poor seal can cause your fridge to run constantly, significantly increasing its daily consumption.",
	"Desktop Computer (Tower)":        "Tip: Don't leave your desktop running idle overnight. Use 'Sleep' mode when away for short periods, or shut down completely if idle for hours.",
	"LED Light Bulb (10W)":            "Tip: LEDs are already efficient, but make a habit of turning off lights in rooms you've left, and utilize natural daylight whenever possible.",
	"Electric Iron":                   "Tip: Iron a large batch of clothes at once. Heating the iron multiple times from cold uses a burst of energy each time.",
	"Washing Machine (Front Load)":    "Tip: Use the cold-water setting for laundry. Heating water accounts for about 90% of the energy used by a washing machine.",
	"Microwave Oven":                  "Tip: Only use the microwave when necessary. Use it instead of your oven (if possible) as it is generally more energy efficient for heating small items.",
	"Ceiling Fan":                     "Tip: Use the fan to circulate air from open windows in the evening, allowing you to avoid using the AC for longer.",
	"50-inch LED TV":                  "Tip: Reduce the brightness and contrast settings on your TV. This minor adjustment can lower the TV's energy use without impacting the viewing experience.",
	"Electric Kettle":                 "Tip: Only boil the amount of water you need. Overfilling the kettle wastes both water and electricity.",
}

// TipFor returns the tip registered for an application
func TipFor(appName string) (string, bool) {
	tip, ok := appTips[appName]
	return tip, ok
}

// ShowTipFor shows the specific tip for appName, or the general tips when there is none
func ShowTipFor(p Presenter, appName string) {
	if tip, ok := TipFor(appName); ok {
		p.ShowTip(appName, tip)
		return
	}
	p.ShowGeneralTips()
}
