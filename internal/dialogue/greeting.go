package dialogue

const (
	GreetingMorning   = "Buenos días"
	GreetingAfternoon = "Buenas tardes"
	GreetingEvening   = "Buenas noches"
)

// Greeting picks the salutation for a local hour of day.
func Greeting(hour int) string {
	switch {
	case hour >= 5 && hour < 12:
		return GreetingMorning
	case hour >= 12 && hour < 18:
		return GreetingAfternoon
	default:
		return GreetingEvening
	}
}
