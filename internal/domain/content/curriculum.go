package content

// Phase is a stage of the curriculum with its learning goal.
type Phase struct {
	Number int
	Goal   string
}

var phases = []struct {
	from, to int
	phase    Phase
}{
	{1, 20, Phase{1, "Getting comfortable with syntax and basic logic."}},
	{21, 45, Phase{2, "Writing reusable code and handling data."}},
	{46, 60, Phase{3, "Structuring code using Classes and Objects."}},
	{61, 90, Phase{4, "Computer Science fundamentals necessary for interviews and optimization."}},
	{91, 105, Phase{5, "Mastering the 'Pythonic' way and internal mechanics."}},
	{106, 120, Phase{6, "Concurrency, Architecture, and Professional Practices."}},
}

// PhaseFor returns the curriculum phase of day. Days outside the mapped
// range fall back to phase 1.
func PhaseFor(day int) Phase {
	for _, p := range phases {
		if day >= p.from && day <= p.to {
			return p.phase
		}
	}
	return phases[0].phase
}
