package prediction

var culturalTable = map[Category]CulturalInfo{
	Do: {
		Pitch:     "Low tone (Yoruba low pitch)",
		Usage:     "Used for deep, resonant messages and greetings",
		Cultural:  "Represents stability and foundation in Yoruba music",
		Frequency: "85-120 Hz",
	},
	Re: {
		Pitch:     "Mid-low tone",
		Usage:     "Transitional tone in musical phrases",
		Cultural:  "Bridges low and mid range expressions",
		Frequency: "95-140 Hz",
	},
	Mi: {
		Pitch:     "Mid tone",
		Usage:     "Neutral tone for narrative communication",
		Cultural:  "Common in storytelling and proverbs",
		Frequency: "110-160 Hz",
	},
	Fa: {
		Pitch:     "Mid-high tone",
		Usage:     "Elevated expression and emphasis",
		Cultural:  "Used for important announcements",
		Frequency: "130-180 Hz",
	},
	So: {
		Pitch:     "High tone",
		Usage:     "Alert and attention-getting sounds",
		Cultural:  "Represents elevation and importance",
		Frequency: "150-220 Hz",
	},
	La: {
		Pitch:     "High-mid tone",
		Usage:     "Refined high-range communication",
		Cultural:  "Used in ceremonial contexts",
		Frequency: "180-250 Hz",
	},
	Ti: {
		Pitch:     "Highest tone (Yoruba high pitch)",
		Usage:     "Peak expression and climactic moments",
		Cultural:  "Represents highest level of emphasis",
		Frequency: "220-300 Hz",
	},
}

// CulturalInfoFor returns the reference annotation for a note.
func CulturalInfoFor(c Category) (CulturalInfo, bool) {
	info, ok := culturalTable[c]
	return info, ok
}

// Catalog builds the GET /notes body from the reference table.
func Catalog() NotesCatalog {
	cats := Categories()
	notes := make([]string, 0, len(cats))
	info := make(map[string]CulturalInfo, len(cats))

	for _, c := range cats {
		notes = append(notes, string(c))
		info[string(c)] = culturalTable[c]
	}

	return NotesCatalog{
		Notes:        notes,
		Count:        len(notes),
		CulturalInfo: info,
	}
}
