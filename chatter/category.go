package chatter

// Category identifies one of the four EDCoPilot custom chatter files.
type Category string

const (
	ChitChat         Category = "chit_chat"
	SpaceChatter     Category = "space_chatter"
	CrewChatter      Category = "crew_chatter"
	DeepSpaceChatter Category = "deep_space_chatter"
)

// AllCategories lists every supported category in generation order.
var AllCategories = []Category{ChitChat, SpaceChatter, CrewChatter, DeepSpaceChatter}

// Definition describes the file format rules for one category.
type Definition struct {
	FileName       string
	TemplateID     string
	HasSpeakers    bool
	Speakers       []string
	DefaultSpeaker string
	ValidTags      []string
}

// The official context tags. Chit chat carries none.
var officialTags = []string{"(not-station)", "(not-planet)", "(not-deep-space)"}

var definitions = map[Category]Definition{
	ChitChat: {
		FileName:    "EDCoPilot.ChitChat.Custom.txt",
		TemplateID:  "prompt_chit_chat",
		HasSpeakers: false,
	},
	SpaceChatter: {
		FileName:    "EDCoPilot.SpaceChatter.Custom.txt",
		TemplateID:  "prompt_space_chatter",
		HasSpeakers: true,
		Speakers: []string{
			"Helm", "EDCoPilot", "Science", "Operations", "Tactical", "Communications",
		},
		DefaultSpeaker: "Helm",
		ValidTags:      officialTags,
	},
	CrewChatter: {
		FileName:    "EDCoPilot.CrewChatter.Custom.txt",
		TemplateID:  "prompt_crew_chatter",
		HasSpeakers: true,
		Speakers: []string{
			"Number1", "Science", "Helm", "Operations", "Engineering", "Comms",
			"EDCoPilot", "Crew:Medical", "Crew:Tactical", "Crew:Maintenance", "Crew:Security",
		},
		DefaultSpeaker: "Number1",
		ValidTags:      officialTags,
	},
	DeepSpaceChatter: {
		FileName:    "EDCoPilot.DeepSpaceChatter.Custom.txt",
		TemplateID:  "prompt_deep_space_chatter",
		HasSpeakers: true,
		Speakers: []string{
			"Number1", "Science", "Helm", "Operations", "Engineering", "Comms",
			"EDCoPilot", "Crew:Medical", "Crew:Tactical", "Crew:Maintenance", "Crew:Security",
			"Ship1", "Ship2", "Ship3", "Ship4",
		},
		DefaultSpeaker: "Number1",
		ValidTags:      officialTags,
	},
}

// Lookup returns the definition for cat and whether cat is known.
func Lookup(cat Category) (Definition, bool) {
	def, ok := definitions[cat]
	return def, ok
}

// Valid reports whether cat names a supported category.
func Valid(cat Category) bool {
	_, ok := definitions[cat]
	return ok
}

func (d Definition) validSpeaker(name string) bool {
	for _, s := range d.Speakers {
		if s == name {
			return true
		}
	}
	return false
}

func (d Definition) validTag(tag string) bool {
	for _, t := range d.ValidTags {
		if t == tag {
			return true
		}
	}
	return false
}
