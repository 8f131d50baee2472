package prompt

// Template text for the four chatter categories. The format rules,
// speaker rosters and probability guidance mirror what EDCoPilot
// accepts in its Custom files.

const chitChatTemplate = `You are generating casual chit chat phrases for Elite Dangerous EDCoPilot.
The Chit Chat feature enables the CoPilot to say random phrases after a period of inactivity.

Generate exactly {num_entries} casual {category} phrases that are:
- Simple, standalone phrases spoken by EDCoPilot
- One phrase per line, plain text, no numbering and no surrounding tags

Phrases may include tokens that EDCoPilot replaces with live game data:
- <cmdrname> - Commander's name
- <starsystem> - Current star system
- <station> - Current station name
- <ship> - Ship name
- <credits> - Current credits

## Personalization Context

**Facts:**
{data}

**Recent News:**
{rss_summary}

Examples of proper chit chat format:
Hello <cmdrname>, how can I assist you today?
We are currently in the <starsystem> system.
Listened to a great GalNet article last night.

**PROBABILITY GUIDELINES:**
- Only {personalization_chance}% of phrases should include personal references (commander name, squadron, fleet carrier)
- Only {rss_chance}% of phrases should reference recent news
- All remaining phrases should be generic and not personalized

Additional style guidance:
{themes}
{conversation_styles}

Format the output as plain text with one phrase per line.`

const spaceChatterTemplate = `You are generating space-themed conversation content for Elite Dangerous EDCoPilot.
This content is used for conversations about space exploration, astronomy and space phenomena.

Generate exactly {num_entries} {category} conversation examples in the EDCoPilot format.

## Personalization Context

**Facts:**
{data}

**Themes:**
{themes}

**Conversation Styles:**
{conversation_styles}

**Recent News:**
{rss_summary}

IMPORTANT: Vary the conversation lengths naturally. Aim for this distribution:
- 40% short conversations (1-2 lines of dialogue)
- 35% medium conversations (3-4 lines of dialogue)
- 20% longer conversations (5-6 lines of dialogue)
- 5% extended conversations (7+ lines of dialogue)

Each conversation must be wrapped in [example]...[/example] tags.

Format:
[example]
[<Speaker>] (context-tags) Message content
[<Speaker>] Response content
[/example]

Available speakers:
- [<Helm>] - Navigation and piloting observations
- [<EDCoPilot>] - AI assistant responses about space
- [<Science>] - Scientific observations and analysis
- [<Operations>] - General space observations
- [<Tactical>] - Space hazards and navigation warnings
- [<Communications>] - Communications about space phenomena

Context tags (OPTIONAL, first line of a conversation only):
- (not-station) - skip while docked at or near a station
- (not-planet) - skip while on or approaching a planet
- (not-deep-space) - skip while far out in deep space

**PROBABILITY GUIDELINES:**
- Only {conditionals_chance}% of conversations should include context tags, and only on the first line
- Only {personalization_chance}% of conversations should include personal references
- Only {rss_chance}% of conversations should reference recent news or events

Generate conversations that are natural, varied in length, and themed around space.`

const crewChatterTemplate = `You are generating crew interaction conversation content for Elite Dangerous EDCoPilot.
This content is used for conversations between ship crew members about ship operations.

Generate exactly {num_entries} {category} conversation examples in the EDCoPilot format.

IMPORTANT: Vary the conversation lengths naturally. Aim for this distribution:
- 40% short conversations (1-2 lines of dialogue)
- 35% medium conversations (3-4 lines of dialogue)
- 20% longer conversations (5-6 lines of dialogue)
- 5% extended conversations (7+ lines of dialogue)

Each conversation must be wrapped in [example]...[/example] tags.

Format:
[example]
[<Speaker>] (context-tags) Message content
[<Speaker>] Response content
[/example]

Available speakers:
- [<Number1>] - First crew member
- [<Science>] - Scientific observations and analysis
- [<Helm>] - Navigation and piloting
- [<Operations>] - General operations and status
- [<Engineering>] - Ship systems and maintenance
- [<Comms>] - Communications and external contact
- [<EDCoPilot>] - The ship's computer
- [<Crew:Medical>], [<Crew:Tactical>], [<Crew:Maintenance>], [<Crew:Security>] - specialized crew roles

Context tags (OPTIONAL, first line of a conversation only):
- (not-station) - skip while docked at or near a station
- (not-planet) - skip while on or approaching a planet
- (not-deep-space) - skip while far out in deep space

## Personalization Context

**Facts:**
{data}

**Themes:**
{themes}

**Conversation Styles:**
{conversation_styles}

**Recent News:**
{rss_summary}

**PROBABILITY GUIDELINES:**
- Only {conditionals_chance}% of conversations should include context tags, and only on the first line
- Only {personalization_chance}% of conversations should include personal references
- Only {rss_chance}% of conversations should reference recent news or events

Generate conversations that are focused on ship operations, professional but friendly,
and realistic for a working spaceship crew.`

const deepSpaceChatterTemplate = `You are generating deep space exploration conversation content for Elite Dangerous EDCoPilot.
This content is used for conversations about deep space exploration, distant discoveries and the unknown.

Generate exactly {num_entries} {category} conversation examples in the EDCoPilot format.

IMPORTANT: Vary the conversation lengths naturally. Aim for this distribution:
- 40% short conversations (1-2 lines of dialogue)
- 35% medium conversations (3-4 lines of dialogue)
- 20% longer conversations (5-6 lines of dialogue)
- 5% extended conversations (7+ lines of dialogue)

Each conversation must be wrapped in [example]...[/example] tags.

Format:
[example]
[<Speaker>] (context-tags) Message content
[<Speaker>] Response content
[/example]

Available speakers:
- [<Number1>] - First crew member
- [<Science>] - Scientific observations and analysis
- [<Helm>] - Navigation and piloting
- [<Operations>] - General operations and status
- [<Engineering>] - Ship systems and maintenance
- [<Comms>] - Communications and external contact
- [<EDCoPilot>] - The ship's computer
- [<Crew:Medical>], [<Crew:Tactical>], [<Crew:Maintenance>], [<Crew:Security>] - specialized crew roles
- [<Ship1>], [<Ship2>], [<Ship3>], [<Ship4>] - occasional encounters with other vessels

Context tags (OPTIONAL, first line of a conversation only):
- (not-station) - skip while docked at or near a station
- (not-planet) - skip while on or approaching a planet
- (not-deep-space) - skip while far out in deep space

## Personalization Context

**Facts:**
{data}

**Themes:**
{themes}

**Conversation Styles:**
{conversation_styles}

**Recent News:**
{rss_summary}

**PROBABILITY GUIDELINES:**
- Only {conditionals_chance}% of conversations should include context tags, and only on the first line
- Only {personalization_chance}% of conversations should include personal references
- Only {rss_chance}% of conversations should reference recent news or events

Generate conversations with a sense of isolation and wonder, fitting crews thousands of
light years from inhabited space.`
