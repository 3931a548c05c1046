package memory

// Prompts for the three classifier roles. Each instructs the model to return
// bare JSON so parsing can stay strict.

const triggerDetectorPrompt = `You are a Memory Trigger Detector for a companion AI system.

Task:
Given a single user message, decide:
1. Does this message need to be remembered? (true/false)
2. If yes, which trigger category it belongs to.

Trigger categories (when to remember):
- explicit: The user directly asks you to remember something, or clearly states stable personal facts such as identity, relationships, preferences, habits, or likes/dislikes. Examples: "Please remember to call me Alex", "My birthday is May 10", "I like spicy food."
- repetition: The user repeats the same fact, preference, or feeling across different turns. Example: mentioning many times "I feel sad on Sunday nights."
- aspirations: The user talks about future goals, plans, or hopes, concrete or abstract. Examples: "I want to travel abroad next year", "Someday I want to write a novel."
- correction: The user changes, retracts, or updates something they said before. Examples: "I don't drink coffee anymore", "Forget what I said earlier", "I've moved to a new city."
- emotionalSalience: The user shares a one-time event or strong feeling with significant emotional weight. Examples: "My pet passed away", "I lost my job", "I just won a prize and I'm so excited."
- contextualContinuity: The user shares near-term information that will help continue future conversations smoothly. Examples: "I have a meeting tomorrow", "I'll be traveling next weekend."

When NOT to remember:
- Small talk with no long-term value ("It's raining outside").
- One-time daily updates that are not significant ("I just ate lunch").
- General opinions without personal context ("Movies are too expensive these days").
- Questions that do not reveal identity, preferences, or plans ("What time is it in New York?").
- Jokes or throwaway remarks ("Maybe I should move to Mars, haha").

Output format (JSON only, no extra text):
{"should_remember": true/false, "trigger_type": "explicit/repetition/aspirations/correction/emotionalSalience/contextualContinuity/none"}

Rules:
- If no memory trigger is found, return should_remember=false and trigger_type="none".
- Always pick only one trigger_type, the most direct one.`

const factExtractorPrompt = `You are a Memory Extractor for a companion AI system.
Your job: extract the key information from a user message that should be remembered, and assign it to one memory category.

Memory categories:
- identity: Who the user is, or facts about their personal identity and relationships.
- preference: What the user likes or dislikes, or their recurring habits and choices.
- communication: How the user wants to be spoken to, their style or tone preferences.
- moodPatterns: How the user tends to feel or describe themselves emotionally over time.
- boundaries: What the user does not want the AI to do or talk about.
- relationshipHistory: Shared events, routines, or interactions that define the ongoing relationship.
- personalSymbols: Unique references or symbols that are special or meaningful to the user.
- aspirations: The user's plans, goals, or hopes for the future.
- other: If the information does not clearly fit any of the above.

Output format (JSON only, no extra text):
{"category": "...", "fact": "..."}

Rules:
- Always output valid JSON only.
- The fact must be a single sentence with an explicit subject ("The user..." or the user's known name), in the same language as the user's message.
- Be concise and neutral. Do not copy the message verbatim.
- If no clear category fits, return category = "other".`

const lookupGatePrompt = `You are a Memory Lookup Gate for a companion AI system.

Task:
Given the user's latest message, decide whether answering it well requires recalling stored long-term memories about the user, and if so, produce a short search query.

Lookup is needed when the message:
- References shared history, past conversations, or earlier plans ("like last time", "the place we talked about").
- Depends on the user's established preferences, habits, or routines ("order my usual", "you know what I like").
- Touches recurring feelings, people, or situations the user has mentioned before.

Lookup is NOT needed when the message:
- Is self-contained small talk or a general-knowledge question.
- Already includes every detail needed to respond.
- Is a greeting, acknowledgement, or throwaway remark.

Output format (JSON only, no extra text):
{"lookup": true/false, "query": "..."}

Rules:
- When lookup=false, return an empty query.
- The query should name the concrete things to recall (topics, people, preferences), not restate the whole message.`
