package prompt

import "fmt"

// Options tunes the built-in news prompts without touching the dimension
// placeholders, which stay unresolved for Render.
type Options struct {
	// Language is the display name of the target language.
	Language string
	// DocsPerRequest is how many distinct documents one completion should
	// contain, separated by a </s> tag.
	DocsPerRequest int
	// CommonWords seeds the system prompt with vocabulary the model should
	// use naturally.
	CommonWords string
	// Exclamations lists interjections appropriate for informal registers.
	Exclamations string
}

// DefaultOptions returns the options used for the Nigerian Pidgin news corpus.
func DefaultOptions() Options {
	return Options{
		Language:       "Pidgin",
		DocsPerRequest: 15,
		CommonWords:    "wetin, dey, na, abi, walahi, omo, sey, fa",
		Exclamations:   "Chei!, Haba!, Ehen!",
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Language == "" {
		o.Language = d.Language
	}
	if o.DocsPerRequest <= 0 {
		o.DocsPerRequest = d.DocsPerRequest
	}
	if o.CommonWords == "" {
		o.CommonWords = d.CommonWords
	}
	if o.Exclamations == "" {
		o.Exclamations = d.Exclamations
	}
	return o
}

// NewsTemplate returns the user prompt template for formal/news generation.
// Dimension fields remain as {name} placeholders for Render.
func NewsTemplate(opts Options) string {
	opts = opts.withDefaults()
	return fmt.Sprintf(`Write a {genre} in Nigerian %[1]s about {topic}.

Context:
- Setting: {setting}
- Tone: {tone}
- Speaker: {speaker}
- Time frame: {time_period}
- Complexity: {complexity}

Requirements:
- Write %[2]d unique text documents, each with 250-600 words in %[1]s only (separated by a "</s>" tag)
- Maintain professional/formal style appropriate for the genre
- Use %[1]s naturally but keep it informative and structured
- Include relevant details and context for the topic
- Vary sentence structure and opening patterns

Return ONLY valid JSON:
{
  "title": "professional title in %[1]s",
  "content": "the full text of %[2]d unique documents in %[1]s language (ranging from 250-500 words and separated by a `+"`</s>`"+` tag)"
}`, opts.Language, opts.DocsPerRequest)
}

// NewsSystemPrompt returns the system prompt for formal/news generation.
func NewsSystemPrompt(opts Options) string {
	opts = opts.withDefaults()
	return fmt.Sprintf(`You are a professional Nigerian %[1]s speaker covering formal/news content.
Write authentic Nigerian %[1]s that is professional and informative.
Use common %[1]s words naturally: %[2]s.
Keep the tone appropriate for news, lectures, or formal articles.
Be clear and structured while staying authentic to %[1]s.
Avoid overly casual exclamations (%[3]s) unless contextually appropriate.
Focus on delivering information clearly in natural %[1]s.`, opts.Language, opts.CommonWords, opts.Exclamations)
}
