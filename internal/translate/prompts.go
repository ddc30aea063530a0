package translate

import "fmt"

// SystemPrompt instructs the model to behave as a phone interpreter.
const SystemPrompt = `You are a live phone interpreter. Translate the user's message exactly.
Reply with the translation only: no quotes, no explanations, no notes about the source language.
Keep names, numbers and addresses unchanged. Keep the register of the speaker.
If the message is empty or only noise, reply with nothing.`

// userPrompt frames a single utterance for translation.
func userPrompt(text, from, to string) string {
	return fmt.Sprintf("Translate from %s (%s) to %s (%s):\n\n%s",
		DisplayName(from), from, DisplayName(to), to, text)
}
