// Package identity generates the anonymous defaults applied when a user
// starts a session without filling in the intake form.
package identity

import "math/rand"

// PredefinedMessage is used when the user left the message field empty.
const PredefinedMessage = "I have something on my mind that I'd like to talk about."

var adjectives = []string{
	"Gentle", "Quiet", "Brave", "Hopeful", "Calm", "Kind",
	"Patient", "Warm", "Steady", "Bright", "Soft", "Honest",
}

var animals = []string{
	"Otter", "Sparrow", "Fox", "Heron", "Badger", "Wren",
	"Deer", "Owl", "Rabbit", "Seal", "Finch", "Bear",
}

// RandomName returns a friendly two-word pseudonym, e.g. "Quiet Heron".
func RandomName() string {
	return adjectives[rand.Intn(len(adjectives))] + " " + animals[rand.Intn(len(animals))]
}

// DisplayName returns name unchanged unless it is empty, in which case a
// random pseudonym is generated.
func DisplayName(name string) string {
	if name == "" {
		return RandomName()
	}
	return name
}

// OpeningMessage returns msg unchanged unless it is empty, in which case the
// predefined text is used.
func OpeningMessage(msg string) string {
	if msg == "" {
		return PredefinedMessage
	}
	return msg
}
