package domain

import (
	"fmt"
	"math/rand"
)

var (
	nameAdjectives = []string{
		"Swift", "Clever", "Ninja", "Cyber", "Digital", "Code", "Binary", "Quantum",
		"Pixel", "Logic", "Stealth", "Turbo", "Elite", "Prime", "Alpha", "Beta",
		"Gamma", "Delta", "Omega", "Neon", "Chrome", "Shadow", "Ghost", "Phantom",
		"Mystic", "Cosmic", "Atomic", "Electric", "Magnetic", "Sonic", "Hyper",
		"Ultra", "Mega", "Super", "Blazing", "Lightning", "Thunder", "Storm",
	}
	nameNouns = []string{
		"Coder", "Hacker", "Developer", "Programmer", "Engineer", "Architect", "Wizard",
		"Ninja", "Warrior", "Guardian", "Hunter", "Ranger", "Scout", "Agent", "Operative",
		"Pilot", "Captain", "Commander", "Chief", "Master", "Expert", "Guru", "Sage",
		"Phoenix", "Dragon", "Tiger", "Wolf", "Eagle", "Falcon", "Hawk", "Raven",
		"Viper", "Cobra", "Panther", "Lynx", "Fox", "Bear", "Lion", "Shark",
	}
)

// AnonymousName generates a display name like "CosmicFalcon42" for players without an identity.
func AnonymousName(rnd *rand.Rand) string {
	adj := nameAdjectives[rnd.Intn(len(nameAdjectives))]
	noun := nameNouns[rnd.Intn(len(nameNouns))]
	return fmt.Sprintf("%s%s%d", adj, noun, rnd.Intn(999)+1)
}
