package world

import (
	"hash/fnv"
	"math/rand"

	"github.com/google/uuid"
)

// DefaultSeed is used when no seed is configured.
const DefaultSeed = "frog-pond"

// DeterministicSeedValue derives a stable int64 seed for a named stream.
func DeterministicSeedValue(rootSeed, label string) int64 {
	hasher := fnv.New64a()
	hasher.Write([]byte(rootSeed))
	hasher.Write([]byte{0})
	hasher.Write([]byte(label))
	sum := hasher.Sum64()
	if sum == 0 {
		sum = 1
	}
	return int64(sum)
}

func NewDeterministicRNG(rootSeed, label string) *rand.Rand {
	if rootSeed == "" {
		rootSeed = DefaultSeed
	}
	return rand.New(rand.NewSource(DeterministicSeedValue(rootSeed, label)))
}

// NewID draws a version 4 UUID from rng so that seeded runs reproduce ids.
func NewID(rng *rand.Rand) string {
	if rng == nil {
		return uuid.NewString()
	}
	id, err := uuid.NewRandomFromReader(rng)
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

func RandomGender(rng *rand.Rand) Gender {
	if rng.Intn(2) == 0 {
		return GenderMale
	}
	return GenderFemale
}

func RandomPosition(rng *rand.Rand) Position {
	return Position{X: rng.Float64(), Y: rng.Float64()}
}
