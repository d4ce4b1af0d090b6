// Package names generates human-friendly display names for swarm agents.
// Agent ids are stable hashes of the unit they own; the display name is the
// thing people read in dashboards and chat transcripts.
package names

import (
	"math/rand"
	"time"
)

var rng = rand.New(rand.NewSource(time.Now().UnixNano()))

var (
	adjectives = []string{
		"Patient", "Restless", "Meticulous", "Skeptical",
		"Curious", "Stubborn", "Cautious", "Relentless",
		"Quiet", "Vigilant", "Thorough", "Forgetful",
		"Pedantic", "Tireless", "Wary", "Diligent",
		"Grumpy", "Cheerful", "Methodical", "Obsessive",
	}

	nouns = []string{
		"Linter", "Parser", "Reviewer", "Archivist",
		"Cartographer", "Auditor", "Librarian", "Surveyor",
		"Scribe", "Inspector", "Curator", "Watchman",
		"Annotator", "Indexer", "Critic", "Historian",
		"Refactorer", "Profiler", "Tracer", "Gardener",
	}

	epithets = []string{
		"of the Call Graph", "of Dead Code", "of the Hot Path",
		"of Forgotten Branches", "of the Import Cycle",
		"of Unchecked Errors", "of the Long Function",
		"of Shadowed Variables", "of the Deep Nesting",
		"of Stale Comments",
		"", "", "", "", // most names skip the epithet
	}
)

// Generate returns a random display name like "Skeptical Auditor" or
// "Patient Cartographer of the Call Graph".
func Generate() string {
	adjective := adjectives[rng.Intn(len(adjectives))]
	noun := nouns[rng.Intn(len(nouns))]
	epithet := epithets[rng.Intn(len(epithets))]

	if epithet == "" {
		return adjective + " " + noun
	}
	return adjective + " " + noun + " " + epithet
}
