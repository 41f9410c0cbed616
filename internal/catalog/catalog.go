// Package catalog holds the fixed reference lists the generation
// driver enumerates, and the iterator over their cartesian product.
package catalog

import "iter"

// LevelType pairs a skill level with the kind of content produced for it.
type LevelType struct {
	Level string
	Type  string
}

// Catalog is one set of enumeration dimensions. The zero value is not
// useful; use Default() or build one explicitly (tests use small ones).
type Catalog struct {
	Topics         []string
	Languages      []string
	Frameworks     []string
	LevelTypes     []LevelType
	LearningStyles []string
}

// Combination is one point of the cartesian product.
type Combination struct {
	Topic         string
	Language      string
	Framework     string
	Level         string
	Type          string
	LearningStyle string
}

// Default returns the reference catalog: 10 topics, 10 languages,
// 10 frameworks, 2 level/type pairs, 4 learning styles — 8,000
// combinations per full run.
func Default() Catalog {
	return Catalog{
		Topics: []string{
			"Web Development",
			"Data Structures",
			"Algorithms",
			"Databases",
			"Machine Learning",
			"DevOps",
			"Mobile Development",
			"Cloud Computing",
			"Security",
			"Testing",
		},
		Languages: []string{
			"JavaScript",
			"Python",
			"Go",
			"Java",
			"TypeScript",
			"C#",
			"Ruby",
			"Rust",
			"Swift",
			"Kotlin",
		},
		Frameworks: []string{
			"React",
			"Django",
			"Gin",
			"Spring",
			"Angular",
			"ASP.NET",
			"Rails",
			"Actix",
			"SwiftUI",
			"Ktor",
		},
		LevelTypes: []LevelType{
			{Level: "beginner", Type: "guide"},
			{Level: "advanced", Type: "guide"},
		},
		LearningStyles: []string{
			"visual",
			"auditory",
			"reading",
			"kinesthetic",
		},
	}
}

// Size returns the number of combinations the catalog yields.
func (c Catalog) Size() int {
	return len(c.Topics) * len(c.Languages) * len(c.Frameworks) * len(c.LevelTypes) * len(c.LearningStyles)
}

// Combinations iterates the cartesian product in a fixed order:
// topic-major, then language, framework, level/type, learning style.
// The order is part of the contract — run logs and resume points
// depend on it being reproducible.
func (c Catalog) Combinations() iter.Seq[Combination] {
	return func(yield func(Combination) bool) {
		for _, topic := range c.Topics {
			for _, lang := range c.Languages {
				for _, fw := range c.Frameworks {
					for _, lt := range c.LevelTypes {
						for _, style := range c.LearningStyles {
							combo := Combination{
								Topic:         topic,
								Language:      lang,
								Framework:     fw,
								Level:         lt.Level,
								Type:          lt.Type,
								LearningStyle: style,
							}
							if !yield(combo) {
								return
							}
						}
					}
				}
			}
		}
	}
}
