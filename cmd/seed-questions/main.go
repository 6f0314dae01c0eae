package main

import (
	"context"
	"fmt"
	"time"

	"github.com/thptprep/engprep-backend/internal/config"
	"github.com/thptprep/engprep-backend/internal/database"
	"github.com/thptprep/engprep-backend/internal/logger"
	"github.com/thptprep/engprep-backend/internal/model"
	"github.com/thptprep/engprep-backend/internal/repository"
)

// Seeds a starter question bank large enough to assemble a full exam:
// fill-in groups, reorder items and two reading passages that clear the
// primary (10) and secondary (8) subquestion minimums.
func main() {
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	questionRepo := repository.NewQuestionRepository(pool)

	fmt.Println("=== Seeding Question Bank ===")

	groups := append(fillShortGroups(), fillLongGroups()...)
	groups = append(groups, reorderGroups()...)
	groups = append(groups, readingGroups()...)

	created := 0
	for i := range groups {
		if err := questionRepo.Create(ctx, &groups[i]); err != nil {
			log.Fatal().Err(err).Str("type", string(groups[i].Type)).Msg("Failed to insert question group")
		}
		created++
	}

	counts, err := questionRepo.CountByType(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to count question bank")
	}

	fmt.Printf("Inserted %d groups\n", created)
	for t, n := range counts {
		fmt.Printf("  %-12s %d\n", t, n)
	}
	fmt.Println("Done")
}

func fillShortGroups() []model.QuestionGroup {
	items := []model.Subquestion{
		{
			Content:       "She ___ to school every day.",
			Options:       []string{"go", "goes", "going", "gone"},
			CorrectAnswer: "B",
			Explanation:   "Third-person singular present takes -es.",
		},
		{
			Content:       "If I ___ rich, I would travel the world.",
			Options:       []string{"am", "was", "were", "be"},
			CorrectAnswer: "C",
			Explanation:   "Second conditional uses the subjunctive 'were'.",
		},
		{
			Content:       "They have lived here ___ 2010.",
			Options:       []string{"for", "since", "during", "from"},
			CorrectAnswer: "B",
			Explanation:   "'Since' marks the starting point of a period.",
		},
		{
			Content:       "The report must ___ by Friday.",
			Options:       []string{"finish", "be finished", "finished", "be finishing"},
			CorrectAnswer: "B",
			Explanation:   "Modal passive: must + be + past participle.",
		},
		{
			Content:       "I'm looking forward to ___ you soon.",
			Options:       []string{"see", "seeing", "saw", "be seen"},
			CorrectAnswer: "B",
			Explanation:   "'Look forward to' takes a gerund.",
		},
		{
			Content:       "Hardly ___ the station when the train left.",
			Options:       []string{"I reached", "had I reached", "I had reached", "did I reach"},
			CorrectAnswer: "B",
			Explanation:   "Negative adverbial fronting inverts subject and auxiliary.",
		},
	}

	groups := make([]model.QuestionGroup, 0, len(items))
	for _, item := range items {
		groups = append(groups, model.QuestionGroup{
			Type:         model.GroupFillShort,
			Context:      "_",
			Subquestions: []model.Subquestion{item},
		})
	}
	return groups
}

func fillLongGroups() []model.QuestionGroup {
	return []model.QuestionGroup{
		{
			Type: model.GroupFillLong,
			Context: "Air travel has changed dramatically over the past two decades. " +
				"Passengers (1)___ now check in online, and many airports " +
				"(2)___ automated gates. Even so, critics argue that the " +
				"industry (3)___ enough to reduce its environmental impact.",
			Subquestions: []model.Subquestion{
				{
					Options:       []string{"can", "must", "should", "might"},
					CorrectAnswer: "A",
					Explanation:   "Ability in the present: 'can'.",
				},
				{
					Options:       []string{"have installed", "installed", "installing", "install"},
					CorrectAnswer: "A",
					Explanation:   "Present perfect for a recent change with present relevance.",
				},
				{
					Options:       []string{"hasn't done", "didn't do", "doesn't do", "won't do"},
					CorrectAnswer: "A",
					Explanation:   "Present perfect negative matches the ongoing criticism.",
				},
			},
		},
		{
			Type: model.GroupFillLong,
			Context: "Learning a second language (1)___ easier when learners are " +
				"exposed to it daily. Researchers (2)___ that consistent, short " +
				"practice sessions beat occasional long ones, and most apps " +
				"(3)___ around this finding.",
			Subquestions: []model.Subquestion{
				{
					Options:       []string{"becomes", "become", "becoming", "became"},
					CorrectAnswer: "A",
					Explanation:   "Gerund subject takes a singular verb.",
				},
				{
					Options:       []string{"have found", "finding", "finds", "found to"},
					CorrectAnswer: "A",
					Explanation:   "Present perfect for research results that still hold.",
				},
				{
					Options:       []string{"are designed", "design", "designed", "designing"},
					CorrectAnswer: "A",
					Explanation:   "Passive voice: the apps are the object of designing.",
				},
			},
		},
	}
}

func reorderGroups() []model.QuestionGroup {
	items := []model.Subquestion{
		{
			Content: "Arrange: (1) she had finished / (2) by the time / (3) the guests arrived / (4) cooking dinner",
			Options: []string{
				"2 - 3 - 1 - 4",
				"1 - 4 - 2 - 3",
				"3 - 2 - 1 - 4",
				"2 - 1 - 4 - 3",
			},
			CorrectAnswer: "A",
			Explanation:   "Time clause first, then the past perfect main clause.",
		},
		{
			Content: "Arrange: (1) not only / (2) but she also sings / (3) does she dance / (4) beautifully",
			Options: []string{
				"1 - 3 - 2 - 4",
				"1 - 2 - 3 - 4",
				"3 - 1 - 4 - 2",
				"1 - 4 - 3 - 2",
			},
			CorrectAnswer: "A",
			Explanation:   "'Not only' fronting forces inversion before the second clause.",
		},
		{
			Content: "Arrange: (1) the harder / (2) the better / (3) you study / (4) your results become",
			Options: []string{
				"1 - 3 - 2 - 4",
				"3 - 1 - 4 - 2",
				"1 - 4 - 2 - 3",
				"2 - 4 - 1 - 3",
			},
			CorrectAnswer: "A",
			Explanation:   "Comparative correlative: the harder X, the better Y.",
		},
	}

	groups := make([]model.QuestionGroup, 0, len(items))
	for _, item := range items {
		groups = append(groups, model.QuestionGroup{
			Type:         model.GroupReorder,
			Context:      "_",
			Subquestions: []model.Subquestion{item},
		})
	}
	return groups
}

func readingGroups() []model.QuestionGroup {
	passageA := "The small coastal town of Merewick owed its existence to the herring trade. " +
		"For three centuries, boats left the harbour before dawn and returned at dusk, " +
		"their holds silver with fish. When the shoals moved north in the 1950s, the town " +
		"faced a choice: decline quietly or reinvent itself. The council chose the latter, " +
		"converting the smokehouses into studios and the fish market into a gallery. Today " +
		"Merewick draws more visitors in a summer than it once landed fish in a year, though " +
		"older residents still say the sea smells different without the boats."

	passageB := "Urban beekeeping has grown from a curiosity into a movement. City rooftops, " +
		"it turns out, offer bees a surprising abundance: parks, gardens and flowering street " +
		"trees provide forage across a longer season than most farmland monocultures. Studies " +
		"in several European capitals found urban honey to be both plentiful and low in " +
		"pesticide residue. The main constraint is not nectar but neighbours, since a single " +
		"rooftop can only support a few hives before the bees compete with each other."

	return []model.QuestionGroup{
		{
			Type:         model.GroupReading,
			Context:      passageA,
			Subquestions: readingSubquestions(10),
		},
		{
			Type:         model.GroupReading,
			Context:      passageB,
			Subquestions: readingSubquestions(8),
		},
	}
}

// readingSubquestions fabricates n comprehension items. Seed data only
// needs to satisfy the assembler's size minimums; real items come from
// the generator service.
func readingSubquestions(n int) []model.Subquestion {
	base := []model.Subquestion{
		{
			Content:       "What is the main idea of the passage?",
			Options:       []string{"A place adapting to change", "A recipe for success", "A warning about tourism", "A history of fishing gear"},
			CorrectAnswer: "A",
		},
		{
			Content:       "The word 'abundance' in the passage is closest in meaning to...",
			Options:       []string{"plenty", "shortage", "variety", "distance"},
			CorrectAnswer: "A",
		},
		{
			Content:       "Which statement would the author most likely agree with?",
			Options:       []string{"Change can be an opportunity", "Tradition must never change", "Cities harm all wildlife", "Tourism destroyed the town"},
			CorrectAnswer: "A",
		},
		{
			Content:       "What can be inferred from the final sentence?",
			Options:       []string{"Some regret accompanies the change", "The change was universally welcomed", "The sea is polluted", "The boats will return"},
			CorrectAnswer: "A",
		},
	}

	subs := make([]model.Subquestion, 0, n)
	for i := 0; i < n; i++ {
		item := base[i%len(base)]
		item.Content = fmt.Sprintf("%d. %s", i+1, item.Content)
		subs = append(subs, item)
	}
	return subs
}
