package main

import (
	"context"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/knowledgelearning/backend/core/catalog"
)

type (
	seedLesson struct {
		title string
		price int64
	}
	seedCursus struct {
		name    string
		price   int64
		lessons []seedLesson
	}
	seedTheme struct {
		name   string
		cursus []seedCursus
	}
)

// initialCatalog is the launch catalog.
var initialCatalog = []seedTheme{
	{
		name: "Musique",
		cursus: []seedCursus{
			{name: "Initiation à la guitare", price: 50, lessons: []seedLesson{
				{title: "Découverte de l'instrument", price: 26},
				{title: "Les accords et les gammes", price: 26},
			}},
			{name: "Initiation au piano", price: 50, lessons: []seedLesson{
				{title: "Découverte de l'instrument", price: 26},
				{title: "Les accords et les gammes", price: 26},
			}},
		},
	},
	{
		name: "Informatique",
		cursus: []seedCursus{
			{name: "Initiation au développement web", price: 60, lessons: []seedLesson{
				{title: "Les langages Html et CSS", price: 32},
				{title: "Dynamiser votre site avec Javascript", price: 32},
			}},
		},
	},
	{
		name: "Jardinage",
		cursus: []seedCursus{
			{name: "Initiation au jardinage", price: 30, lessons: []seedLesson{
				{title: "Les outils du jardinier", price: 16},
				{title: "Jardiner avec la lune", price: 16},
			}},
		},
	},
	{
		name: "Cuisine",
		cursus: []seedCursus{
			{name: "Initiation à la cuisine", price: 44, lessons: []seedLesson{
				{title: "Les modes de cuisson", price: 23},
				{title: "Les saveurs", price: 23},
			}},
			{name: "Initiation à l'art du dressage culinaire", price: 48, lessons: []seedLesson{
				{title: "Mettre en œuvre le style dans l'assiette", price: 26},
				{title: "Harmoniser un repas à quatre plats", price: 26},
			}},
		},
	},
}

// populate loads the initial catalog. Themes already present are skipped so
// the command can be re-run safely.
func (cli *commandLine) populate() error {
	ctx := context.Background()
	svc := catalog.NewService(cli.catRepo)

	existing, err := svc.QueryThemes(ctx)
	if err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(existing))
	for _, thm := range existing {
		seen[thm.Name] = struct{}{}
	}

	for _, st := range initialCatalog {
		if _, ok := seen[st.name]; ok {
			logger.Printf("theme %q already present; skipping", st.name)
			continue
		}

		thm, err := svc.CreateTheme(ctx, catalog.NewTheme{Name: st.name})
		if err != nil {
			return errors.Wrapf(err, "creating theme %q", st.name)
		}

		for _, sc := range st.cursus {
			cur, err := svc.CreateCursus(ctx, catalog.NewCursus{
				ThemeID: thm.ID,
				Name:    sc.name,
				Price:   decimal.NewFromInt(sc.price),
			})
			if err != nil {
				return errors.Wrapf(err, "creating cursus %q", sc.name)
			}

			for i, sl := range sc.lessons {
				_, err := svc.CreateLesson(ctx, catalog.NewLesson{
					CursusID: cur.ID,
					Title:    sl.title,
					Price:    decimal.NewFromInt(sl.price),
					Position: i + 1,
				})
				if err != nil {
					return errors.Wrapf(err, "creating lesson %q", sl.title)
				}
			}
		}
		logger.Printf("theme %q loaded", st.name)
	}
	return nil
}
