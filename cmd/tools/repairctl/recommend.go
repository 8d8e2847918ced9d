package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"repair-recommender/internal/availability"
	apiclient "repair-recommender/internal/common/http"
	"repair-recommender/internal/common/logger"
	"repair-recommender/internal/common/validation"
	"repair-recommender/internal/directory"
	"repair-recommender/internal/models"
	"repair-recommender/internal/recommendation"
	"repair-recommender/pkg/registry"

	"github.com/urfave/cli/v3"
)

func recommendCmd() *cli.Command {
	return &cli.Command{
		Name:  "recommend",
		Usage: "Rank repairers for one repair request",
		Description: `Runs the recommendation engine against a fixture file, or sends the
request to a running API when --server is given.`,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "fixture", Aliases: []string{"f"}, Usage: "repairer fixture (YAML or JSON)"},
			&cli.StringFlag{Name: "server", Aliases: []string{"s"}, Usage: "base URL of a running API"},
			&cli.StringFlag{Name: "problem", Aliases: []string{"p"}, Required: true, Usage: "problem type, e.g. \"écran cassé\""},
			&cli.StringFlag{Name: "brand", Usage: "device brand"},
			&cli.FloatFlag{Name: "lat", Required: true, Usage: "user latitude"},
			&cli.FloatFlag{Name: "lng", Required: true, Usage: "user longitude"},
			&cli.FloatFlag{Name: "max-distance", Usage: "search radius in km"},
			&cli.StringFlag{Name: "urgency", Value: string(models.UrgencyMedium), Usage: "low, medium or high"},
			&cli.StringSliceFlag{Name: "prioritize", Usage: "price, rating or speed (repeatable)"},
			&cli.FloatFlag{Name: "budget-min", Usage: "lowest acceptable price"},
			&cli.FloatFlag{Name: "budget-max", Usage: "highest acceptable price"},
			&cli.StringFlag{Name: "registry", Usage: "problem-type registry JSON (built-in when empty)"},
			&cli.StringFlag{Name: "availability", Value: "opening_hours", Usage: "opening_hours or none"},
			&cli.StringFlag{Name: "timezone", Value: "Europe/Paris", Usage: "timezone of opening hours"},
			&cli.DurationFlag{Name: "timeout", Value: 10 * time.Second, Usage: "request timeout"},
			outputFlag,
			formatFlag,
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			criteria, err := criteriaFromCmd(cmd)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(ctx, cmd.Duration("timeout"))
			defer cancel()

			var result *models.RecommendationResult
			switch {
			case cmd.String("server") != "":
				result, err = apiclient.NewClient(cmd.String("server"), cmd.Duration("timeout")).Recommend(ctx, criteria)
			case cmd.String("fixture") != "":
				result, err = recommendFromFixture(ctx, cmd, criteria)
			default:
				return fmt.Errorf("either --fixture or --server is required")
			}
			if err != nil {
				return err
			}
			return writeOutput(cmd, result)
		},
	}
}

// criteriaFromCmd builds the request document from flags and validates it
// with the same rules as the API.
func criteriaFromCmd(cmd *cli.Command) (models.RecommendationCriteria, error) {
	prefs := map[string]interface{}{
		"urgency": cmd.String("urgency"),
	}
	if cmd.IsSet("max-distance") {
		prefs["maxDistance"] = cmd.Float("max-distance")
	}
	for _, p := range cmd.StringSlice("prioritize") {
		switch p {
		case "price":
			prefs["prioritizePrice"] = true
		case "rating":
			prefs["prioritizeRating"] = true
		case "speed":
			prefs["prioritizeSpeed"] = true
		default:
			return models.RecommendationCriteria{}, fmt.Errorf("unknown priority %q (price, rating, speed)", p)
		}
	}

	doc := map[string]interface{}{
		"problemType": cmd.String("problem"),
		"userLocation": map[string]interface{}{
			"latitude":  cmd.Float("lat"),
			"longitude": cmd.Float("lng"),
		},
		"userPreferences": prefs,
	}
	if brand := cmd.String("brand"); brand != "" {
		doc["deviceBrand"] = brand
	}
	if cmd.IsSet("budget-min") || cmd.IsSet("budget-max") {
		doc["budget"] = map[string]interface{}{
			"min": cmd.Float("budget-min"),
			"max": cmd.Float("budget-max"),
		}
	}

	if res := validation.MustCriteriaValidator().ValidateCriteria(doc); !res.Valid {
		return models.RecommendationCriteria{}, res.Err()
	}

	var criteria models.RecommendationCriteria
	raw, err := json.Marshal(doc)
	if err != nil {
		return criteria, err
	}
	err = json.Unmarshal(raw, &criteria)
	return criteria, err
}

func recommendFromFixture(ctx context.Context, cmd *cli.Command, criteria models.RecommendationCriteria) (*models.RecommendationResult, error) {
	dir, err := directory.LoadFile(cmd.String("fixture"))
	if err != nil {
		return nil, err
	}

	reg, err := registry.LoadRegistry(cmd.String("registry"))
	if err != nil {
		return nil, err
	}

	var avail availability.Provider
	switch mode := cmd.String("availability"); mode {
	case "opening_hours":
		loc, err := availability.LoadLocation(cmd.String("timezone"))
		if err != nil {
			return nil, err
		}
		avail = availability.NewOpeningHours(loc)
	case "none":
	default:
		return nil, fmt.Errorf("unknown availability mode %q (opening_hours, none)", mode)
	}

	engine := recommendation.NewEngine(recommendation.DefaultConfig(), dir, avail,
		recommendation.WithKeywords(registry.NewResolver(reg, registry.DefaultFuzzyDistance)),
		recommendation.WithLogger(logger.NewNoOpLogger()),
	)
	return engine.FindOptimalRepairers(ctx, criteria)
}
