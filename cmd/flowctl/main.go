// README: Command-line client that runs the flows against the configured model.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"skyplan/internal/ai"
	"skyplan/internal/config"
	"skyplan/internal/flow"
	"skyplan/internal/infra"
	"skyplan/internal/maps"
	"skyplan/internal/modules/assistant"
	"skyplan/internal/modules/itinerary"
	"skyplan/internal/modules/queryparse"
	"skyplan/internal/modules/search"
)

func main() {
	app := &cli.App{
		Name:  "flowctl",
		Usage: "Run the travel flows from a terminal",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "mock",
				Usage: "Use the offline mock model instead of Gemini",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "parse",
				Usage:     "Extract destination, dates and other details from a query",
				ArgsUsage: "<query>",
				Action:    parseQuery,
			},
			{
				Name:      "search",
				Usage:     "Parse a query and list the canned flights",
				ArgsUsage: "<query>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "sort", Value: string(search.Best), Usage: "best, cheapest or fastest"},
				},
				Action: searchFlights,
			},
			{
				Name:  "itinerary",
				Usage: "Generate a travel itinerary",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "budget", Required: true},
					&cli.StringFlag{Name: "style", Required: true, Usage: "travel style"},
					&cli.StringFlag{Name: "interests", Required: true},
					&cli.StringFlag{Name: "duration", Required: true},
					&cli.StringFlag{Name: "location", Required: true, Usage: "location preferences"},
				},
				Action: generateItinerary,
			},
			{
				Name:   "chat",
				Usage:  "Talk to the booking assistant",
				Action: chat,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

type runtime struct {
	cfg    config.Config
	logger *zap.Logger
	engine *flow.Engine
	close  func()
}

func setup(c *cli.Context) (*runtime, error) {
	if c.Bool("mock") {
		if err := os.Setenv("SKYPLAN_AI_MODE", config.AIModeMock); err != nil {
			return nil, err
		}
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger, err := infra.NewLogger(cfg.Env)
	if err != nil {
		return nil, err
	}
	gen, closeGen, err := ai.NewGenerator(c.Context, ai.Options{
		Mock:        cfg.MockAI(),
		APIKey:      cfg.AI.GeminiKey,
		Model:       cfg.AI.Model,
		Temperature: cfg.AI.Temperature,
	}, logger)
	if err != nil {
		return nil, err
	}
	return &runtime{
		cfg:    cfg,
		logger: logger,
		engine: flow.NewEngine(gen, logger),
		close: func() {
			closeGen()
			_ = logger.Sync()
		},
	}, nil
}

func (r *runtime) timeout(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, r.cfg.AI.FlowTimeout)
}

func printJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}

func queryArg(c *cli.Context) (string, error) {
	q := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if q == "" {
		return "", errors.New("a query is required")
	}
	return q, nil
}

func parseQuery(c *cli.Context) error {
	q, err := queryArg(c)
	if err != nil {
		return err
	}
	rt, err := setup(c)
	if err != nil {
		return err
	}
	defer rt.close()

	ctx, cancel := rt.timeout(c.Context)
	defer cancel()
	res, err := queryparse.NewService(rt.engine).Parse(ctx, q)
	if err != nil {
		return err
	}
	if res.Empty() {
		fmt.Println("Nothing could be extracted from the query.")
		return nil
	}
	return printJSON(res)
}

func searchFlights(c *cli.Context) error {
	q, err := queryArg(c)
	if err != nil {
		return err
	}
	rt, err := setup(c)
	if err != nil {
		return err
	}
	defer rt.close()

	ctx, cancel := rt.timeout(c.Context)
	defer cancel()
	parsed, err := queryparse.NewService(rt.engine).Parse(ctx, q)
	if err != nil {
		return err
	}
	flights, err := search.NewCannedProvider().Search(ctx, q)
	if err != nil {
		return err
	}

	order := search.ParseSortOrder(c.String("sort"))
	fmt.Printf("Destination: %q  Dates: %q\n", parsed.Destination, parsed.Dates)
	for i, f := range search.SortBy(flights, order) {
		fmt.Printf("%d. %-16s %-8s %-8s %d stop(s)\n", i+1, f.Airline, f.Price, f.Duration, f.Stops)
	}
	picks := search.SelectPicks(flights)
	if picks.Best != nil {
		fmt.Printf("Best: %s  Cheapest: %s  Fastest: %s\n", picks.Best.Airline, picks.Cheapest.Airline, picks.Fastest.Airline)
	}
	return nil
}

func generateItinerary(c *cli.Context) error {
	rt, err := setup(c)
	if err != nil {
		return err
	}
	defer rt.close()

	ctx, cancel := rt.timeout(c.Context)
	defer cancel()
	it, err := itinerary.NewService(rt.engine, nil, rt.logger).Generate(ctx, "", itinerary.Preferences{
		Budget:              c.String("budget"),
		TravelStyle:         c.String("style"),
		Interests:           c.String("interests"),
		Duration:            c.String("duration"),
		LocationPreferences: c.String("location"),
	})
	if err != nil {
		return err
	}
	fmt.Println(it.Text)
	return nil
}

func chat(c *cli.Context) error {
	rt, err := setup(c)
	if err != nil {
		return err
	}
	defer rt.close()

	var routes assistant.RouteProber
	if rt.cfg.Maps.APIKey != "" {
		routeSvc, err := maps.NewRouteService(rt.cfg.Maps.APIKey)
		if err != nil {
			return err
		}
		routes = routeSvc
	}
	sessions := assistant.NewSessions(
		assistant.NewService(rt.engine, search.NewCannedProvider(), routes, rt.logger),
		assistant.NewMemoryStore(),
	)
	conv, err := sessions.Start(c.Context, "")
	if err != nil {
		return err
	}

	fmt.Println("Where would you like to fly? (empty line to quit)")
	in := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !in.Scan() {
			return in.Err()
		}
		msg := strings.TrimSpace(in.Text())
		if msg == "" {
			return nil
		}

		// A turn makes at most two flow calls.
		ctx, cancel := context.WithTimeout(c.Context, 2*rt.cfg.AI.FlowTimeout)
		out, _, err := sessions.Send(ctx, conv.ID, "", msg)
		cancel()
		if err != nil && !out.Failed {
			return err
		}
		fmt.Println(out.Reply)
		if out.Picks != nil && out.Picks.Best != nil {
			fmt.Printf("[best: %s %s | cheapest: %s %s | fastest: %s %s]\n",
				out.Picks.Best.Airline, out.Picks.Best.Price,
				out.Picks.Cheapest.Airline, out.Picks.Cheapest.Price,
				out.Picks.Fastest.Airline, out.Picks.Fastest.Price)
		}
	}
}
