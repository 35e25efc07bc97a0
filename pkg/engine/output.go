package engine

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/car-advisor/advisor/pkg/profiles"
	"github.com/car-advisor/advisor/pkg/types"
)

// OutputJSON writes the diagnosis as indented JSON
func (r *DiagnosisResult) OutputJSON(w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(r)
}

// OutputCLI writes a human-readable diagnosis
func (r *DiagnosisResult) OutputCLI(w io.Writer) error {
	fmt.Fprintln(w, "\n╔════════════════════════════════════════════════════════════╗")
	fmt.Fprintln(w, "║           CAR ADVISOR DIAGNOSIS                            ║")
	fmt.Fprintln(w, "╚════════════════════════════════════════════════════════════╝")

	fmt.Fprintf(w, "\nProfile:  %s (%s)\n", r.Profile.Name, r.Result.Type)
	fmt.Fprintf(w, "Score:    %d\n", r.Result.Score)
	if r.Result.FellBack {
		fmt.Fprintf(w, "          ⚠ no profile reached the threshold, showing %s\n", r.Result.Type)
	}
	fmt.Fprintf(w, "\n  %s\n", r.Profile.Description)

	section(w, "SCORES BY PROFILE")
	for _, id := range types.ProfileOrder {
		marker := " "
		if id == r.Result.Type {
			marker = "▶"
		}
		fmt.Fprintf(w, "  %s %-28s %4d\n", marker, profiles.DisplayName(id), r.Result.AllScores[id])
	}

	if len(r.Contributions) > 0 {
		section(w, "CONTRIBUTING ANSWERS")
		for _, c := range r.Contributions {
			fmt.Fprintf(w, "  %-24s %-10s → %-9s +%d\n", c.Key, c.Value, c.Profile, c.Points)
		}
	}

	section(w, "RECOMMENDATIONS")
	for _, rec := range r.Profile.Recommendations {
		fmt.Fprintf(w, "  • %s\n", rec)
	}

	section(w, "SEARCH REQUEST")
	req := r.Request
	fmt.Fprintf(w, "  user_profile:     %s\n", req.UserProfile)
	if req.MaxPrice != "" {
		fmt.Fprintf(w, "  max_price:        %s万円\n", req.MaxPrice)
	}
	if req.MinSeats != "" {
		fmt.Fprintf(w, "  min_seats:        %s (%s)\n", req.MinSeats, req.PreferredSize)
	}
	if req.MinFuelEconomy != "" {
		fmt.Fprintf(w, "  min_fuel_economy: %skm/L\n", req.MinFuelEconomy)
	}
	if len(req.BodyTypes) > 0 {
		fmt.Fprintf(w, "  body_types:       %v\n", req.BodyTypes)
	}
	if len(req.FuelTypes) > 0 {
		fmt.Fprintf(w, "  fuel_types:       %v\n", req.FuelTypes)
	}
	fmt.Fprintln(w)

	return nil
}

// OutputJSON writes the rendered cards as indented JSON
func (r *RecommendResult) OutputJSON(w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(r)
}

// OutputCLI lists the rendered cards
func (r *RecommendResult) OutputCLI(w io.Writer) error {
	section(w, fmt.Sprintf("RECOMMENDED CARS (%d台)", r.Total))

	if len(r.Cards) == 0 {
		fmt.Fprintln(w, "  条件に合う車両が見つかりませんでした")
		fmt.Fprintln(w)
		return nil
	}

	for i, c := range r.Cards {
		fmt.Fprintf(w, "\n  %d. %s", i+1, c.Title)
		if c.ShowScore {
			fmt.Fprintf(w, "  [%g点]", c.Score)
		}
		fmt.Fprintln(w)
		fmt.Fprintf(w, "     価格帯: %s  燃費: %skm/L  タイプ: %s\n", c.Price, c.FuelEconomy, c.BodyType)
		if c.Reason != "" {
			fmt.Fprintf(w, "     %s\n", c.Reason)
		}
		fmt.Fprintf(w, "     %s\n", c.DetailURL)
	}
	fmt.Fprintln(w)
	return nil
}

func section(w io.Writer, title string) {
	fmt.Fprintln(w, "\n┌─────────────────────────────────────────────────────────────┐")
	fmt.Fprintf(w, "│ %-59s │\n", title)
	fmt.Fprintln(w, "└─────────────────────────────────────────────────────────────┘")
}
