package catalog

import "sort"

// App describes a showcased application available for preview.
type App struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	URL         string `json:"url"`
	Description string `json:"description"`
}

var apps = map[string]App{
	"liverton-learning": {
		ID:          "liverton-learning",
		Name:        "Liverton Learning",
		URL:         "https://liverton-learning.vercel.app",
		Description: "Interactive educational platform with courses and quizzes.",
	},
	"liverton-quiz": {
		ID:          "liverton-quiz",
		Name:        "Liverton Quiz Championship",
		URL:         "https://liverton-quiz-championship.vercel.app",
		Description: "Competitive quiz platform with real-time leaderboards.",
	},
	"liverton-shoppers": {
		ID:          "liverton-shoppers",
		Name:        "Liverton Shoppers",
		URL:         "https://acxgsdueikbeg.ok.kimi.link",
		Description: "Modern e-commerce platform with seamless shopping.",
	},
	"longtail": {
		ID:          "longtail",
		Name:        "Longtail",
		URL:         "https://hc423tpiapnbg.ok.kimi.link/?sharetype=link",
		Description: "Business analytics dashboard with real-time insights.",
	},
}

// Lookup returns the registered app for the given identifier.
func Lookup(appID string) (App, bool) {
	app, ok := apps[appID]
	return app, ok
}

// IDs returns all registered app identifiers in stable order.
func IDs() []string {
	ids := make([]string, 0, len(apps))
	for id := range apps {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// All returns every registered app ordered by identifier.
func All() []App {
	listed := make([]App, 0, len(apps))
	for _, id := range IDs() {
		listed = append(listed, apps[id])
	}
	return listed
}
