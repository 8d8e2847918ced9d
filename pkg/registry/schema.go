// pkg/registry/schema.go
package registry

type ProblemTypeRegistry struct {
	Version      string        `json:"version"`
	LastUpdated  string        `json:"lastUpdated"`
	ProblemTypes []ProblemType `json:"problemTypes"`
}

type ProblemType struct {
	ID          string   `json:"id"`
	DisplayName string   `json:"displayName"`
	Category    string   `json:"category"`
	Keywords    []string `json:"keywords"`
	Aliases     []string `json:"aliases,omitempty"`
}

// defaultProblemTypes is the catalogue used when no registry file is configured.
var defaultProblemTypes = []ProblemType{
	{
		ID:          "écran cassé",
		DisplayName: "Écran cassé",
		Category:    "display",
		Keywords:    []string{"écran", "vitre", "affichage"},
		Aliases:     []string{"ecran", "écran fissuré", "vitre cassée", "screen"},
	},
	{
		ID:          "batterie",
		DisplayName: "Batterie",
		Category:    "power",
		Keywords:    []string{"batterie", "autonomie", "alimentation"},
		Aliases:     []string{"battery", "batterie faible"},
	},
	{
		ID:          "dégât des eaux",
		DisplayName: "Dégât des eaux",
		Category:    "liquid",
		Keywords:    []string{"eau", "oxydation", "humidité", "désoxydation"},
		Aliases:     []string{"tombé dans l'eau", "oxydé", "water damage"},
	},
	{
		ID:          "charge",
		DisplayName: "Problème de charge",
		Category:    "power",
		Keywords:    []string{"charge", "connecteur", "port", "alimentation"},
		Aliases:     []string{"ne charge plus", "connecteur de charge", "charging"},
	},
	{
		ID:          "son",
		DisplayName: "Problème de son",
		Category:    "audio",
		Keywords:    []string{"son", "haut-parleur", "micro", "audio", "écouteur"},
		Aliases:     []string{"haut-parleur", "micro", "audio"},
	},
	{
		ID:          "caméra",
		DisplayName: "Caméra",
		Category:    "camera",
		Keywords:    []string{"caméra", "appareil photo", "objectif", "photo"},
		Aliases:     []string{"camera", "appareil photo"},
	},
	{
		ID:          "logiciel",
		DisplayName: "Problème logiciel",
		Category:    "software",
		Keywords:    []string{"logiciel", "système", "mise à jour", "déblocage", "données"},
		Aliases:     []string{"software", "bug", "bloqué"},
	},
	{
		ID:          "bouton",
		DisplayName: "Bouton défectueux",
		Category:    "hardware",
		Keywords:    []string{"bouton", "touche", "nappe"},
		Aliases:     []string{"bouton power", "bouton volume", "button"},
	},
}

// Default returns a copy of the built-in French catalogue.
func Default() *ProblemTypeRegistry {
	types := make([]ProblemType, len(defaultProblemTypes))
	for i, pt := range defaultProblemTypes {
		pt.Keywords = append([]string(nil), pt.Keywords...)
		pt.Aliases = append([]string(nil), pt.Aliases...)
		types[i] = pt
	}
	return &ProblemTypeRegistry{
		Version:      "1.0.0",
		LastUpdated:  "2024-01-01",
		ProblemTypes: types,
	}
}
