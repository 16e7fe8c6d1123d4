package retrieval

import (
	"context"
	"strings"

	"github.com/dbhatt90/StudyBotAgent/types"
)

// ScenarioSearcher matches queries against a fixed corpus of prior-study
// scenarios by keyword. It stands in for the real vector backend in local
// runs and tests.
type ScenarioSearcher struct{}

type scenario struct {
	keywords []string
	result   types.SearchResult
}

var scenarios = []scenario{
	{
		keywords: []string{"yellow", "degrad", "weather", "uv", "outdoor", "color"},
		result: types.SearchResult{
			FoundFields: map[string]string{
				"Discipline":           "Material Science",
				"Technique Area":       "UV-Vis Spectroscopy",
				"Study Director":       "Dr. Sarah Martinez",
				"Study Director Site":  "Midland",
				"Sample Type":          "Polymer",
				"Special Instructions": "Test under accelerated UV exposure conditions",
			},
			NumResults: 4,
			SimilarStudies: []string{
				"Study #12890: Polymer degradation analysis under UV exposure - PE resins",
				"Study #12923: Yellowing investigation in polyethylene films",
				"Study #13001: Outdoor weathering effects on DOWLEX resins",
				"Study #13045: Color stability testing for Arizona climate exposure",
			},
		},
	},
	{
		keywords: []string{"gpc", "molecular weight", "mw", "polymer"},
		result: types.SearchResult{
			FoundFields: map[string]string{
				"Discipline":           "Separations",
				"Technique Area":       "GPC",
				"Study Director":       "Dr. Emily Carter",
				"Study Director Site":  "Freeport",
				"Sample Type":          "Polymer",
				"Special Instructions": "Use THF as solvent, measure at 40C",
			},
			NumResults: 3,
			SimilarStudies: []string{
				"Study #12345: Molecular weight distribution analysis for polyethylene",
				"Study #12389: GPC analysis for similar HDPE material",
				"Study #12567: MW characterization of branched polymers",
			},
		},
	},
	{
		keywords: []string{"dsc", "thermal", "melting", "crystallin", "temperature"},
		result: types.SearchResult{
			FoundFields: map[string]string{
				"Discipline":           "Material Science",
				"Technique Area":       "DSC",
				"Study Director":       "Dr. Robert Chen",
				"Study Director Site":  "Midland",
				"Sample Type":          "Polymer",
				"Special Instructions": "Run from -50C to 200C at 10C/min",
			},
			NumResults: 5,
			SimilarStudies: []string{
				"Study #13201: DSC analysis of polyethylene crystallinity",
				"Study #13245: Thermal properties of LLDPE resins",
				"Study #13289: Melting behavior characterization",
				"Study #13334: Glass transition temperature determination",
				"Study #13401: Thermal stability assessment",
			},
		},
	},
	{
		keywords: []string{"ftir", "infrared", "spectroscop", "functional group"},
		result: types.SearchResult{
			FoundFields: map[string]string{
				"Discipline":           "Material Science",
				"Technique Area":       "FTIR",
				"Study Director":       "Dr. Lisa Anderson",
				"Study Director Site":  "Pittsburg",
				"Sample Type":          "Coating",
				"Special Instructions": "ATR mode, 4000-600 cm-1 range",
			},
			NumResults: 3,
			SimilarStudies: []string{
				"Study #13501: FTIR identification of functional groups in coatings",
				"Study #13567: Infrared spectroscopy for quality control",
				"Study #13623: Chemical composition analysis via FTIR",
			},
		},
	},
	{
		keywords: []string{"nmr", "nuclear magnetic", "structure"},
		result: types.SearchResult{
			FoundFields: map[string]string{
				"Discipline":           "Material Science",
				"Technique Area":       "NMR",
				"Study Director":       "Dr. Michael Zhang",
				"Study Director Site":  "Freeport",
				"Sample Type":          "Polymer",
				"Special Instructions": "1H and 13C NMR in CDCl3",
			},
			NumResults: 2,
			SimilarStudies: []string{
				"Study #13701: NMR structural characterization of polymers",
				"Study #13789: Branch content determination via NMR",
			},
		},
	},
	{
		keywords: []string{"formulation", "composition", "blend", "additive"},
		result: types.SearchResult{
			FoundFields: map[string]string{
				"Discipline":           "Formulation Science",
				"Technique Area":       "HPLC",
				"Study Director":       "Dr. Amanda Foster",
				"Study Director Site":  "Midland",
				"Sample Type":          "Adhesive",
				"Special Instructions": "Quantify additive concentrations",
			},
			NumResults: 4,
			SimilarStudies: []string{
				"Study #13901: Additive analysis in polymer formulations",
				"Study #13956: Composition characterization of blends",
				"Study #14002: HPLC method for stabilizer quantification",
				"Study #14078: Formulation reverse engineering",
			},
		},
	},
}

var genericResult = types.SearchResult{
	FoundFields: map[string]string{
		"Discipline":          "Material Science",
		"Technique Area":      "Multiple Techniques",
		"Study Director":      "Dr. Jennifer Williams",
		"Study Director Site": "Midland",
		"Sample Type":         "Unknown",
	},
	NumResults: 2,
	SimilarStudies: []string{
		"Study #14123: General material characterization",
		"Study #14189: Multi-technique analysis approach",
	},
}

func (ScenarioSearcher) Search(ctx context.Context, query string) (*types.SearchResult, error) {
	normalized := strings.ToLower(query)
	for _, sc := range scenarios {
		for _, kw := range sc.keywords {
			if strings.Contains(normalized, kw) {
				result := sc.result
				return &result, nil
			}
		}
	}
	result := genericResult
	return &result, nil
}

var _ Searcher = (*ScenarioSearcher)(nil)
