package pricing

type Region string

const (
	RegionInternational Region = "international"
	RegionIndia         Region = "india"
)

type Interval string

const (
	Monthly Interval = "monthly"
	Yearly  Interval = "yearly"
)

const (
	DefaultRegion   = RegionInternational
	DefaultInterval = Yearly
)

const BestValueLabel = "Best Value for Money - "

type Feature struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Plan is one row of the catalog. Plans with a non-empty Flat price are
// billed per unit of time and ignore the billing interval.
type Plan struct {
	Key       string
	Name      string
	Flat      string
	ByPeriod  map[Interval]string
	BestValue bool
	Features  []Feature
}

// planOrder is the display order shared by every region.
var planOrder = []string{"ultra_lite", "lite", "pro"}

const formats = "MP3, WAV, OGG, FLAC, AVI, MP4, MKV, AIFF, ACC"

func features(maxLength, mastered, stems, chords string) []Feature {
	return []Feature{
		{"Number of Tracks", "Any"},
		{"Input/Output Format", formats},
		{"Fast Processing", "Yes"},
		{"Maximum Song Length", maxLength},
		{"Maximum Length for Download", "Full Length"},
		{"Number of Mastered Song Downloads", mastered},
		{"Vocal/Basic/Advanced Stem Separation", "Yes"},
		{"Stem Download", stems},
		{"Batch Upload", "Yes"},
		{"Chords Conversion", "Yes"},
		{"Chords Download", chords},
	}
}

var catalog = map[Region]map[string]Plan{
	RegionInternational: {
		"ultra_lite": {
			Key:      "ultra_lite",
			Name:     "Ultra Lite",
			Flat:     "$1.99 per day",
			Features: features("5 minutes", "3 Tracks", "50 minutes", "3 Tracks"),
		},
		"lite": {
			Key:      "lite",
			Name:     "Lite",
			ByPeriod: map[Interval]string{Yearly: "$9.99", Monthly: "$19.99"},
			Features: features("Any", "100 per month", "500 minutes", "50 Tracks per month"),
		},
		"pro": {
			Key:       "pro",
			Name:      "Pro",
			ByPeriod:  map[Interval]string{Yearly: "$14.99", Monthly: "$29.99"},
			BestValue: true,
			Features:  features("Any", "200 per month", "800 Minutes", "100 Tracks per month"),
		},
	},
	RegionIndia: {
		"ultra_lite": {
			Key:      "ultra_lite",
			Name:     "Ultra Lite",
			Flat:     "Rs.99 per day",
			Features: features("5 minutes", "3 Tracks", "50 minutes", "3 Tracks"),
		},
		"lite": {
			Key:  "lite",
			Name: "Lite",
			ByPeriod: map[Interval]string{
				Yearly:  "Rs.150/month, Rs.1800 billed upfront",
				Monthly: "Rs.190/month",
			},
			Features: features("Any", "100 per month", "500 minutes", "20 Tracks"),
		},
		"pro": {
			Key:  "pro",
			Name: "Pro",
			ByPeriod: map[Interval]string{
				Yearly:  "Rs.250/month, Rs.3000 billed upfront",
				Monthly: "Rs.290/month",
			},
			BestValue: true,
			Features:  features("Any", "200 per month", "800 Minutes", "100 Tracks per month"),
		},
	},
}

func Regions() []Region { return []Region{RegionInternational, RegionIndia} }
func Intervals() []Interval { return []Interval{Monthly, Yearly} }
