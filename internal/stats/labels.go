package stats

import "golang.org/x/text/language"

// Labels holds the abbreviations used for chart buckets. Days is indexed by
// time.Weekday, Months by time.Month-1.
type Labels struct {
	Days   [7]string
	Months [12]string
}

var (
	PolishLabels = Labels{
		Days:   [7]string{"ND", "PN", "WT", "ŚR", "CZ", "PT", "SB"},
		Months: [12]string{"STY", "LUT", "MAR", "KWI", "MAJ", "CZE", "LIP", "SIE", "WRZ", "PAŹ", "LIS", "GRU"},
	}
	EnglishLabels = Labels{
		Days:   [7]string{"SUN", "MON", "TUE", "WED", "THU", "FRI", "SAT"},
		Months: [12]string{"JAN", "FEB", "MAR", "APR", "MAY", "JUN", "JUL", "AUG", "SEP", "OCT", "NOV", "DEC"},
	}
)

// The first entry is the fallback when nothing in Accept-Language matches.
var (
	supportedLanguages = []language.Tag{language.Polish, language.English}
	labelSets          = []Labels{PolishLabels, EnglishLabels}
	languageMatcher    = language.NewMatcher(supportedLanguages)
)

// LabelsFor picks a label set for an Accept-Language header value.
func LabelsFor(acceptLanguage string) Labels {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return labelSets[0]
	}
	_, index, confidence := languageMatcher.Match(tags...)
	if confidence == language.No {
		return labelSets[0]
	}
	return labelSets[index]
}
