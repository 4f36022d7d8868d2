package toolbar

import (
	"sort"
	"strings"

	"github.com/rodrigo-brito/psviewer/model"
)

// TitleParams is the number of attribute values the title can show.
const TitleParams = 3

// TitleParam appends "<Label> <value of Field>" to the chart title.
type TitleParam struct {
	Label string
	Field int
}

// DefaultTitleParams are the labels offered before any field is picked.
var DefaultTitleParams = [TitleParams]TitleParam{
	{Label: "velocity"},
	{Label: "v_stdev"},
	{Label: "coherence"},
}

// TitleSource provides the attributes of the feature the title describes.
type TitleSource interface {
	FieldNames() map[int]string
	// Attributes returns the attributes of the latest selected feature,
	// false when there is none.
	Attributes() ([]any, bool)
}

func sortedIndexes(fieldNames map[int]string) []int {
	indexes := make([]int, 0, len(fieldNames))
	for index := range fieldNames {
		indexes = append(indexes, index)
	}
	sort.Ints(indexes)
	return indexes
}

// BuildTitle formats the title of a feature: "PS: <code>" when a field
// name starts with "code", followed by " <label> <value>" per param.
func BuildTitle(fieldNames map[int]string, attributes []any, params []TitleParam) string {
	var title strings.Builder
	code := ""
	for _, index := range sortedIndexes(fieldNames) {
		if strings.HasPrefix(strings.ToLower(fieldNames[index]), "code") {
			code = "PS: " + attributeText(attributes, index)
		}
	}
	title.WriteString(code)

	for _, param := range params {
		title.WriteString(" ")
		title.WriteString(param.Label)
		title.WriteString(" ")
		title.WriteString(attributeText(attributes, param.Field))
	}
	return title.String()
}

func attributeText(attributes []any, index int) string {
	if index < 0 || index >= len(attributes) {
		return ""
	}
	return model.Normalize(attributes[index]).String()
}

// PopulateTitleParams picks the field of every param: the last field whose
// name starts, ignoring case, with the label minus its last two characters.
// Params nothing matches keep the first field.
func PopulateTitleParams(fieldNames map[int]string, params [TitleParams]TitleParam) [TitleParams]TitleParam {
	indexes := sortedIndexes(fieldNames)
	if len(indexes) == 0 {
		return params
	}

	for i := range params {
		label := []rune(params[i].Label)
		prefix := ""
		if len(label) > 2 {
			prefix = strings.ToLower(string(label[:len(label)-2]))
		}

		params[i].Field = indexes[0]
		for _, index := range indexes {
			if strings.HasPrefix(strings.ToLower(fieldNames[index]), prefix) {
				params[i].Field = index
			}
		}
	}
	return params
}
