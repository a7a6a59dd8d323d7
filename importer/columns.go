package importer

import (
	"sort"
	"strings"

	"github.com/nonsonwune/applicant_registry/registry"
)

// Column headers of the registry export.
const (
	ColumnFullName        = "ФИО"
	ColumnLastName        = "Фамилия"
	ColumnFirstName       = "Имя"
	ColumnPatronymic      = "Отчество"
	ColumnPhone           = "Телефон"
	ColumnVK              = "Профиль ВК"
	ColumnRegion          = "Регион"
	ColumnCity            = "Город"
	ColumnInstitution     = "Учебное заведение"
	ColumnCode            = "Код"
	ColumnRating          = "Рейтинг"
	ColumnOriginal        = "Оригинал"
	ColumnSubmissionDate  = "Дата подачи"
	ColumnBenefit         = "Льгота"
	ColumnBenefitPoints   = "Баллы льготы"
	ColumnParent          = "Родитель"
	ColumnParentPhone     = "Телефон родителя"
	ColumnRelation        = "Кем приходится"
	ColumnDepartmentVisit = "Дата посещения"
	ColumnNotes           = "Примечание"
	ColumnSource          = "Откуда узнал/а"
	ColumnDormitory       = "Общежитие"
)

// DefaultRequiredColumns must be present in every imported file.
var DefaultRequiredColumns = []string{ColumnFullName, ColumnPhone, ColumnCode, ColumnRating}

// minConfidence is the similarity above which a misspelt header is accepted.
const minConfidence = 0.8

// ColumnMapping copies one source column into the applicant input.
type ColumnMapping struct {
	SourceColumn  string
	TransformFunc func(value string, in *registry.ApplicantInput) error
}

func text(set func(*registry.ApplicantInput, string)) func(string, *registry.ApplicantInput) error {
	return func(v string, in *registry.ApplicantInput) error {
		set(in, transformString(v))
		return nil
	}
}

// DefaultColumnMappings covers the columns of the registry export.
func DefaultColumnMappings() []ColumnMapping {
	return []ColumnMapping{
		{ColumnFullName, func(v string, in *registry.ApplicantInput) error {
			if strings.TrimSpace(v) == "" {
				return nil
			}
			last, first, patronymic, err := splitFullName(v)
			if err != nil {
				return err
			}
			in.LastName, in.FirstName, in.Patronymic = last, first, patronymic
			return nil
		}},
		{ColumnLastName, text(func(in *registry.ApplicantInput, v string) { in.LastName = v })},
		{ColumnFirstName, text(func(in *registry.ApplicantInput, v string) { in.FirstName = v })},
		{ColumnPatronymic, text(func(in *registry.ApplicantInput, v string) { in.Patronymic = v })},
		{ColumnPhone, text(func(in *registry.ApplicantInput, v string) { in.Phone = v })},
		{ColumnVK, text(func(in *registry.ApplicantInput, v string) { in.VK = v })},
		{ColumnRegion, text(func(in *registry.ApplicantInput, v string) { in.Region = v })},
		{ColumnCity, text(func(in *registry.ApplicantInput, v string) { in.City = v })},
		{ColumnInstitution, text(func(in *registry.ApplicantInput, v string) { in.Institution = v })},
		{ColumnCode, text(func(in *registry.ApplicantInput, v string) { in.Code = v })},
		{ColumnRating, func(v string, in *registry.ApplicantInput) (err error) {
			in.BaseRating, err = transformFloat(v)
			return err
		}},
		{ColumnOriginal, func(v string, in *registry.ApplicantInput) (err error) {
			in.HasOriginal, err = transformBool(v)
			return err
		}},
		{ColumnSubmissionDate, func(v string, in *registry.ApplicantInput) (err error) {
			in.SubmissionDate, err = transformDate(v)
			return err
		}},
		{ColumnBenefit, text(func(in *registry.ApplicantInput, v string) { in.Benefit = v })},
		{ColumnBenefitPoints, func(v string, in *registry.ApplicantInput) (err error) {
			in.BenefitPoints, err = transformInt(v)
			return err
		}},
		{ColumnParent, text(func(in *registry.ApplicantInput, v string) { in.ParentName = v })},
		{ColumnParentPhone, text(func(in *registry.ApplicantInput, v string) { in.ParentPhone = v })},
		{ColumnRelation, text(func(in *registry.ApplicantInput, v string) { in.ParentRelation = v })},
		{ColumnDepartmentVisit, func(v string, in *registry.ApplicantInput) (err error) {
			in.DepartmentVisit, err = transformDate(v)
			return err
		}},
		{ColumnNotes, text(func(in *registry.ApplicantInput, v string) { in.Notes = v })},
		{ColumnSource, text(func(in *registry.ApplicantInput, v string) { in.Source = v })},
		{ColumnDormitory, func(v string, in *registry.ApplicantInput) (err error) {
			in.DormitoryNeeded, err = transformBool(v)
			return err
		}},
	}
}

func normalizeHeader(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, " ", "")
	return strings.ReplaceAll(s, "_", "")
}

// getColumnIndex returns the index of a column in headers
func getColumnIndex(headers []string, columnName string) int {
	want := normalizeHeader(columnName)
	for i, header := range headers {
		if normalizeHeader(header) == want {
			return i
		}
	}
	return -1
}

// ColumnMatch represents a potential column match with confidence score
type ColumnMatch struct {
	Index      int
	Header     string
	Confidence float64
}

// findBestColumnMatch ranks headers by edit distance to column.
func findBestColumnMatch(column string, headers []string) []ColumnMatch {
	want := []rune(normalizeHeader(column))
	var matches []ColumnMatch
	for i, header := range headers {
		got := []rune(normalizeHeader(header))
		longest := max(len(want), len(got))
		if longest == 0 {
			continue
		}
		confidence := 1 - float64(levenshteinDistance(want, got))/float64(longest)
		if confidence >= minConfidence {
			matches = append(matches, ColumnMatch{Index: i, Header: header, Confidence: confidence})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Confidence > matches[j].Confidence
	})
	return matches
}

func levenshteinDistance(a, b []rune) int {
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		cur[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

// resolveColumns maps every configured column to a header index. Exact
// matches win; otherwise the closest unused header above the confidence
// threshold is taken.
func resolveColumns(headers []string, mappings []ColumnMapping) map[string]int {
	idx := make(map[string]int, len(mappings))
	used := make(map[int]bool, len(headers))
	for _, m := range mappings {
		if i := getColumnIndex(headers, m.SourceColumn); i >= 0 {
			idx[m.SourceColumn] = i
			used[i] = true
		}
	}
	for _, m := range mappings {
		if _, ok := idx[m.SourceColumn]; ok {
			continue
		}
		for _, match := range findBestColumnMatch(m.SourceColumn, headers) {
			if !used[match.Index] {
				idx[m.SourceColumn] = match.Index
				used[match.Index] = true
				break
			}
		}
	}
	return idx
}
