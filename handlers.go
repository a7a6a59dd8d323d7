package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/nonsonwune/applicant_registry/compactor"
	"github.com/nonsonwune/applicant_registry/config"
	"github.com/nonsonwune/applicant_registry/models"
	"github.com/nonsonwune/applicant_registry/ranking"
	"github.com/nonsonwune/applicant_registry/registry"
)

func (a *app) listApplicants() {
	list := a.registry.Applicants()
	if len(list) == 0 {
		color.Yellow("\nРеестр пуст.")
		return
	}
	c := collate.New(language.Russian)
	sort.SliceStable(list, func(i, j int) bool {
		return c.CompareString(list[i].FullName(), list[j].FullName()) < 0
	})
	color.Yellow("\nАбитуриенты")
	renderApplicants(list)
}

func (a *app) searchApplicants() {
	query := prompt("Фамилия, имя или телефон")
	found := a.registry.Search(query)
	if len(found) == 0 {
		color.Yellow("Ничего не найдено.")
		return
	}
	renderApplicants(found)
}

func (a *app) filterApplicants() {
	field, err := readFilterField()
	if err != nil {
		printError(err)
		return
	}
	label := "Значение"
	if field == registry.FilterDormitory || field == registry.FilterOriginals {
		label += " (д/н)"
	}
	found, err := a.registry.Filter(field, prompt(label))
	if err != nil {
		printError(err)
		return
	}
	if len(found) == 0 {
		color.Yellow("Нет записей, соответствующих фильтру.")
		return
	}
	color.Yellow("\nФильтр: %s, найдено %d", field.Label(), len(found))
	renderApplicants(found)
}

func readFilterField() (registry.FilterField, error) {
	for i, f := range registry.FilterFields {
		fmt.Printf("%d. %s\n", i+1, f.Label())
	}
	s := prompt("Поле для фильтрации")
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > len(registry.FilterFields) {
		return "", fmt.Errorf("filter field %q: %w", s, models.ErrInvalidArgument)
	}
	return registry.FilterFields[n-1], nil
}

func renderApplicants(list []models.Applicant) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"ID", "ФИО", "Телефон", "Город", "Код", "Рейтинг", "Льгота", "Итого", "Оригинал", "Общежитие"})
	for i := range list {
		ap := &list[i]
		table.Append([]string{
			strconv.FormatInt(ap.ID, 10),
			ap.FullName(),
			ap.Phone,
			ap.CityName(),
			ap.Details.Code,
			fmt.Sprintf("%.2f", ap.Details.BaseRating),
			ap.BenefitName(),
			fmt.Sprintf("%.2f", ap.TotalRating()),
			yesNo(ap.HasOriginalDocuments()),
			yesNo(ap.Info.DormitoryNeeded),
		})
	}
	table.Render()
}

func (a *app) addApplicant(ctx context.Context) {
	color.Cyan("\nНовый абитуриент")
	in, err := readApplicantInput(registry.ApplicantInput{})
	if err != nil {
		printError(err)
		return
	}
	id, err := a.registry.Add(ctx, in)
	if err != nil {
		printError(err)
		return
	}
	color.Green("Абитуриент добавлен, ID %d.", id)
}

func (a *app) editApplicant(ctx context.Context) {
	id, ok := a.readID()
	if !ok {
		return
	}
	current, err := a.registry.Get(id)
	if err != nil {
		printError(err)
		return
	}
	color.Cyan("\nРедактирование: %s (пустой ввод сохраняет значение)", current.FullName())
	in, err := readApplicantInput(inputOf(current))
	if err != nil {
		printError(err)
		return
	}
	if err := a.registry.Update(ctx, id, in); err != nil {
		printError(err)
		return
	}
	color.Green("Данные абитуриента обновлены.")
}

func (a *app) deleteApplicant(ctx context.Context) {
	id, ok := a.readID()
	if !ok {
		return
	}
	current, err := a.registry.Get(id)
	if err != nil {
		printError(err)
		return
	}
	if !confirm(fmt.Sprintf("Удалить %s", current.FullName())) {
		fmt.Println("Удаление отменено.")
		return
	}
	report, err := a.registry.Delete(ctx, id)
	var cerr *models.CompactionError
	switch {
	case errors.As(err, &cerr):
		color.Red("Абитуриент удалён, но уплотнение не выполнено (шаг %s): %v", cerr.Step, cerr.Err)
		return
	case err != nil:
		printError(err)
		return
	}
	color.Green("Абитуриент удалён.")
	renderReport(report)
}

func (a *app) compactRegistry(ctx context.Context) {
	report, err := a.registry.Compact(ctx)
	if err != nil {
		printError(err)
		return
	}
	color.Green("Реестр уплотнён.")
	renderReport(report)
}

func renderReport(r *compactor.Report) {
	if r == nil {
		return
	}
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Таблица", "Строк"})
	table.AppendBulk([][]string{
		{"Абитуриенты", strconv.Itoa(r.Applicants)},
		{"Учебные заведения", strconv.Itoa(r.Institutions)},
		{"Родители", strconv.Itoa(r.Parents)},
		{"Льготы", strconv.Itoa(r.Benefits)},
		{"Источники информации", strconv.Itoa(r.InformationSources)},
		{"Связи с льготами", strconv.Itoa(r.BenefitLinks)},
		{"Объединено дубликатов", strconv.Itoa(r.DuplicatesMerged)},
	})
	table.SetFooter([]string{"Время", r.Duration.Round(time.Millisecond).String()})
	table.Render()
}

// classificationInputs takes the passing score and budget places from the
// config and asks only for the ones it leaves unset.
func classificationInputs(cfg *config.Config) (score float64, places int, err error) {
	if cfg.PassingScore != nil {
		score = *cfg.PassingScore
	} else if score, err = promptFloat("Проходной балл", ""); err != nil {
		return 0, 0, err
	}
	if cfg.BudgetPlaces != nil {
		places = *cfg.BudgetPlaces
	} else if places, err = promptInt("Бюджетных мест", ""); err != nil {
		return 0, 0, err
	}
	return score, places, nil
}

func (a *app) passingAnalysis() {
	score, places, err := classificationInputs(a.cfg)
	if err != nil {
		printError(err)
		return
	}

	ranked, err := a.registry.Classify(score, places)
	if err != nil {
		printError(err)
		return
	}
	color.Yellow("\nПроходной балл %.2f, бюджетных мест %d", score, places)
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Место", "ФИО", "Итого", "Оригинал", "Статус"})
	results := make([]ranking.ClassificationResult, 0, len(ranked))
	for _, r := range ranked {
		rank := "-"
		if r.Result.Rank != nil {
			rank = strconv.Itoa(*r.Result.Rank)
		}
		table.Append([]string{
			rank,
			r.Applicant.FullName(),
			fmt.Sprintf("%.2f", r.Result.TotalRating),
			yesNo(r.Applicant.HasOriginalDocuments()),
			tierColor(r.Result.Tier).Sprint(r.Result.Tier.Label()),
		})
		results = append(results, r.Result)
	}
	table.Render()

	headline, provisional := summaryLines(ranking.Summarize(results))
	color.Green("%s", headline)
	fmt.Println(provisional)
}

// summaryLines renders committed counts as the headline; provisional tiers
// are what-ifs and never take a seat.
func summaryLines(s ranking.Summary) (headline, provisional string) {
	c, p := s.Committed, s.Provisional
	headline = fmt.Sprintf("С оригиналами (%d): проходят %d, в резерве %d, не проходят %d",
		c.Total(), c.Passed, c.Reserve, c.Failed)
	provisional = fmt.Sprintf("Без оригиналов (%d), предварительно*: проходили бы %d, в резерве %d, не проходят %d",
		p.Total(), p.Passed, p.Reserve, p.Failed)
	return headline, provisional
}

func tierColor(t ranking.Tier) *color.Color {
	switch t.Base() {
	case ranking.Passed:
		return color.New(color.FgGreen)
	case ranking.Reserve:
		return color.New(color.FgYellow)
	}
	return color.New(color.FgRed)
}

func (a *app) handleImport(ctx context.Context) {
	path := prompt("Путь к CSV файлу")
	if path == "" {
		return
	}
	validateOnly := promptBool("Только проверить без добавления", false)

	im := a.importer
	if validateOnly {
		im = a.validator
	}
	res, err := im.ImportFile(ctx, path)
	if err != nil {
		printError(err)
		return
	}
	color.Green("Строк: %d, импортировано: %d, ошибок: %d", res.Total, res.Imported, res.Failed())
	if res.Failed() == 0 {
		return
	}
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Строка", "Код", "Описание"})
	for _, e := range res.Errors {
		table.Append([]string{strconv.Itoa(e.Row), e.Code, e.Message})
	}
	table.Render()
	if confirm("Сохранить ошибочные строки в файл") {
		saved, err := im.SaveFailedRecords(res)
		if err != nil {
			printError(err)
			return
		}
		color.Green("Сохранено в %s", saved)
	}
}

func (a *app) setBenefitPoints(ctx context.Context) {
	benefits, err := a.registry.Benefits(ctx)
	if err != nil {
		printError(err)
		return
	}
	renderBenefitCatalog(benefits)
	name := prompt("Льгота")
	if name == "" {
		return
	}
	points, err := promptInt("Баллы", "")
	if err != nil {
		printError(err)
		return
	}
	if err := a.registry.SetBenefitPoints(ctx, name, points); err != nil {
		printError(err)
		return
	}
	color.Green("Баллы льготы «%s» изменены на %d.", name, points)
}

func renderBenefitCatalog(benefits []models.Benefit) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"ID", "Льгота", "Баллы"})
	for _, b := range benefits {
		table.Append([]string{strconv.FormatInt(b.ID, 10), b.Name, strconv.Itoa(b.BonusPoints)})
	}
	table.Render()
}

func (a *app) readID() (int64, bool) {
	s := prompt("ID абитуриента")
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id < 1 {
		color.Red("Некорректный ID: %q", s)
		return 0, false
	}
	return id, true
}

// readApplicantInput asks for every field, offering the values of cur.
func readApplicantInput(cur registry.ApplicantInput) (registry.ApplicantInput, error) {
	in := cur
	var err error
	in.LastName = promptDefault("Фамилия", cur.LastName)
	in.FirstName = promptDefault("Имя", cur.FirstName)
	in.Patronymic = promptDefault("Отчество", cur.Patronymic)
	in.Phone = promptDefault("Телефон", cur.Phone)
	in.VK = promptDefault("Профиль ВК", cur.VK)
	in.Region = promptDefault("Регион", cur.Region)
	in.City = promptDefault("Город", cur.City)
	in.Institution = promptDefault("Учебное заведение", cur.Institution)
	in.ParentName = promptDefault("Родитель", cur.ParentName)
	if in.ParentName != "" {
		in.ParentPhone = promptDefault("Телефон родителя", cur.ParentPhone)
		in.ParentRelation = promptDefault("Кем приходится", cur.ParentRelation)
	}
	in.Code = promptDefault("Код специальности", cur.Code)
	if in.BaseRating, err = promptFloat("Рейтинг", formatFloat(cur.BaseRating)); err != nil {
		return in, err
	}
	in.HasOriginal = promptBool("Оригинал документов", cur.HasOriginal)
	if in.SubmissionDate, err = promptDate("Дата подачи", cur.SubmissionDate); err != nil {
		return in, err
	}
	in.Benefit = promptDefault("Льгота", cur.Benefit)
	if in.Benefit != "" && in.Benefit != cur.Benefit {
		if in.BenefitPoints, err = promptInt("Баллы льготы, если её нет в справочнике", ""); err != nil {
			return in, err
		}
	}
	if in.DepartmentVisit, err = promptDate("Дата посещения", cur.DepartmentVisit); err != nil {
		return in, err
	}
	in.Notes = promptDefault("Примечание", cur.Notes)
	in.Source = promptDefault("Откуда узнал/а", cur.Source)
	in.DormitoryNeeded = promptBool("Нужно общежитие", cur.DormitoryNeeded)
	return in, nil
}

func formatFloat(f float64) string {
	if f == 0 {
		return ""
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// inputOf turns a loaded applicant back into form values.
func inputOf(ap models.Applicant) registry.ApplicantInput {
	in := registry.ApplicantInput{
		LastName:        ap.LastName,
		FirstName:       ap.FirstName,
		Patronymic:      ap.Patronymic.String,
		Phone:           ap.Phone,
		VK:              ap.VK.String,
		Region:          ap.RegionName(),
		City:            ap.CityName(),
		Code:            ap.Details.Code,
		BaseRating:      ap.Details.BaseRating,
		HasOriginal:     ap.Details.HasOriginal,
		SubmissionDate:  ap.Details.SubmissionDate.Time,
		Benefit:         ap.BenefitName(),
		DepartmentVisit: ap.Info.DepartmentVisit.Time,
		Notes:           ap.Info.Notes.String,
		Source:          ap.SourceName(),
		DormitoryNeeded: ap.Info.DormitoryNeeded,
	}
	if ap.Institution != nil {
		in.Institution = ap.Institution.Name
	}
	if ap.Parent != nil {
		in.ParentName = ap.Parent.Name
		in.ParentPhone = ap.Parent.Phone
		in.ParentRelation = ap.Parent.Relation
	}
	if ap.Benefit != nil {
		in.BenefitPoints = ap.Benefit.BonusPoints
	}
	return in
}
