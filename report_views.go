package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/nonsonwune/applicant_registry/reports"
)

func pct(f float64) string { return fmt.Sprintf("%.1f%%", f) }

func fmtRating(f float64) string { return fmt.Sprintf("%.2f", f) }

func (a *app) displayForecast() {
	f, err := reports.PassingScoreForecast(a.registry.Applicants())
	if errors.Is(err, reports.ErrInsufficientData) {
		color.Yellow("Нет абитуриентов с оригиналами документов для прогноза.")
		return
	}
	if err != nil {
		printError(err)
		return
	}

	color.Yellow("\nПрогноз проходного балла (по %d абитуриентам с оригиналами)", f.Count)
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Показатель", "Значение"})
	table.AppendBulk([][]string{
		{"Средний балл", fmtRating(f.Mean)},
		{"Медиана", fmtRating(f.Median)},
		{"Стандартное отклонение", fmtRating(f.StdDev)},
		{"Минимум", fmtRating(f.Min)},
		{"Максимум", fmtRating(f.Max)},
		{"Первый квартиль", fmtRating(f.Q1)},
		{"Третий квартиль", fmtRating(f.Q3)},
	})
	table.Render()
	color.Green("Прогнозируемый проходной балл: %.2f", f.Predicted)
	color.Green("Безопасный балл: %.2f", f.Safe)
}

func (a *app) displayDormitory() {
	rep := reports.DormitoryDemand(a.registry.Applicants())

	color.Yellow("\nПотребность в общежитии")
	fmt.Printf("Всего абитуриентов: %d\n", rep.Total)
	fmt.Printf("Нуждаются в общежитии: %d (%s)\n", rep.NeedDormitory, pct(rep.Percent()))
	fmt.Printf("Из них с оригиналами: %d (%s)\n", rep.NeedWithOriginals, pct(rep.PercentWithOriginals()))

	if len(rep.Cities) > 0 {
		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"Город", "Всего", "Нуждаются", "Доля"})
		for _, c := range rep.Cities {
			table.Append([]string{c.City, strconv.Itoa(c.Total), strconv.Itoa(c.NeedDormitory), pct(c.Percent())})
		}
		table.Render()
	}
	color.Green("Рекомендуемое число мест: %d", rep.RecommendedCapacity)
}

func (a *app) displaySources() {
	stats := reports.SourceEffectiveness(a.registry.Applicants())
	if len(stats) == 0 {
		color.Yellow("Реестр пуст.")
		return
	}
	color.Yellow("\nЭффективность источников информации")
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Источник", "Всего", "С оригиналами", "Конверсия", "Доля", "Средний балл", "Макс. балл", "Эффективность"})
	for _, s := range stats {
		table.Append([]string{
			s.Source,
			strconv.Itoa(s.Total),
			strconv.Itoa(s.WithOriginals),
			pct(s.Conversion()),
			pct(s.Share),
			fmtRating(s.AverageRating()),
			fmtRating(s.MaxRating),
			s.Effectiveness.String(),
		})
	}
	table.Render()
}

func (a *app) displayGeography() {
	rep := reports.Geography(a.registry.Applicants())
	if len(rep.Regions) == 0 {
		color.Yellow("Реестр пуст.")
		return
	}

	color.Yellow("\nРаспределение по регионам")
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Регион", "Всего", "Доля", "С оригиналами", "Конверсия", "Общежитие", "Средний балл"})
	for _, r := range rep.Regions {
		table.Append([]string{
			r.Region,
			strconv.Itoa(r.Total),
			pct(r.Share),
			strconv.Itoa(r.WithOriginals),
			pct(r.Conversion()),
			strconv.Itoa(r.NeedDormitory),
			fmtRating(r.AverageRating()),
		})
	}
	table.Render()

	color.Yellow("\nТоп-%d городов", reports.TopCities)
	table = tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Город", "Регион", "Всего", "С оригиналами", "Общежитие", "Средний балл"})
	for _, c := range rep.Cities {
		table.Append([]string{
			c.City,
			c.Region,
			strconv.Itoa(c.Total),
			strconv.Itoa(c.WithOriginals),
			strconv.Itoa(c.NeedDormitory),
			fmtRating(c.AverageRating()),
		})
	}
	table.Render()
}

func (a *app) displayBenefits(ctx context.Context) {
	catalog, err := a.registry.Benefits(ctx)
	if err != nil {
		printError(err)
		return
	}
	stats := reports.BenefitDistribution(a.registry.Applicants(), catalog)
	if len(stats) == 0 {
		color.Yellow("Ни у одного абитуриента нет льгот.")
		return
	}
	color.Yellow("\nРаспределение льгот")
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Льгота", "Баллы", "Абитуриентов"})
	for _, s := range stats {
		table.Append([]string{s.Benefit, strconv.Itoa(s.BonusPoints), strconv.Itoa(s.Applicants)})
	}
	table.Render()
}

func (a *app) displayRatingDistribution() {
	width, err := promptFloat("Ширина интервала", "10")
	if err != nil {
		printError(err)
		return
	}
	h, err := reports.RatingDistribution(a.registry.Applicants(), width)
	if err != nil {
		printError(err)
		return
	}
	if len(h.Buckets) == 0 {
		color.Yellow("Реестр пуст.")
		return
	}

	color.Yellow("\nРаспределение рейтинга")
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Интервал", "С оригиналами", "Без оригиналов"})
	for _, b := range h.Buckets {
		table.Append([]string{
			fmt.Sprintf("%s-%s", strconv.FormatFloat(b.From, 'f', -1, 64), strconv.FormatFloat(b.To, 'f', -1, 64)),
			strconv.Itoa(b.WithOriginals),
			strconv.Itoa(b.WithoutOriginals),
		})
	}
	table.Render()
	fmt.Printf("Средний балл с оригиналами: %.2f, без оригиналов: %.2f\n", h.MeanWithOriginals, h.MeanWithoutOriginals)
}

func (a *app) displayGeneral(ctx context.Context) {
	catalog, err := a.registry.Benefits(ctx)
	if err != nil {
		printError(err)
		return
	}
	o := reports.General(a.registry.Applicants(), catalog)

	color.Yellow("\nОбщая статистика")
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Параметр", "Значение"})
	table.AppendBulk([][]string{
		{"Всего абитуриентов", strconv.Itoa(o.Total)},
		{"С оригиналами документов", strconv.Itoa(o.WithOriginals)},
		{"Средний рейтинговый балл", fmtRating(o.AverageRating)},
		{"Максимальный балл", fmtRating(o.MaxRating)},
		{"Нуждаются в общежитии", strconv.Itoa(o.NeedDormitory)},
	})
	if len(o.Benefits) > 0 {
		table.Append([]string{"Статистика по льготам", ""})
		for _, b := range o.Benefits {
			table.Append([]string{"  " + b.Benefit, strconv.Itoa(b.Applicants)})
		}
	}
	table.Render()
}
