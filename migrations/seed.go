package migrations

import (
	"context"
	"fmt"

	"github.com/nonsonwune/applicant_registry/models"
	"github.com/nonsonwune/applicant_registry/store"
)

// DefaultBenefits is the benefit catalog with its bonus points.
var DefaultBenefits = []models.Benefit{
	{Name: "Без льгот", BonusPoints: 0},
	{Name: "Сирота", BonusPoints: 10},
	{Name: "Инвалид I группы", BonusPoints: 10},
	{Name: "Инвалид II группы", BonusPoints: 8},
	{Name: "Инвалид III группы", BonusPoints: 5},
	{Name: "Участник СВО", BonusPoints: 10},
	{Name: "Ребенок участника СВО", BonusPoints: 8},
	{Name: "Ребенок погибшего участника СВО", BonusPoints: 10},
	{Name: "Многодетная семья", BonusPoints: 3},
	{Name: "Целевое обучение", BonusPoints: 5},
	{Name: "Отличник (аттестат с отличием)", BonusPoints: 5},
	{Name: "Золотая медаль", BonusPoints: 10},
	{Name: "Серебряная медаль", BonusPoints: 7},
	{Name: "Победитель олимпиады (всероссийская)", BonusPoints: 10},
	{Name: "Призер олимпиады (всероссийская)", BonusPoints: 8},
	{Name: "Победитель олимпиады (региональная)", BonusPoints: 5},
	{Name: "Призер олимпиады (региональная)", BonusPoints: 3},
	{Name: "ГТО (золотой знак)", BonusPoints: 5},
	{Name: "ГТО (серебряный знак)", BonusPoints: 3},
	{Name: "ГТО (бронзовый знак)", BonusPoints: 2},
	{Name: "Волонтер (более 100 часов)", BonusPoints: 3},
	{Name: "Спортивные достижения (КМС и выше)", BonusPoints: 5},
	{Name: "Творческие достижения (лауреат)", BonusPoints: 3},
}

// DefaultInformationSources lists the channels an applicant can name.
var DefaultInformationSources = []string{
	"Сайт учебного заведения",
	"Социальные сети",
	"Рекомендация друзей/знакомых",
	"Рекламные материалы",
	"День открытых дверей",
	"Ярмарка образования",
	"Поисковые системы (Google, Яндекс)",
	"Рекомендация учителей/родителей",
	"СМИ (газеты, телевидение)",
	"Другое",
}

// RegionCities is one region with its cities.
type RegionCities struct {
	Region string
	Cities []string
}

// DefaultRegions is the region and city catalog.
var DefaultRegions = []RegionCities{
	{Region: "Донецкая народная республика", Cities: []string{
		"Донецк", "Макеевка", "Горловка", "Енакиево", "Харцызск",
		"Дебальцево", "Шахтерск", "Ясиноватая", "Снежное", "Тельманово",
	}},
	{Region: "Луганская народная республика", Cities: []string{
		"Луганск", "Алчевск", "Антрацит", "Брянка", "Красный Луч",
		"Первомайск", "Ровеньки", "Стаханов", "Свердловск", "Краснодон",
	}},
	{Region: "Херсонская область", Cities: []string{
		"Херсон", "Каховка", "Новая Каховка", "Скадовск",
		"Голая Пристань", "Берислав", "Геническ", "Таврийск",
	}},
	{Region: "Запорожская область", Cities: []string{
		"Запорожье", "Мелитополь", "Бердянск", "Энергодар", "Токмак",
		"Васильевка", "Орехов", "Приморск", "Пологи",
	}},
	{Region: "Ростовская область", Cities: []string{
		"Ростов-на-Дону", "Таганрог", "Шахты", "Новочеркасск", "Волгодонск",
		"Новошахтинск", "Каменск-Шахтинский", "Азов", "Батайск", "Гуково",
	}},
}

// SeedStats counts the rows a seeding pass inserted.
type SeedStats struct {
	Regions            int
	Cities             int
	Benefits           int
	InformationSources int
}

// SeedReferenceData inserts the default catalog rows that are missing. Bonus
// points of existing benefits are left as they are. Running it twice changes
// nothing.
func SeedReferenceData(ctx context.Context, st store.Store) (SeedStats, error) {
	var stats SeedStats
	tx, err := st.Begin(ctx)
	if err != nil {
		return stats, err
	}
	defer tx.Rollback()

	for _, rc := range DefaultRegions {
		regionID, found, err := tx.FindID(ctx, store.KindRegion, models.KeyOfRegion(models.Region{Name: rc.Region}))
		if err != nil {
			return stats, fmt.Errorf("seed region %s: %w", rc.Region, err)
		}
		if !found {
			r := models.Region{Name: rc.Region}
			if err := tx.InsertRegion(ctx, &r); err != nil {
				return stats, fmt.Errorf("seed region %s: %w", rc.Region, err)
			}
			regionID = r.ID
			stats.Regions++
		}
		for _, name := range rc.Cities {
			c := models.City{Name: name, RegionID: regionID}
			_, found, err := tx.FindID(ctx, store.KindCity, models.KeyOfCity(c))
			if err != nil {
				return stats, fmt.Errorf("seed city %s: %w", name, err)
			}
			if found {
				continue
			}
			if err := tx.InsertCity(ctx, &c); err != nil {
				return stats, fmt.Errorf("seed city %s: %w", name, err)
			}
			stats.Cities++
		}
	}

	for _, def := range DefaultBenefits {
		_, found, err := tx.FindID(ctx, store.KindBenefit, models.KeyOfBenefit(def))
		if err != nil {
			return stats, fmt.Errorf("seed benefit %s: %w", def.Name, err)
		}
		if found {
			continue
		}
		b := def
		if err := tx.InsertBenefit(ctx, &b); err != nil {
			return stats, fmt.Errorf("seed benefit %s: %w", def.Name, err)
		}
		stats.Benefits++
	}

	for _, name := range DefaultInformationSources {
		s := models.InformationSource{Name: name}
		_, found, err := tx.FindID(ctx, store.KindInformationSource, models.KeyOfInformationSource(s))
		if err != nil {
			return stats, fmt.Errorf("seed information source %s: %w", name, err)
		}
		if found {
			continue
		}
		if err := tx.InsertInformationSource(ctx, &s); err != nil {
			return stats, fmt.Errorf("seed information source %s: %w", name, err)
		}
		stats.InformationSources++
	}

	if err := tx.Commit(); err != nil {
		return stats, fmt.Errorf("seed commit: %w", err)
	}
	return stats, nil
}
