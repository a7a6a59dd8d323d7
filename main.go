package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nonsonwune/applicant_registry/compactor"
	"github.com/nonsonwune/applicant_registry/config"
	"github.com/nonsonwune/applicant_registry/importer"
	"github.com/nonsonwune/applicant_registry/migrations"
	"github.com/nonsonwune/applicant_registry/registry"
	"github.com/nonsonwune/applicant_registry/store"
)

const dateLayout = "02.01.2006"

var input = bufio.NewScanner(os.Stdin)

type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *store.SQLStore
	registry *registry.Registry
	importer *importer.Importer
	// validator parses import files without adding rows.
	validator *importer.Importer
	metrics   *http.Server
}

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	cfg, errs := config.Load(*configPath)
	if len(errs) > 0 {
		for _, err := range errs {
			color.Red("Configuration error: %v", err)
		}
		os.Exit(1)
	}
	logger := config.NewLogger(cfg.Env, cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a, err := setup(ctx, cfg, logger)
	if err != nil {
		color.Red("Startup failed: %v", err)
		os.Exit(1)
	}
	defer a.close()

	a.run(ctx)
}

func setup(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	logger.Info("starting applicant registry", "config", cfg.LogSummary())

	dialect, err := store.DialectFor(cfg.DBDriver)
	if err != nil {
		return nil, err
	}
	st, err := store.Open(ctx, dialect, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := migrations.InitSchema(ctx, st.DB(), dialect); err != nil {
		st.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	if cfg.SeedReferenceData {
		stats, err := migrations.SeedReferenceData(ctx, st)
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("seed reference data: %w", err)
		}
		logger.Info("reference data seeded",
			"regions", stats.Regions,
			"cities", stats.Cities,
			"benefits", stats.Benefits,
			"information_sources", stats.InformationSources,
		)
	}

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := compactor.NewMetrics()
	if err := metrics.Register(promReg); err != nil {
		st.Close()
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	comp := compactor.New(compactor.Options{RebuildCatalog: cfg.RebuildCatalog}, logger, metrics)
	reg := registry.New(st, comp, logger)
	if err := reg.Reload(ctx); err != nil {
		st.Close()
		return nil, fmt.Errorf("load applicants: %w", err)
	}

	importCfg := importer.Config{DefaultRegion: migrations.DefaultRegions[0].Region}
	validateCfg := importCfg
	validateCfg.ValidateOnly = true
	a := &app{
		cfg:       cfg,
		logger:    logger,
		store:     st,
		registry:  reg,
		importer:  importer.New(reg, importCfg, logger),
		validator: importer.New(reg, validateCfg, logger),
	}
	if cfg.MetricsAddr != "" {
		a.serveMetrics(promReg)
	}
	return a, nil
}

func (a *app) serveMetrics(reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	a.metrics = &http.Server{Addr: a.cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		a.logger.Info("metrics endpoint listening", "addr", a.cfg.MetricsAddr)
		if err := a.metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics endpoint stopped", "error", err)
		}
	}()
}

func (a *app) close() {
	if a.metrics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		a.metrics.Shutdown(ctx)
	}
	if err := a.store.Close(); err != nil {
		a.logger.Warn("closing store", "error", err)
	}
}

func (a *app) run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		displayMenu(a.registry.Len())
		choice, ok := readLine()
		if !ok {
			return
		}

		switch choice {
		case "1":
			a.listApplicants()
		case "2":
			a.searchApplicants()
		case "3":
			a.filterApplicants()
		case "4":
			a.addApplicant(ctx)
		case "5":
			a.editApplicant(ctx)
		case "6":
			a.deleteApplicant(ctx)
		case "7":
			a.compactRegistry(ctx)
		case "8":
			a.displayGeneral(ctx)
		case "9":
			a.passingAnalysis()
		case "10":
			a.displayForecast()
		case "11":
			a.displayDormitory()
		case "12":
			a.displaySources()
		case "13":
			a.displayGeography()
		case "14":
			a.displayBenefits(ctx)
		case "15":
			a.displayRatingDistribution()
		case "16":
			a.handleImport(ctx)
		case "17":
			a.setBenefitPoints(ctx)
		case "18":
			color.Green("Работа завершена.")
			return
		default:
			color.Red("Неверный пункт меню. Повторите ввод.")
		}
	}
}

func displayMenu(count int) {
	color.Cyan("\n=== Реестр абитуриентов (%d) ===", count)
	fmt.Println("1. Список абитуриентов")
	fmt.Println("2. Поиск")
	fmt.Println("3. Фильтр")
	fmt.Println("4. Добавить абитуриента")
	fmt.Println("5. Редактировать абитуриента")
	fmt.Println("6. Удалить абитуриента")
	fmt.Println("7. Уплотнить реестр")
	fmt.Println("8. Общая статистика")
	fmt.Println("9. Анализ проходного балла")
	fmt.Println("10. Прогноз проходного балла")
	fmt.Println("11. Потребность в общежитии")
	fmt.Println("12. Эффективность источников информации")
	fmt.Println("13. География абитуриентов")
	fmt.Println("14. Распределение льгот")
	fmt.Println("15. Распределение рейтинга")
	fmt.Println("16. Импорт из CSV")
	fmt.Println("17. Баллы льготы")
	fmt.Println("18. Выход")
	fmt.Print("\nВыберите пункт (1-18): ")
}

// readLine returns the next trimmed line of stdin; false at end of input.
func readLine() (string, bool) {
	if !input.Scan() {
		return "", false
	}
	return strings.TrimSpace(input.Text()), true
}

func prompt(label string) string {
	fmt.Print(label + ": ")
	s, _ := readLine()
	return s
}

// promptDefault shows current and keeps it when the answer is empty.
func promptDefault(label, current string) string {
	if current == "" {
		return prompt(label)
	}
	fmt.Printf("%s [%s]: ", label, current)
	s, _ := readLine()
	if s == "" {
		return current
	}
	return s
}

func promptFloat(label, current string) (float64, error) {
	s := promptDefault(label, current)
	if s == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not a number", label, s)
	}
	return f, nil
}

func promptInt(label, current string) (int, error) {
	s := promptDefault(label, current)
	if s == "" {
		return 0, nil
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not an integer", label, s)
	}
	return i, nil
}

func promptDate(label string, current time.Time) (time.Time, error) {
	var def string
	if !current.IsZero() {
		def = current.Format(dateLayout)
	}
	s := promptDefault(label+" (ДД.ММ.ГГГГ)", def)
	if s == "" || s == "-" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: %q is not a date", label, s)
	}
	return t, nil
}

func promptBool(label string, current bool) bool {
	def := "н"
	if current {
		def = "д"
	}
	switch strings.ToLower(promptDefault(label+" (д/н)", def)) {
	case "д", "да", "y", "yes":
		return true
	}
	return false
}

func confirm(label string) bool {
	return promptBool(label, false)
}

func yesNo(b bool) string {
	if b {
		return "Да"
	}
	return "Нет"
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(dateLayout)
}

func printError(err error) {
	color.Red("Ошибка: %v", err)
}
